package emit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shopsync/catalogcdc/internal/aggregate"
)

func TestMarshalJSONRoundTrip(t *testing.T) {
	agg := &aggregate.ChangeAggregate{
		EntityKind: aggregate.Product,
		Metadata: aggregate.EventMetadata{
			Timestamp: 1,
			Position:  aggregate.BinlogPosition{File: "file", Offset: 1},
		},
		Data: map[aggregate.AggregateKey]aggregate.AggregateValue{
			aggregate.AttributeKey(1):               {Ints: []uint64{2, 3}},
			aggregate.AttributeKey(2):               {Ints: []uint64{1}},
			aggregate.NameKey(aggregate.KeyWebsite):  {Ints: []uint64{1, 2, 3}},
			aggregate.NameScopeIntKey(aggregate.KeyWebsite, 1): {Ints: []uint64{1, 2, 3}},
			aggregate.NameScopeIntKey(aggregate.KeyWebsite, 2): {Ints: []uint64{1}},
		},
	}

	line, err := MarshalJSON(agg)
	require.NoError(t, err)

	var decoded struct {
		Entity   string                         `json:"entity"`
		Metadata jsonMetadata                   `json:"metadata"`
		Global   map[string][]uint64            `json:"global"`
		Scoped   map[string]map[string][]uint64 `json:"scoped"`
		Attrib   map[string][]uint64             `json:"attribute"`
	}
	require.NoError(t, json.Unmarshal(line, &decoded))

	require.Equal(t, "product", decoded.Entity)
	require.Equal(t, jsonMetadata{Timestamp: 1, File: "file", Position: 1}, decoded.Metadata)
	require.Equal(t, []uint64{1, 2, 3}, decoded.Global["@website"])
	require.Equal(t, map[string][]uint64{"1": {1, 2, 3}, "2": {1}}, decoded.Scoped["@website"])
	require.Equal(t, []uint64{2, 3}, decoded.Attrib["1"])
	require.Equal(t, []uint64{1}, decoded.Attrib["2"])
}

func TestMarshalJSONEmptySections(t *testing.T) {
	agg := &aggregate.ChangeAggregate{
		EntityKind: aggregate.Category,
		Metadata: aggregate.EventMetadata{
			Timestamp: 5,
			Position:  aggregate.BinlogPosition{File: "bin.0001", Offset: 9},
		},
		Data: map[aggregate.AggregateKey]aggregate.AggregateValue{},
	}

	line, err := MarshalJSON(agg)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(line, &decoded))
	require.Equal(t, "category", decoded["entity"])
	require.Equal(t, map[string]interface{}{}, decoded["global"])
	require.Equal(t, map[string]interface{}{}, decoded["scoped"])
	require.Equal(t, map[string]interface{}{}, decoded["attribute"])
}
