package emit

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shopsync/catalogcdc/internal/aggregate"
)

func TestEncodeMsgpackEmptyAggregate(t *testing.T) {
	agg := &aggregate.ChangeAggregate{
		EntityKind: aggregate.Product,
		Metadata: aggregate.EventMetadata{
			Timestamp: 10,
			Position:  aggregate.BinlogPosition{File: "bin.0000", Offset: 4},
		},
		Data: map[aggregate.AggregateKey]aggregate.AggregateValue{},
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeMsgpack(&buf, agg))
	require.Equal(t, "\x01\x0a\xa8bin.0000\x04\x00", buf.String())
}

func TestEncodeMsgpackSingleKeyEntry(t *testing.T) {
	agg := &aggregate.ChangeAggregate{
		EntityKind: aggregate.Product,
		Metadata: aggregate.EventMetadata{
			Timestamp: 10,
			Position:  aggregate.BinlogPosition{File: "bin.0000", Offset: 4},
		},
		Data: map[aggregate.AggregateKey]aggregate.AggregateValue{
			aggregate.NameKey("sku"): {Ints: []uint64{1, 2, 3}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeMsgpack(&buf, agg))
	require.Equal(t, "\x01\x0a\xa8bin.0000\x04\x01\x01\xa3sku\x93\x01\x02\x03", buf.String())
}
