package binlogdecode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeJSONValue_SmallObject(t *testing.T) {
	// {"a": "b"} encoded as MySQL's small-object JSONB format: a 2-byte
	// element count and total-size header, one key entry (offset, length),
	// one inline-absent value entry (type + offset), then the key bytes and
	// the length-prefixed value bytes.
	data := []byte{
		jsonSmallObj,
		0x01, 0x00, // element count
		0x0E, 0x00, // total size (unused by the decoder)
		0x0B, 0x00, // key 0 offset
		0x01, 0x00, // key 0 length
		jsonString, // value 0 type
		0x0C, 0x00, // value 0 offset
		'a',        // key data
		0x01, 'b', // value data: data-length varint + "b"
	}

	got, err := decodeJSONValue(data)
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"a": "b"}, got)
}

func TestDecodeJSONValue_Literals(t *testing.T) {
	v, err := decodeJSONValue([]byte{jsonLiteral, 0x01})
	require.NoError(t, err)
	require.Equal(t, true, v)

	v, err = decodeJSONValue([]byte{jsonLiteral, 0x02})
	require.NoError(t, err)
	require.Equal(t, false, v)

	v, err = decodeJSONValue([]byte{jsonLiteral, 0x00})
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestDecodeJSONValue_SmallArray(t *testing.T) {
	// [1, 2] as a small array of two inline int16 values.
	data := []byte{
		jsonSmallArr,
		0x02, 0x00, // element count
		0x0A, 0x00, // total size (unused)
		jsonInt16, 0x01, 0x00, // value 0: inline int16 = 1
		jsonInt16, 0x02, 0x00, // value 1: inline int16 = 2
	}

	got, err := decodeJSONValue(data)
	require.NoError(t, err)
	require.Equal(t, []interface{}{int16(1), int16(2)}, got)
}
