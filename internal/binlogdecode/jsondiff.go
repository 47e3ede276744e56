package binlogdecode

import (
	"fmt"

	"github.com/shopsync/catalogcdc/internal/wireio"
)

// decodeJSONDiff reads a partial-JSON after-image value: a length-encoded
// operation count followed by, per operation, a 1-byte op code, a
// length-encoded path string, and (for non-remove ops) an optional operand
// encoded with MySQL's internal JSON binary value format (§9: "value? is
// either another primitive or a nested JSON document").
func decodeJSONDiff(r *wireio.Reader) ([]JSONDiffOp, error) {
	n := r.IntN()
	if r.Err != nil {
		return nil, r.Err
	}
	ops := make([]JSONDiffOp, n)
	for i := range ops {
		opByte := r.Int1()
		path := r.StringN()
		if r.Err != nil {
			return nil, r.Err
		}
		op, err := decodeJSONDiffKind(opByte)
		if err != nil {
			return nil, err
		}
		ops[i].Path = path
		ops[i].Op = op
		if op == JSONDiffRemove {
			continue
		}
		presence := r.Int1()
		if r.Err != nil {
			return nil, r.Err
		}
		switch presence {
		case 0: // none
		case 1, 2: // primitive, document
			size := r.IntN()
			buf := r.Bytes(int(size))
			if r.Err != nil {
				return nil, r.Err
			}
			v, err := decodeJSONValue(buf)
			if err != nil {
				return nil, err
			}
			ops[i].Value = JSONDiffValue{Present: true, Document: presence == 2, Raw: v}
		default:
			return nil, fmt.Errorf("binlogdecode: invalid json-diff operand presence 0x%02x", presence)
		}
	}
	return ops, r.Err
}

func decodeJSONDiffKind(b byte) (JSONDiffKind, error) {
	switch b {
	case 0:
		return JSONDiffReplace, nil
	case 1:
		return JSONDiffInsert, nil
	case 2:
		return JSONDiffRemove, nil
	}
	return 0, fmt.Errorf("binlogdecode: invalid json-diff op 0x%02x", b)
}
