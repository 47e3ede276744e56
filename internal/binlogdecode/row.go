package binlogdecode

import (
	"io"
	"reflect"

	"github.com/shopsync/catalogcdc/internal/wireio"
)

// SlotState distinguishes a SQL-NULL column from one simply omitted from a
// minimal (or partial-JSON) row image. See spec §3 "Binary row" and §9
// "Absent vs null columns".
type SlotState int

const (
	Absent SlotState = iota
	Null
	Present
)

// ValueKind tags the shape of a present Slot's Value.
type ValueKind int

const (
	ValuePrimitive ValueKind = iota
	ValueJSONDocument
	ValueJSONDiff
)

// JSONDiffKind is the operation carried by one JSONDiffOp.
type JSONDiffKind int

const (
	JSONDiffReplace JSONDiffKind = iota
	JSONDiffInsert
	JSONDiffRemove
)

// JSONDiffValue is the optional operand of a JSON-diff operation: either a
// primitive scalar or a nested JSON document, never both, and never a
// further diff (the value union is a flat sum, not mutually recursive —
// see spec §9).
type JSONDiffValue struct {
	Present  bool
	Document bool
	Raw      interface{}
}

// JSONDiffOp is one mutation of a partial-JSON after-image.
type JSONDiffOp struct {
	Path  string
	Op    JSONDiffKind
	Value JSONDiffValue
}

// Value is the tagged union carried by a present Slot: a raw primitive wire
// value, a whole decoded JSON document, or a JSON-diff operation list.
type Value struct {
	Kind     ValueKind
	Primitive interface{}
	Document  interface{}
	Diff      []JSONDiffOp
}

// Slot is one column position of a BinaryRow.
type Slot struct {
	State SlotState
	Value Value
}

// BinaryRow is the decoded column-value sequence of §3: length equals the
// table's declared column count, one Slot per ordinal.
type BinaryRow []Slot

// Equal reports whether two slots are equal for the domain mapper's
// "changed column" test (§4.C): absent compared with absent is equal,
// absent compared with present is different, and two present slots compare
// their decoded Go value by deep equality.
func (s Slot) Equal(o Slot) bool {
	if s.State != o.State {
		return false
	}
	if s.State != Present {
		return true
	}
	if s.Value.Kind != o.Value.Kind {
		return false
	}
	switch s.Value.Kind {
	case ValuePrimitive:
		return reflect.DeepEqual(s.Value.Primitive, o.Value.Primitive)
	case ValueJSONDocument:
		return reflect.DeepEqual(s.Value.Document, o.Value.Document)
	default:
		return reflect.DeepEqual(s.Value.Diff, o.Value.Diff)
	}
}

// rowsEvent is the parsed common header of a row-level event body; row
// images are then decoded one at a time via nextRowImages.
type rowsEvent struct {
	kind      RowEventKind
	table     *TableDescriptor
	beforeBM  wireio.Bitmap
	afterBM   wireio.Bitmap
	numCol    int
	jsonCols  []int // ordinals of JSON columns, ascending
}

// decodeRowsEvent parses the fixed header of a WRITE/UPDATE/DELETE/
// PARTIAL_UPDATE rows event: table-id lookup, v2 extra data, column count,
// and the before/after image-presence bitmaps.
func decodeRowsEvent(r *wireio.Reader, eventType EventType, fde FormatDescriptionEvent, cache *TableCache) (*rowsEvent, error) {
	kind, ok := eventType.RowKind()
	if !ok {
		return nil, nil
	}

	var tableID uint64
	if fde.PostHeaderLength(eventType, 8) == 6 {
		tableID = uint64(r.Int4())
	} else {
		tableID = r.Int6()
	}

	_ = r.Int2() // flags
	switch eventType {
	case EventTypeWriteRowsV2, EventTypeUpdateRowsV2, EventTypeDeleteRowsV2, EventTypePartialUpdateRows:
		extraLen := r.Int2()
		if r.Err != nil {
			return nil, r.Err
		}
		r.Skip(int(extraLen) - 2)
	}
	numCol := r.IntN()
	if r.Err != nil {
		return nil, r.Err
	}

	if tableID == 0x00ffffff || numCol == 0 {
		return nil, nil // dummy rows event
	}

	table, ok := cache.Get(tableID)
	if !ok {
		return nil, nil // foreign database or row event before table-map: skip
	}

	re := &rowsEvent{kind: kind, table: table, numCol: int(numCol)}
	for i, isJSON := range table.IsJSON {
		if isJSON {
			re.jsonCols = append(re.jsonCols, i)
		}
	}

	hasBefore := kind == RowUpdate || kind == RowDelete || kind == RowPartialUpdate
	hasAfter := kind == RowInsert || kind == RowUpdate || kind == RowPartialUpdate

	if hasBefore {
		re.beforeBM = r.NullBitmap(numCol)
	}
	if hasAfter {
		re.afterBM = r.NullBitmap(numCol)
	}
	return re, r.Err
}

// nextRowImages decodes one (before, after) BinaryRow pair, or io.EOF when
// the event's payload is exhausted.
func (re *rowsEvent) nextRowImages(r *wireio.Reader) (before, after BinaryRow, err error) {
	if !r.More() {
		return nil, nil, io.EOF
	}
	if re.beforeBM != nil {
		before, err = re.decodeImage(r, re.beforeBM, false)
		if err != nil {
			return nil, nil, err
		}
	}
	if re.afterBM != nil {
		after, err = re.decodeImage(r, re.afterBM, re.kind == RowPartialUpdate)
		if err != nil {
			return nil, nil, err
		}
	}
	return before, after, nil
}

func (re *rowsEvent) decodeImage(r *wireio.Reader, imageBM wireio.Bitmap, partial bool) (BinaryRow, error) {
	var sharedBM wireio.Bitmap
	if partial {
		options := r.IntN()
		if r.Err != nil {
			return nil, r.Err
		}
		if options&partialJSONUpdatesOption != 0 {
			sharedBM = wireio.Bitmap(r.Bytes(jsonBitmapSize(len(re.jsonCols))))
		}
	}

	present := imageBM.PopCount(re.numCol)
	nullBM := r.NullBitmap(uint64(present))
	if r.Err != nil {
		return nil, r.Err
	}

	row := make(BinaryRow, re.numCol)
	bit := 0
	for i := 0; i < re.numCol; i++ {
		if !imageBM.IsSet(i) {
			row[i] = Slot{State: Absent}
			continue
		}
		isNull := nullBM.IsSet(bit)
		bit++
		if isNull {
			row[i] = Slot{State: Null}
			continue
		}
		col := re.table.Columns[i]
		if col.Type == TypeJSON && partial && sharedBM != nil && !sharedBM.IsSet(jsonIndex(re.jsonCols, i)) {
			diff, err := decodeJSONDiff(r)
			if err != nil {
				return nil, err
			}
			row[i] = Slot{State: Present, Value: Value{Kind: ValueJSONDiff, Diff: diff}}
			continue
		}
		v, err := col.decodeValue(r)
		if err != nil {
			return nil, err
		}
		if col.Type == TypeJSON {
			row[i] = Slot{State: Present, Value: Value{Kind: ValueJSONDocument, Document: v}}
		} else {
			row[i] = Slot{State: Present, Value: Value{Kind: ValuePrimitive, Primitive: v}}
		}
	}
	return row, nil
}

func jsonIndex(jsonCols []int, ordinal int) int {
	for i, c := range jsonCols {
		if c == ordinal {
			return i
		}
	}
	return -1
}

func jsonBitmapSize(numJSONCols int) int {
	return (numJSONCols + 7) / 8
}

// partialJSONUpdatesOption is the row-options bit this implementation uses
// to signal that a partial-update after-image carries a shared-image
// bitmap. See spec §4.A.
const partialJSONUpdatesOption = 1
