package binlogdecode

import (
	"io"

	"github.com/shopsync/catalogcdc/internal/wireio"
)

// RowChange is one decoded (before?, after?) pair from a row-level event,
// together with the table it belongs to.
type RowChange struct {
	Table  *TableDescriptor
	Before BinaryRow
	After  BinaryRow
}

// DecodedEvent is the result of decoding one binlog event body.
type DecodedEvent struct {
	Header EventHeader
	Rotate *RotateInfo
	Rows   []RowChange
}

// Decoder is the stateful per-connection binlog decoder of §4.A: it tracks
// the current format-description event (for post-header lengths) and owns
// the table-map cache.
type Decoder struct {
	fde   FormatDescriptionEvent
	cache *TableCache
}

// NewDecoder returns a decoder that only installs table-maps for database
// and strips tablePrefix from table names it records.
func NewDecoder(database, tablePrefix string) *Decoder {
	return &Decoder{cache: NewTableCache(database, tablePrefix)}
}

// Decode reads one complete event (header + body) from r. After the header
// it sets r.Limit from the header's EventSize and drains whatever the body
// decode left unread, so callers need not bound r themselves.
//
// Per §4.A: TABLE_MAP installs a table descriptor, ROTATE is reported so the
// driver can advance its position, row events yield decoded RowChange
// values, and all other event types are silently skipped.
func (d *Decoder) Decode(r *wireio.Reader) (*DecodedEvent, error) {
	header, err := decodeEventHeader(r)
	if err != nil {
		return nil, err
	}
	ev := &DecodedEvent{Header: header}

	// EventSize covers the header already consumed above; bound the body
	// read to exactly what remains so event types this decoder doesn't
	// fully parse (or trailing padding) can't bleed into the next event.
	r.Limit = int(header.EventSize) - 19

	switch header.EventType {
	case EventTypeFormatDescription:
		fde, err := decodeFormatDescriptionEvent(r)
		if err != nil {
			return nil, err
		}
		d.fde = fde
	case EventTypeRotate:
		info, err := decodeRotateEvent(r, d.fde)
		if err != nil {
			return nil, err
		}
		ev.Rotate = &info
	case EventTypeTableMap:
		if err := d.cache.Install(r); err != nil {
			return nil, err
		}
	default:
		if _, ok := header.EventType.RowKind(); ok {
			rows, err := d.decodeRows(r, header.EventType)
			if err != nil {
				return nil, err
			}
			ev.Rows = rows
		}
	}
	if err := r.Drain(); err != nil {
		return nil, err
	}
	r.Limit = -1
	return ev, nil
}

func (d *Decoder) decodeRows(r *wireio.Reader, eventType EventType) ([]RowChange, error) {
	re, err := decodeRowsEvent(r, eventType, d.fde, d.cache)
	if err != nil {
		return nil, err
	}
	if re == nil {
		return nil, nil // dummy event, or no cached table (foreign database / out-of-order)
	}
	var changes []RowChange
	for {
		before, after, err := re.nextRowImages(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		changes = append(changes, RowChange{Table: re.table, Before: before, After: after})
	}
	return changes, nil
}
