// Package binlogdecode turns a MySQL binary-log event stream into typed row
// changes: table-map tracking, row-image parsing (including partial-JSON
// diffs), and MySQL's wire-level numeric/temporal/JSON value encodings.
package binlogdecode

import (
	"fmt"

	"github.com/shopsync/catalogcdc/internal/wireio"
)

// EventType is the MySQL binlog event type tag.
type EventType uint8

// Event type constants.
//
// https://dev.mysql.com/doc/internals/en/binlog-event-type.html
const (
	EventTypeUnknown            EventType = 0x00
	EventTypeStartV3            EventType = 0x01
	EventTypeQuery              EventType = 0x02
	EventTypeStop               EventType = 0x03
	EventTypeRotate             EventType = 0x04
	EventTypeIntVar             EventType = 0x05
	EventTypeFormatDescription  EventType = 0x0f
	EventTypeXID                EventType = 0x10
	EventTypeTableMap           EventType = 0x13
	EventTypeWriteRowsV0        EventType = 0x14
	EventTypeUpdateRowsV0       EventType = 0x15
	EventTypeDeleteRowsV0       EventType = 0x16
	EventTypeWriteRowsV1        EventType = 0x17
	EventTypeUpdateRowsV1       EventType = 0x18
	EventTypeDeleteRowsV1       EventType = 0x19
	EventTypeIncident           EventType = 0x1a
	EventTypeHeartbeat          EventType = 0x1b
	EventTypeIgnorable          EventType = 0x1c
	EventTypeRowsQuery          EventType = 0x1d
	EventTypeWriteRowsV2        EventType = 0x1e
	EventTypeUpdateRowsV2       EventType = 0x1f
	EventTypeDeleteRowsV2       EventType = 0x20
	EventTypeGTID               EventType = 0x21
	EventTypeAnonymousGTID      EventType = 0x22
	EventTypePreviousGTIDs      EventType = 0x23

	// EventTypePartialUpdateRows is PARTIAL_UPDATE_ROWS_EVENT, laid out like
	// EventTypeUpdateRowsV2 (including its extra-data block) and decoded the
	// same way except for its after-image handling, where JSON columns may
	// carry a diff against the before-image.
	EventTypePartialUpdateRows EventType = 0x27
)

var eventTypeNames = map[EventType]string{
	EventTypeUnknown:           "unknown",
	EventTypeStartV3:           "startV3",
	EventTypeQuery:             "query",
	EventTypeStop:              "stop",
	EventTypeRotate:            "rotate",
	EventTypeIntVar:            "intVar",
	EventTypeFormatDescription: "formatDescription",
	EventTypeXID:               "xid",
	EventTypeTableMap:          "tableMap",
	EventTypeWriteRowsV0:       "writeRowsV0",
	EventTypeUpdateRowsV0:      "updateRowsV0",
	EventTypeDeleteRowsV0:      "deleteRowsV0",
	EventTypeWriteRowsV1:       "writeRowsV1",
	EventTypeUpdateRowsV1:      "updateRowsV1",
	EventTypeDeleteRowsV1:      "deleteRowsV1",
	EventTypeIncident:          "incident",
	EventTypeHeartbeat:         "heartbeat",
	EventTypeIgnorable:         "ignorable",
	EventTypeRowsQuery:         "rowsQuery",
	EventTypeWriteRowsV2:       "writeRowsV2",
	EventTypeUpdateRowsV2:      "updateRowsV2",
	EventTypeDeleteRowsV2:      "deleteRowsV2",
	EventTypeGTID:              "gtid",
	EventTypeAnonymousGTID:     "anonymousGTID",
	EventTypePreviousGTIDs:     "previousGTID",
	EventTypePartialUpdateRows: "partialUpdateRows",
}

func (t EventType) String() string {
	if s, ok := eventTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("0x%02x", uint8(t))
}

// RowEventKind classifies a row-level event independent of the wire version
// (v0/v1/v2) that carried it.
type RowEventKind int

const (
	RowInsert RowEventKind = iota
	RowUpdate
	RowDelete
	RowPartialUpdate
)

// RowKind reports whether t is a row-level event, and if so which kind.
func (t EventType) RowKind() (RowEventKind, bool) {
	switch t {
	case EventTypeWriteRowsV0, EventTypeWriteRowsV1, EventTypeWriteRowsV2:
		return RowInsert, true
	case EventTypeUpdateRowsV0, EventTypeUpdateRowsV1, EventTypeUpdateRowsV2:
		return RowUpdate, true
	case EventTypeDeleteRowsV0, EventTypeDeleteRowsV1, EventTypeDeleteRowsV2:
		return RowDelete, true
	case EventTypePartialUpdateRows:
		return RowPartialUpdate, true
	}
	return 0, false
}

// EventHeader is the fixed-layout prefix of every binlog event.
//
// https://dev.mysql.com/doc/internals/en/binlog-event-header.html
type EventHeader struct {
	Timestamp uint32
	EventType EventType
	ServerID  uint32
	EventSize uint32
	NextPos   uint32
	Flags     uint16
}

func decodeEventHeader(r *wireio.Reader) (EventHeader, error) {
	var h EventHeader
	h.Timestamp = r.Int4()
	h.EventType = EventType(r.Int1())
	h.ServerID = r.Int4()
	h.EventSize = r.Int4()
	h.NextPos = r.Int4()
	h.Flags = r.Int2()
	return h, r.Err
}
