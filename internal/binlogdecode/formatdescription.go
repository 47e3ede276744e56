package binlogdecode

import (
	"strings"

	"github.com/shopsync/catalogcdc/internal/wireio"
)

// FormatDescriptionEvent is the first event of every binlog file; it carries
// the per-event-type post-header lengths needed to parse table-id width in
// row events.
//
// https://dev.mysql.com/doc/internals/en/format-description-event.html
type FormatDescriptionEvent struct {
	BinlogVersion          uint16
	ServerVersion          string
	CreateTimestamp        uint32
	EventHeaderLength      uint8
	EventTypeHeaderLengths []byte
}

func decodeFormatDescriptionEvent(r *wireio.Reader) (FormatDescriptionEvent, error) {
	var e FormatDescriptionEvent
	e.BinlogVersion = r.Int2()
	e.ServerVersion = r.String(50)
	if i := strings.IndexByte(e.ServerVersion, 0); i != -1 {
		e.ServerVersion = e.ServerVersion[:i]
	}
	e.CreateTimestamp = r.Int4()
	e.EventHeaderLength = r.Int1()
	e.EventTypeHeaderLengths = r.BytesEOF()
	return e, r.Err
}

// PostHeaderLength returns the post-header length the server advertised for
// typ, or def if typ wasn't covered by the format-description event. The
// lengths array starts at event type 1, so typ's entry is at index typ-1.
func (e FormatDescriptionEvent) PostHeaderLength(typ EventType, def int) int {
	if typ > 0 && len(e.EventTypeHeaderLengths) >= int(typ) {
		return int(e.EventTypeHeaderLengths[typ-1])
	}
	return def
}

// RotateInfo announces the binlog file and offset that follow it.
//
// https://dev.mysql.com/doc/internals/en/rotate-event.html
type RotateInfo struct {
	Position   uint64
	NextBinlog string
}

func decodeRotateEvent(r *wireio.Reader, fde FormatDescriptionEvent) (RotateInfo, error) {
	var e RotateInfo
	if fde.BinlogVersion > 1 {
		e.Position = r.Int8()
	}
	e.NextBinlog = r.StringEOF()
	return e, r.Err
}
