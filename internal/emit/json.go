package emit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/shopsync/catalogcdc/internal/aggregate"
	"github.com/shopsync/catalogcdc/internal/cdcerr"
)

// JSONEmitter writes one line-delimited JSON object per aggregate.ChangeAggregate
// to w, per spec §4.E.
type JSONEmitter struct {
	w io.Writer
}

// NewJSONEmitter returns an emitter writing newline-terminated JSON objects
// to w.
func NewJSONEmitter(w io.Writer) *JSONEmitter {
	return &JSONEmitter{w: w}
}

// Emit writes one JSON line for agg. Satisfies aggregate.Emitter. Encode and
// write failures are both reported as cdcerr.OutputEncoding, matching
// MsgpackEmitter.Emit's error kind for the same failure class.
func (e *JSONEmitter) Emit(agg *aggregate.ChangeAggregate) error {
	line, err := MarshalJSON(agg)
	if err != nil {
		return cdcerr.NewOutputEncoding(err)
	}
	line = append(line, '\n')
	if _, err := e.w.Write(line); err != nil {
		return cdcerr.NewOutputEncoding(err)
	}
	return nil
}

// jsonMetadata is {timestamp, file, position}.
type jsonMetadata struct {
	Timestamp uint64 `json:"timestamp"`
	File      string `json:"file"`
	Position  uint32 `json:"position"`
}

// MarshalJSON renders agg as the single JSON object of spec §4.E: entity,
// metadata, global, scoped, and attribute sections. Exported so callers
// (and tests) can check the encoding independent of where it's written.
func MarshalJSON(agg *aggregate.ChangeAggregate) ([]byte, error) {
	p := buildPlan(agg)

	var buf bytes.Buffer
	buf.WriteByte('{')

	buf.WriteString(`"entity":`)
	if err := writeJSONValue(&buf, agg.EntityKind.String()); err != nil {
		return nil, err
	}
	buf.WriteByte(',')

	buf.WriteString(`"metadata":`)
	if err := writeJSONValue(&buf, jsonMetadata{
		Timestamp: p.metadata.Timestamp,
		File:      p.metadata.Position.File,
		Position:  p.metadata.Position.Offset,
	}); err != nil {
		return nil, err
	}
	buf.WriteByte(',')

	buf.WriteString(`"global":{`)
	for i, g := range p.global {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKeyAndValueList(&buf, g.name, g.list); err != nil {
			return nil, err
		}
	}
	buf.WriteString("},")

	buf.WriteString(`"scoped":{`)
	names := mergeScopedNames(p.scopedInt, p.scopedStr)
	for i, name := range names {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(&buf, name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		buf.WriteByte('{')
		first := true
		for _, s := range p.scopedInt {
			if s.name != name {
				continue
			}
			if !first {
				buf.WriteByte(',')
			}
			first = false
			if err := writeKeyAndValueList(&buf, strconv.FormatUint(s.scope, 10), s.list); err != nil {
				return nil, err
			}
		}
		for _, s := range p.scopedStr {
			if s.name != name {
				continue
			}
			if !first {
				buf.WriteByte(',')
			}
			first = false
			if err := writeKeyAndValueList(&buf, s.scope, s.list); err != nil {
				return nil, err
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteString("},")

	buf.WriteString(`"attribute":{`)
	for i, a := range p.attribute {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKeyAndValueList(&buf, strconv.FormatUint(a.attributeID, 10), a.list); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func mergeScopedNames(ints []scopedIntEntry, strs []scopedStrEntry) []string {
	seen := make(map[string]bool)
	var names []string
	for _, s := range ints {
		if !seen[s.name] {
			seen[s.name] = true
			names = append(names, s.name)
		}
	}
	for _, s := range strs {
		if !seen[s.name] {
			seen[s.name] = true
			names = append(names, s.name)
		}
	}
	return names
}

func writeKeyAndValueList(buf *bytes.Buffer, key string, list idList) error {
	if err := writeJSONString(buf, key); err != nil {
		return err
	}
	buf.WriteByte(':')
	if list.Strs != nil {
		return writeJSONValue(buf, list.Strs)
	}
	return writeJSONValue(buf, list.Ints)
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	return writeJSONValue(buf, s)
}

func writeJSONValue(buf *bytes.Buffer, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("emit: encoding JSON value: %w", err)
	}
	buf.Write(b)
	return nil
}
