package emit

import (
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/shopsync/catalogcdc/internal/aggregate"
	"github.com/shopsync/catalogcdc/internal/cdcerr"
)

// Key discriminators for the MessagePack data-entry header, per spec §4.E.
const (
	discKey         = 1
	discKeyScopeInt = 2
	discKeyScopeStr = 3
	discAttribute   = 4
)

// MsgpackEmitter writes one framed MessagePack record per
// aggregate.ChangeAggregate to w: a fixed header followed by data entries,
// with no outer array, per spec §4.E.
type MsgpackEmitter struct {
	w io.Writer
}

// NewMsgpackEmitter returns an emitter writing MessagePack frames to w.
func NewMsgpackEmitter(w io.Writer) *MsgpackEmitter {
	return &MsgpackEmitter{w: w}
}

// Emit writes one MessagePack frame for agg. Satisfies aggregate.Emitter.
func (e *MsgpackEmitter) Emit(agg *aggregate.ChangeAggregate) error {
	if err := EncodeMsgpack(e.w, agg); err != nil {
		return cdcerr.NewOutputEncoding(err)
	}
	return nil
}

// EncodeMsgpack writes agg's §4.E MessagePack frame to w.
func EncodeMsgpack(w io.Writer, agg *aggregate.ChangeAggregate) error {
	p := buildPlan(agg)
	enc := msgpack.NewEncoder(w)

	if err := enc.EncodeUint(uint64(p.entity)); err != nil {
		return err
	}
	if err := enc.EncodeUint(p.metadata.Timestamp); err != nil {
		return err
	}
	if err := enc.EncodeString(p.metadata.Position.File); err != nil {
		return err
	}
	if err := enc.EncodeUint(uint64(p.metadata.Position.Offset)); err != nil {
		return err
	}
	if err := enc.EncodeUint(uint64(p.entryCount())); err != nil {
		return err
	}

	for _, g := range p.global {
		if err := enc.EncodeUint(discKey); err != nil {
			return err
		}
		if err := enc.EncodeString(g.name); err != nil {
			return err
		}
		if err := encodeValueList(enc, g.list); err != nil {
			return err
		}
	}
	for _, s := range p.scopedInt {
		if err := enc.EncodeUint(discKeyScopeInt); err != nil {
			return err
		}
		if err := enc.EncodeString(s.name); err != nil {
			return err
		}
		if err := enc.EncodeUint(s.scope); err != nil {
			return err
		}
		if err := encodeValueList(enc, s.list); err != nil {
			return err
		}
	}
	for _, s := range p.scopedStr {
		if err := enc.EncodeUint(discKeyScopeStr); err != nil {
			return err
		}
		if err := enc.EncodeString(s.name); err != nil {
			return err
		}
		if err := enc.EncodeString(s.scope); err != nil {
			return err
		}
		if err := encodeValueList(enc, s.list); err != nil {
			return err
		}
	}
	for _, a := range p.attribute {
		if err := enc.EncodeUint(discAttribute); err != nil {
			return err
		}
		if err := enc.EncodeUint(a.attributeID); err != nil {
			return err
		}
		if err := encodeValueList(enc, a.list); err != nil {
			return err
		}
	}
	return nil
}

func encodeValueList(enc *msgpack.Encoder, list idList) error {
	if list.Strs != nil {
		if err := enc.EncodeArrayLen(len(list.Strs)); err != nil {
			return err
		}
		for _, s := range list.Strs {
			if err := enc.EncodeString(s); err != nil {
				return err
			}
		}
		return nil
	}
	if err := enc.EncodeArrayLen(len(list.Ints)); err != nil {
		return err
	}
	for _, id := range list.Ints {
		if err := enc.EncodeUint(id); err != nil {
			return err
		}
	}
	return nil
}
