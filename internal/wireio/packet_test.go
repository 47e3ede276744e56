package wireio

import (
	"bytes"
	"io"
	"io/ioutil"
	"testing"
)

func newPacket(size int, seq byte) (packet, payload []byte) {
	b := make([]byte, HeaderSize+MaxPacketSize)
	b[0] = byte(size)
	b[1] = byte(size >> 8)
	b[2] = byte(size >> 16)
	b[3] = seq
	b[4] = 2*seq + 1
	b[len(b)-1] = 2*seq + 2
	return b, b[4 : 4+size]
}

func TestPacketReader_LessThanMaxPacketSize(t *testing.T) {
	first, firstPayload := newPacket(10, 0)
	last, _ := newPacket(0, 1)
	var seq uint8
	r := NewPacketReader(io.MultiReader(
		bytes.NewReader(first),
		bytes.NewReader(last),
		bytes.NewReader(make([]byte, 10)),
	), &seq)
	got, err := ioutil.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, firstPayload) {
		t.Log(" got: ", got)
		t.Log("want: ", firstPayload)
		t.Fatal("payload did not match")
	}
}

func TestPacketReader_MultipleOfMaxPayloadSize(t *testing.T) {
	first, firstPayload := newPacket(MaxPacketSize, 0)
	second, secondPayload := newPacket(MaxPacketSize, 1)
	last, _ := newPacket(0, 2)
	var seq uint8
	r := NewPacketReader(io.MultiReader(
		bytes.NewReader(first),
		bytes.NewReader(second),
		bytes.NewReader(last),
		bytes.NewReader(make([]byte, 10)),
	), &seq)
	got, err := ioutil.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got[:MaxPacketSize], firstPayload) {
		t.Fatal("first payload did not match")
	}
	if !bytes.Equal(got[MaxPacketSize:], secondPayload) {
		t.Fatal("second payload did not match")
	}
}

func TestPacketReader_SequenceMismatch(t *testing.T) {
	first, _ := newPacket(10, 5)
	var seq uint8
	r := NewPacketReader(bytes.NewReader(first), &seq)
	_, err := ioutil.ReadAll(r)
	if err == nil {
		t.Fatal("expected sequence mismatch error")
	}
}

func TestPacketWriter_RoundTrip(t *testing.T) {
	payload := []byte("select @@server_id")
	var buf bytes.Buffer
	var wseq uint8
	w := NewPacketWriter(&buf, &wseq)
	if err := w.WritePacket(payload); err != nil {
		t.Fatal(err)
	}

	var rseq uint8
	r := NewPacketReader(&buf, &rseq)
	got, err := ioutil.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestPacketWriter_ExactMultipleEmitsTrailer(t *testing.T) {
	payload := make([]byte, MaxPacketSize)
	var buf bytes.Buffer
	var seq uint8
	w := NewPacketWriter(&buf, &seq)
	if err := w.WritePacket(payload); err != nil {
		t.Fatal(err)
	}
	if seq != 2 {
		t.Fatalf("expected trailing zero-length packet to bump sequence to 2, got %d", seq)
	}
}
