package wireio

import (
	"bytes"
	"testing"
)

func TestReader_FixedWidthInts(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{
		0x01,
		0x02, 0x00,
		0x03, 0x00, 0x00,
		0x04, 0x00, 0x00, 0x00,
	}))
	if got := r.Int1(); got != 1 {
		t.Fatalf("Int1: got %d", got)
	}
	if got := r.Int2(); got != 2 {
		t.Fatalf("Int2: got %d", got)
	}
	if got := r.Int3(); got != 3 {
		t.Fatalf("Int3: got %d", got)
	}
	if got := r.Int4(); got != 4 {
		t.Fatalf("Int4: got %d", got)
	}
	if r.Err != nil {
		t.Fatal(r.Err)
	}
}

func TestReader_IntN(t *testing.T) {
	cases := []struct {
		in   []byte
		want uint64
	}{
		{[]byte{0x05}, 5},
		{[]byte{0xfc, 0x00, 0x01}, 256},
		{[]byte{0xfd, 0x00, 0x00, 0x01}, 1 << 16},
		{[]byte{0xfe, 0, 0, 0, 0, 0, 0, 0, 1}, 1 << 56},
	}
	for _, c := range cases {
		r := NewReader(bytes.NewReader(c.in))
		if got := r.IntN(); got != c.want {
			t.Fatalf("IntN(%v): got %d, want %d", c.in, got, c.want)
		}
	}
}

func TestReader_StringNull(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte("catalog_product_entity\x00rest")))
	if got := r.StringNull(); got != "catalog_product_entity" {
		t.Fatalf("StringNull: got %q", got)
	}
	if got := r.StringEOF(); got != "rest" {
		t.Fatalf("StringEOF: got %q", got)
	}
}

func TestReader_StringN(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0x03, 'a', 'b', 'c'}))
	if got := r.StringN(); got != "abc" {
		t.Fatalf("StringN: got %q", got)
	}
}

func TestBitmap_IsSet(t *testing.T) {
	bm := Bitmap{0b00000101}
	if !bm.IsSet(0) || bm.IsSet(1) || !bm.IsSet(2) {
		t.Fatal("unexpected bit pattern")
	}
	if bm.PopCount(3) != 2 {
		t.Fatalf("PopCount: got %d", bm.PopCount(3))
	}
}

func TestBitmapSize(t *testing.T) {
	cases := map[uint64]int{0: 0, 1: 1, 8: 1, 9: 2, 16: 2, 17: 3}
	for n, want := range cases {
		if got := BitmapSize(n); got != want {
			t.Fatalf("BitmapSize(%d): got %d, want %d", n, got, want)
		}
	}
}
