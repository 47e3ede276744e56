package binlogdecode

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/shopsync/catalogcdc/internal/wireio"
)

// decodeValue reads one column value off r according to col's declared wire
// type and metadata.
func (col Column) decodeValue(r *wireio.Reader) (interface{}, error) {
	switch col.Type {
	case TypeTiny:
		if col.Unsigned {
			return r.Int1(), r.Err
		}
		return int8(r.Int1()), r.Err
	case TypeShort:
		if col.Unsigned {
			return r.Int2(), r.Err
		}
		return int16(r.Int2()), r.Err
	case TypeInt24:
		v := r.Int3()
		if col.Unsigned {
			return v, r.Err
		}
		if v&0x00800000 != 0 {
			v |= 0xFF000000
		}
		return int32(v), r.Err
	case TypeLong:
		if col.Unsigned {
			return r.Int4(), r.Err
		}
		return int32(r.Int4()), r.Err
	case TypeLongLong:
		if col.Unsigned {
			return r.Int8(), r.Err
		}
		return int64(r.Int8()), r.Err
	case TypeNewDecimal:
		precision := int(byte(col.Meta))
		scale := int(byte(col.Meta >> 8))
		buf := r.Bytes(decimalSize(precision, scale))
		if r.Err != nil {
			return nil, r.Err
		}
		return decodeDecimal(buf, precision, scale)
	case TypeFloat:
		return math.Float32frombits(r.Int4()), r.Err
	case TypeDouble:
		return math.Float64frombits(r.Int8()), r.Err
	case TypeVarchar, TypeString:
		var size int
		if col.Meta < 256 {
			size = int(r.Int1())
		} else {
			size = int(r.Int2())
		}
		return r.String(size), r.Err
	case TypeEnum:
		switch col.Meta {
		case 1:
			return Enum{uint16(r.Int1()), col.Values}, r.Err
		case 2:
			return Enum{r.Int2(), col.Values}, r.Err
		default:
			return nil, fmt.Errorf("binlogdecode: invalid enum length %d", col.Meta)
		}
	case TypeSet:
		n := col.Meta
		if n == 0 || n > 8 {
			return nil, fmt.Errorf("binlogdecode: invalid set width %d", n)
		}
		return Set{r.IntFixed(int(n)), col.Values}, r.Err
	case TypeBit:
		nbits := ((col.Meta >> 8) * 8) + (col.Meta & 0xFF)
		buf := r.Bytes(int(nbits+7) / 8)
		return bigEndian(buf), r.Err
	case TypeBlob, TypeGeometry:
		size := r.IntFixed(int(col.Meta))
		v := r.Bytes(int(size))
		if col.Charset == 0 || col.Charset == 63 {
			return v, r.Err
		}
		return string(v), r.Err
	case TypeJSON:
		size := r.IntFixed(int(col.Meta))
		buf := r.Bytes(int(size))
		if r.Err != nil {
			return nil, r.Err
		}
		return decodeJSONValue(buf)
	case TypeDate:
		v := r.Int3()
		var year, month, day uint32
		if v != 0 {
			year, month, day = v/(16*32), v/32%16, v%32
		}
		return time.Date(int(year), time.Month(month), int(day), 0, 0, 0, 0, time.UTC), r.Err
	case TypeDateTime2:
		buf := r.Bytes(5)
		if r.Err != nil {
			return nil, r.Err
		}
		dt := bigEndian(buf)
		ym := bitSlice(dt, 40, 1, 17)
		year, month := ym/13, ym%13
		day := bitSlice(dt, 40, 18, 5)
		hour := bitSlice(dt, 40, 23, 5)
		min := bitSlice(dt, 40, 28, 6)
		sec := bitSlice(dt, 40, 34, 6)

		frac, err := fractionalSeconds(col.Meta, r)
		if err != nil {
			return nil, err
		}
		return time.Date(year, time.Month(month), day, hour, min, sec, frac*1000, time.UTC), r.Err
	case TypeTimestamp2:
		buf := r.Bytes(4)
		if r.Err != nil {
			return nil, r.Err
		}
		sec := binary.BigEndian.Uint32(buf)

		frac, err := fractionalSeconds(col.Meta, r)
		if err != nil {
			return nil, err
		}
		return time.Unix(int64(sec), int64(frac)*1000), r.Err
	case TypeTime2:
		buf := r.Bytes(3)
		if r.Err != nil {
			return nil, r.Err
		}
		t := bigEndian(buf)
		sign := bitSlice(t, 24, 0, 1)
		hour := bitSlice(t, 24, 2, 10)
		min := bitSlice(t, 24, 12, 6)
		sec := bitSlice(t, 24, 18, 6)
		var frac int
		var err error
		if sign == 0 {
			hour = ^hour & mask(10)
			hour = hour & unsetSignMask(10)
			min = ^min & mask(6)
			min = min & unsetSignMask(6)
			sec = ^sec & mask(6)
			sec = sec & unsetSignMask(6)

			frac, err = fractionalSecondsNegative(col.Meta, r)
			if err != nil {
				return nil, err
			}
			if frac == 0 && sec < 59 {
				sec++
			}
		} else {
			frac, err = fractionalSeconds(col.Meta, r)
			if err != nil {
				return nil, err
			}
		}
		v := time.Duration(hour)*time.Hour +
			time.Duration(min)*time.Minute +
			time.Duration(sec)*time.Second +
			time.Duration(frac)*time.Microsecond
		if sign == 0 {
			v = -v
		}
		return v, r.Err
	case TypeYear:
		v := int(r.Int1())
		if v == 0 {
			return 0, r.Err
		}
		return 1900 + v, r.Err
	}
	return nil, fmt.Errorf("binlogdecode: decode of mysql type %s is not implemented", col.Type)
}

func bitSlice(v uint64, bits, off, length int) int {
	v >>= uint(bits - (off + length))
	return int(v & ((1 << uint(length)) - 1))
}

func fractionalSeconds(meta uint16, r *wireio.Reader) (int, error) {
	n := (meta + 1) / 2
	v := bigEndian(r.Bytes(int(n)))
	return int(v * uint64(math.Pow(100, float64(3-n)))), r.Err
}

func fractionalSecondsNegative(meta uint16, r *wireio.Reader) (int, error) {
	n := (meta + 1) / 2
	v := int(bigEndian(r.Bytes(int(n))))
	if v != 0 {
		bits := int(n * 8)
		v = ^v & mask(bits)
		v = (v & unsetSignMask(bits)) + 1
	}
	return v * int(math.Pow(100, float64(3-n))), r.Err
}

func mask(bits int) int {
	return (1 << uint(bits)) - 1
}

func unsetSignMask(bits int) int {
	return ^(1 << uint(bits))
}

func bigEndian(buf []byte) uint64 {
	var num uint64
	for i, b := range buf {
		num |= uint64(b) << (uint(len(buf)-i-1) * 8)
	}
	return num
}

// Decimal digit-compression, straight from MySQL's NEWDECIMAL wire format.

const digitsPerInteger = 9

var compressedBytes = []int{0, 1, 1, 2, 2, 3, 3, 4, 4, 4}

func decodeDecimalDecompressValue(compIndex int, data []byte, mask uint8) (size int, value uint32) {
	size = compressedBytes[compIndex]
	buf := make([]byte, size)
	for i := 0; i < size; i++ {
		buf[i] = data[i] ^ mask
	}
	value = uint32(bigEndian(buf))
	return
}

func decimalSize(precision, scale int) int {
	integral := precision - scale
	uncompIntegral := integral / digitsPerInteger
	uncompFractional := scale / digitsPerInteger
	compIntegral := integral - (uncompIntegral * digitsPerInteger)
	compFractional := scale - (uncompFractional * digitsPerInteger)

	return uncompIntegral*4 + compressedBytes[compIntegral] +
		uncompFractional*4 + compressedBytes[compFractional]
}

func decodeDecimal(data []byte, precision, scale int) (Decimal, error) {
	integral := precision - scale
	uncompIntegral := integral / digitsPerInteger
	uncompFractional := scale / digitsPerInteger
	compIntegral := integral - (uncompIntegral * digitsPerInteger)
	compFractional := scale - (uncompFractional * digitsPerInteger)

	binSize := uncompIntegral*4 + compressedBytes[compIntegral] +
		uncompFractional*4 + compressedBytes[compFractional]

	buf := make([]byte, binSize)
	copy(buf, data[:binSize])
	data = buf

	value := uint32(data[0])
	var res bytes.Buffer
	var signMask uint32
	if value&0x80 == 0 {
		signMask = uint32((1 << 32) - 1)
		res.WriteString("-")
	}

	data[0] ^= 0x80

	pos, value := decodeDecimalDecompressValue(compIntegral, data, uint8(signMask))
	res.WriteString(fmt.Sprintf("%d", value))

	for i := 0; i < uncompIntegral; i++ {
		value = binary.BigEndian.Uint32(data[pos:]) ^ signMask
		pos += 4
		res.WriteString(fmt.Sprintf("%09d", value))
	}

	res.WriteString(".")

	for i := 0; i < uncompFractional; i++ {
		value = binary.BigEndian.Uint32(data[pos:]) ^ signMask
		pos += 4
		res.WriteString(fmt.Sprintf("%09d", value))
	}

	if size, value := decodeDecimalDecompressValue(compFractional, data[pos:], uint8(signMask)); size > 0 {
		res.WriteString(fmt.Sprintf("%0*d", compFractional, value))
		pos += size
	}

	s := res.String()
	res.Reset()
	if s[0] == '-' {
		res.WriteString("-")
		s = s[1:]
	}
	for len(s) > 1 && s[0] == '0' && s[1] != '.' {
		s = s[1:]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	res.WriteString(s)

	return Decimal(res.String()), nil
}

// Enum is the value of an ENUM column.
//
// https://dev.mysql.com/doc/refman/8.0/en/enum.html
type Enum struct {
	Val    uint16
	Values []string
}

func (e Enum) String() string {
	if len(e.Values) > 0 {
		if e.Val == 0 {
			return ""
		}
		return e.Values[e.Val-1]
	}
	return fmt.Sprintf("%d", e.Val)
}

func (e Enum) MarshalJSON() ([]byte, error) {
	if len(e.Values) > 0 {
		return []byte(strconv.Quote(e.String())), nil
	}
	return []byte(e.String()), nil
}

// Set is the value of a SET column.
//
// https://dev.mysql.com/doc/refman/8.0/en/set.html
type Set struct {
	Val    uint64
	Values []string
}

// Members returns the set member names whose bit is set.
func (s Set) Members() []string {
	var m []string
	if len(s.Values) > 0 {
		for i, val := range s.Values {
			if s.Val&(1<<uint(i)) != 0 {
				m = append(m, val)
			}
		}
	}
	return m
}

func (s Set) String() string {
	if len(s.Values) > 0 {
		if s.Val == 0 {
			return ""
		}
		var buf strings.Builder
		for i, val := range s.Values {
			if s.Val&(1<<uint(i)) != 0 {
				if buf.Len() > 0 {
					buf.WriteByte(',')
				}
				buf.WriteString(val)
			}
		}
		return buf.String()
	}
	return fmt.Sprintf("%d", s.Val)
}

func (s Set) MarshalJSON() ([]byte, error) {
	if len(s.Values) > 0 {
		var buf bytes.Buffer
		err := json.NewEncoder(&buf).Encode(s.Members())
		return buf.Bytes(), err
	}
	return []byte(s.String()), nil
}

// Decimal is a MySQL DECIMAL/NUMERIC literal rendered as its exact base-10
// text (no float rounding).
//
// https://dev.mysql.com/doc/refman/8.0/en/fixed-point-types.html
type Decimal string

func (d Decimal) String() string { return string(d) }

func (d Decimal) Float64() (float64, error) {
	return strconv.ParseFloat(string(d), 64)
}

func (d Decimal) BigFloat() (*big.Float, error) {
	f, _, err := new(big.Float).Parse(string(d), 0)
	return f, err
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d), nil
}
