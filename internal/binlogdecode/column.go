package binlogdecode

import (
	"encoding/binary"
	"fmt"

	"github.com/shopsync/catalogcdc/internal/wireio"
)

// ColumnType is a MySQL wire-protocol column type tag as carried in a
// table-map event.
//
// https://dev.mysql.com/doc/internals/en/com-query-response.html#packet-Protocol::ColumnType
type ColumnType uint8

const (
	TypeDecimal    ColumnType = 0x00
	TypeTiny       ColumnType = 0x01
	TypeShort      ColumnType = 0x02
	TypeLong       ColumnType = 0x03
	TypeFloat      ColumnType = 0x04
	TypeDouble     ColumnType = 0x05
	TypeNull       ColumnType = 0x06
	TypeTimestamp  ColumnType = 0x07
	TypeLongLong   ColumnType = 0x08
	TypeInt24      ColumnType = 0x09
	TypeDate       ColumnType = 0x0a
	TypeTime       ColumnType = 0x0b
	TypeDateTime   ColumnType = 0x0c
	TypeYear       ColumnType = 0x0d
	TypeNewDate    ColumnType = 0x0e
	TypeVarchar    ColumnType = 0x0f
	TypeBit        ColumnType = 0x10
	TypeTimestamp2 ColumnType = 0x11
	TypeDateTime2  ColumnType = 0x12
	TypeTime2      ColumnType = 0x13
	TypeJSON       ColumnType = 0xf5
	TypeNewDecimal ColumnType = 0xf6
	TypeEnum       ColumnType = 0xf7
	TypeSet        ColumnType = 0xf8
	TypeTinyBlob   ColumnType = 0xf9
	TypeMediumBlob ColumnType = 0xfa
	TypeLongBlob   ColumnType = 0xfb
	TypeBlob       ColumnType = 0xfc
	TypeVarString  ColumnType = 0xfd
	TypeString     ColumnType = 0xfe
	TypeGeometry   ColumnType = 0xff
)

func (t ColumnType) isNumeric() bool {
	switch t {
	case TypeTiny, TypeShort, TypeInt24, TypeLong, TypeLongLong,
		TypeFloat, TypeDouble, TypeDecimal, TypeNewDecimal:
		return true
	}
	return false
}

func (t ColumnType) isString() bool {
	switch t {
	case TypeVarchar, TypeBlob, TypeVarString, TypeString:
		return true
	}
	return false
}

func (t ColumnType) isEnumSet() bool {
	return t == TypeEnum || t == TypeSet
}

func (t ColumnType) String() string {
	return fmt.Sprintf("0x%02x", uint8(t))
}

// Column is one column's static metadata as announced by a table-map event.
type Column struct {
	Ordinal  int
	Type     ColumnType
	Nullable bool
	Unsigned bool
	Meta     uint16
	Charset  uint64

	// Populated only when binlog_row_metadata=FULL.
	Name   string
	Values []string
}

// TableDescriptor is the binary-table descriptor of §3: the column layout
// installed by a table-map event, keyed by the server-assigned table-id.
type TableDescriptor struct {
	TableID      uint64
	DatabaseName string
	TableName    string
	Columns      []Column
	IsUnsigned   []bool
	IsJSON       []bool
}

// decodeTableDescriptor parses a TABLE_MAP_EVENT body, stripping tablePrefix
// from the left of the table name if present.
func decodeTableDescriptor(r *wireio.Reader, tablePrefix string) (*TableDescriptor, error) {
	td := &TableDescriptor{}
	td.TableID = r.Int6()
	_ = r.Int2() // flags
	_ = r.Int1() // schema name length
	td.DatabaseName = r.StringNull()
	_ = r.Int1() // table name length
	tableName := r.StringNull()
	td.TableName = stripPrefix(tableName, tablePrefix)
	numCol := r.IntN()
	if r.Err != nil {
		return nil, r.Err
	}
	td.Columns = make([]Column, numCol)
	for i := range td.Columns {
		td.Columns[i].Ordinal = i
		td.Columns[i].Type = ColumnType(r.Int1())
	}

	_ = r.IntN() // meta block length
	for i := range td.Columns {
		switch td.Columns[i].Type {
		case TypeBlob, TypeDouble, TypeFloat, TypeGeometry, TypeJSON,
			TypeTime2, TypeDateTime2, TypeTimestamp2:
			td.Columns[i].Meta = uint16(r.Int1())
		case TypeVarchar, TypeBit, TypeDecimal, TypeNewDecimal,
			TypeSet, TypeEnum, TypeVarString:
			td.Columns[i].Meta = r.Int2()
		case TypeString:
			meta := r.Bytes(2)
			td.Columns[i].Meta = binary.BigEndian.Uint16(meta)
			if td.Columns[i].Meta >= 256 {
				b0, b1 := meta[0], meta[1]
				if b0&0x30 != 0x30 {
					td.Columns[i].Meta = uint16(b1) | (uint16((b0&0x30)^0x30) << 4)
					td.Columns[i].Type = ColumnType(b0 | 0x30)
				} else {
					td.Columns[i].Meta = uint16(b1)
					td.Columns[i].Type = ColumnType(b0)
				}
			}
		}
	}

	nullable := r.NullBitmap(numCol)
	if r.Err != nil {
		return nil, r.Err
	}
	for i := range td.Columns {
		td.Columns[i].Nullable = nullable.IsSet(i)
	}

	// Extended table metadata. https://dev.mysql.com/worklog/task/?id=4618
	for r.More() {
		typ := r.Int1()
		size := int(r.IntN())
		if r.Err != nil {
			break
		}
		switch typ {
		case 1: // UNSIGNED flag of numeric columns
			unsigned := r.Bytes(size)
			inum := 0
			for i := range td.Columns {
				if td.Columns[i].Type.isNumeric() {
					td.Columns[i].Unsigned = unsigned[inum/8]&(1<<uint(7-inum%8)) != 0
					inum++
				}
			}
		case 2: // default charset of string columns
			if err := decodeDefaultCharset(r, td, size, ColumnType.isString); err != nil {
				return nil, err
			}
		case 3: // charset of string columns
			if err := decodeColumnCharset(r, td, size, ColumnType.isString); err != nil {
				return nil, err
			}
		case 4: // column name
			for i := range td.Columns {
				td.Columns[i].Name = r.StringN()
			}
		case 5: // SET member values
			if err := decodeEnumSetValues(r, td, size, TypeSet); err != nil {
				return nil, err
			}
		case 6: // ENUM member values
			if err := decodeEnumSetValues(r, td, size, TypeEnum); err != nil {
				return nil, err
			}
		case 10: // enum/set default charset
			if err := decodeDefaultCharset(r, td, size, ColumnType.isEnumSet); err != nil {
				return nil, err
			}
		case 11: // enum/set charset
			if err := decodeColumnCharset(r, td, size, ColumnType.isEnumSet); err != nil {
				return nil, err
			}
		default:
			// 7 geometry type, 8/9 primary key (with/without prefix), 12 visibility
			r.Skip(size)
		}
	}
	if r.Err != nil {
		return nil, r.Err
	}

	td.IsUnsigned = make([]bool, len(td.Columns))
	td.IsJSON = make([]bool, len(td.Columns))
	for i, c := range td.Columns {
		td.IsUnsigned[i] = c.Unsigned
		td.IsJSON[i] = c.Type == TypeJSON
	}
	return td, nil
}

func stripPrefix(name, prefix string) string {
	if prefix != "" && len(name) > len(prefix) && name[:len(prefix)] == prefix {
		return name[len(prefix):]
	}
	return name
}

func decodeDefaultCharset(r *wireio.Reader, td *TableDescriptor, size int, f func(ColumnType) bool) error {
	defCharset := r.IntN()
	size -= intNSize(defCharset)
	if r.Err != nil {
		return r.Err
	}
	for size > 0 {
		ord := r.IntN()
		size -= intNSize(ord)
		if r.Err != nil {
			return r.Err
		}
		charset := r.IntN()
		size -= intNSize(charset)
		td.Columns[ord].Charset = charset
		if r.Err != nil {
			return r.Err
		}
	}
	if size != 0 {
		return fmt.Errorf("binlogdecode: invalid default-charset metadata")
	}
	for i := range td.Columns {
		if f(td.Columns[i].Type) && td.Columns[i].Charset == 0 {
			td.Columns[i].Charset = defCharset
		}
	}
	return nil
}

func decodeColumnCharset(r *wireio.Reader, td *TableDescriptor, size int, f func(ColumnType) bool) error {
	for i := range td.Columns {
		if f(td.Columns[i].Type) {
			charset := r.IntN()
			td.Columns[i].Charset = charset
			size -= intNSize(charset)
			if r.Err != nil {
				return r.Err
			}
		}
	}
	if size != 0 {
		return fmt.Errorf("binlogdecode: invalid column-charset metadata")
	}
	return nil
}

func decodeEnumSetValues(r *wireio.Reader, td *TableDescriptor, size int, typ ColumnType) error {
	icol := 0
	for size > 0 {
		nVal := r.IntN()
		size -= intNSize(nVal)
		if r.Err != nil {
			return r.Err
		}
		vals := make([]string, nVal)
		for i := range vals {
			l := r.IntN()
			size -= intNSize(l)
			if r.Err != nil {
				return r.Err
			}
			vals[i] = r.String(int(l))
			size -= int(l)
			if r.Err != nil {
				return r.Err
			}
		}
		for td.Columns[icol].Type != typ {
			icol++
		}
		td.Columns[icol].Values = vals
		icol++
	}
	if size != 0 {
		return fmt.Errorf("binlogdecode: invalid enum/set values")
	}
	return r.Err
}

// intNSize reports how many bytes a length-encoded integer of this value
// would have occupied on the wire, for running-size bookkeeping.
func intNSize(v uint64) int {
	switch {
	case v < 251:
		return 1
	case v < 1<<16:
		return 3
	case v < 1<<24:
		return 4
	default:
		return 9
	}
}
