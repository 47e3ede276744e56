package mysqlconn

import (
	"errors"
	"fmt"

	"github.com/shopsync/catalogcdc/internal/wireio"
)

const (
	okMarker  = 0x00
	eofMarker = 0xfe
	errMarker = 0xff
)

// okPacket is the generic command-success response.
//
// https://dev.mysql.com/doc/internals/en/packet-OK_Packet.html
type okPacket struct {
	affectedRows uint64
	lastInsertID uint64
	statusFlags  uint16
	warnings     uint16
}

func (p *okPacket) decode(r *wireio.Reader, capabilities uint32) error {
	header := r.Int1()
	if r.Err != nil {
		return r.Err
	}
	if header != okMarker {
		return fmt.Errorf("mysqlconn: okPacket header is 0x%02x", header)
	}
	p.affectedRows = r.IntN()
	p.lastInsertID = r.IntN()
	if capabilities&(capProtocol41|capTransactions) != 0 {
		p.statusFlags = r.Int2()
		p.warnings = r.Int2()
	}
	return r.Err
}

// errPacket is the generic command-failure response.
//
// https://dev.mysql.com/doc/internals/en/packet-ERR_Packet.html
type errPacket struct {
	errorCode    uint16
	sqlState     string
	errorMessage string
}

func (p *errPacket) decode(r *wireio.Reader, capabilities uint32) error {
	header := r.Int1()
	if r.Err != nil {
		return r.Err
	}
	if header != errMarker {
		return fmt.Errorf("mysqlconn: errPacket header is 0x%02x", header)
	}
	p.errorCode = r.Int2()
	if capabilities&capProtocol41 != 0 {
		r.Skip(1) // sql-state marker '#'
		p.sqlState = r.String(5)
	}
	p.errorMessage = r.StringEOF()
	return r.Err
}

// eofPacket marks the end of a result-set section.
//
// https://dev.mysql.com/doc/internals/en/packet-EOF_Packet.html
type eofPacket struct {
	warnings    uint16
	statusFlags uint16
}

func (p *eofPacket) decode(r *wireio.Reader, capabilities uint32) error {
	header := r.Int1()
	if r.Err != nil {
		return r.Err
	}
	if header != eofMarker {
		return fmt.Errorf("mysqlconn: eofPacket header is 0x%02x", header)
	}
	if capabilities&capProtocol41 != 0 {
		p.warnings = r.Int2()
		p.statusFlags = r.Int2()
	}
	return r.Err
}

// columnDef is one column's metadata in a text result-set.
//
// https://dev.mysql.com/doc/internals/en/com-query-response.html#column-definition
type columnDef struct {
	name string
}

func (cd *columnDef) decode(r *wireio.Reader, capabilities uint32) error {
	if capabilities&capProtocol41 == 0 {
		return errors.New("mysqlconn: pre-4.1 column definitions not supported")
	}
	_ = r.StringN() // catalog
	_ = r.StringN() // schema
	_ = r.StringN() // table
	_ = r.StringN() // org_table
	cd.name = r.StringN()
	_ = r.StringN() // org_name
	_ = r.IntN()    // length of fixed fields, always 0x0c
	r.Skip(2)       // charset
	r.Skip(4)       // column length
	r.Skip(1)       // type
	r.Skip(2)       // flags
	r.Skip(1)       // decimals
	r.Skip(2)       // filler
	return r.Err
}

// queryRows runs q as a text query and returns its rows as one string slice
// per row (NULL becomes ""); admin queries (SHOW MASTER STATUS, SELECT
// @@server_id, ...) never need richer typing than that.
func queryRows(conn *Conn, q string) ([][]string, error) {
	conn.seq = 0
	w := wireio.NewWriter()
	w.Int1(0x03) // COM_QUERY
	w.String(q)
	if err := wireio.NewPacketWriter(conn.netconn, &conn.seq).WritePacket(w.Bytes()); err != nil {
		return nil, err
	}

	pr := wireio.NewPacketReader(conn.netconn, &conn.seq)
	r := wireio.NewReader(pr)
	b, err := r.Peek()
	if err != nil {
		return nil, err
	}
	switch b {
	case okMarker:
		return nil, nil
	case errMarker:
		var ep errPacket
		if err := ep.decode(r, conn.capabilities()); err != nil {
			return nil, err
		}
		return nil, errors.New(ep.errorMessage)
	}

	ncol := r.IntN()
	if r.Err != nil {
		return nil, r.Err
	}
	cols := make([]columnDef, ncol)
	for i := range cols {
		pr.Reset()
		r = wireio.NewReader(pr)
		if err := cols[i].decode(r, conn.capabilities()); err != nil {
			return nil, err
		}
	}
	pr.Reset()
	r = wireio.NewReader(pr)
	var eof eofPacket
	if err := eof.decode(r, conn.capabilities()); err != nil {
		return nil, err
	}

	var rows [][]string
	for {
		pr.Reset()
		r = wireio.NewReader(pr)
		b, err := r.Peek()
		if err != nil {
			return nil, err
		}
		if b == eofMarker {
			var eof eofPacket
			if err := eof.decode(r, conn.capabilities()); err != nil {
				return nil, err
			}
			return rows, nil
		}
		if b == errMarker {
			var ep errPacket
			if err := ep.decode(r, conn.capabilities()); err != nil {
				return nil, err
			}
			return nil, errors.New(ep.errorMessage)
		}
		row := make([]string, len(cols))
		for i := range row {
			peeked, err := r.Peek()
			if err != nil {
				return nil, err
			}
			if peeked == 0xfb {
				r.Skip(1)
				row[i] = ""
				continue
			}
			row[i] = r.StringN()
			if r.Err != nil {
				return nil, r.Err
			}
		}
		rows = append(rows, row)
	}
}
