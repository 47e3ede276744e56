// Package mysqlconn implements the client half of the MySQL connection and
// binary-log replication protocols: the initial handshake, password
// authentication (native, clear-text, and caching_sha2/RSA), a handful of
// admin queries used to locate the replication position, and
// COM_BINLOG_DUMP / NextEvent streaming built on top of wireio and
// binlogdecode.
package mysqlconn

import "github.com/shopsync/catalogcdc/internal/wireio"

// Capability flags. The teacher's canonical generation (remote.go, auth.go,
// query.go) references these under the same camelCase names but never
// defines them anywhere in its tree; the values here are MySQL's documented
// ones.
//
// https://dev.mysql.com/doc/internals/en/capability-flags.html
const (
	capLongPassword   uint32 = 0x00000001
	capFoundRows      uint32 = 0x00000002
	capLongFlag       uint32 = 0x00000004
	capConnectWithDB  uint32 = 0x00000008
	capProtocol41     uint32 = 0x00000200
	capSSL            uint32 = 0x00000800
	capTransactions   uint32 = 0x00002000
	capSecureConnection uint32 = 0x00008000
	capPluginAuth     uint32 = 0x00080000
	capConnectAttrs   uint32 = 0x00100000
	capPluginAuthLenencClientData uint32 = 0x00200000
	capSessionTrack   uint32 = 0x00800000
	capDeprecateEOF   uint32 = 0x01000000
)

const maxPacketSize = wireio.MaxPacketSize

// handshake is the server's initial greeting, decoded before authentication.
//
// https://dev.mysql.com/doc/internals/en/connection-phase-packets.html#packet-Protocol::Handshake
type handshake struct {
	protocolVersion uint8
	serverVersion   string
	connectionID    uint32
	authPluginData  []byte

	capabilityFlags uint32
	characterSet    uint8
	statusFlags     uint16
	authPluginName  string
}

func (h *handshake) decode(r *wireio.Reader) error {
	h.protocolVersion = r.Int1()
	h.serverVersion = r.StringNull()
	h.connectionID = r.Int4()
	if h.protocolVersion == 9 {
		h.authPluginData = []byte(r.StringNull())
		return r.Err
	}

	h.authPluginData = r.Bytes(8)
	r.Skip(1) // filler
	h.capabilityFlags = uint32(r.Int2())
	if !r.More() {
		return r.Err
	}
	h.characterSet = r.Int1()
	h.statusFlags = r.Int2()
	h.capabilityFlags |= uint32(r.Int2()) << 16
	if r.Err != nil {
		return r.Err
	}

	var authPluginDataLength uint8
	if h.capabilityFlags&capPluginAuth != 0 {
		authPluginDataLength = r.Int1()
	} else {
		r.Skip(1)
	}
	r.Skip(10) // reserved

	if h.capabilityFlags&capSecureConnection != 0 {
		if authPluginDataLength > 8 && authPluginDataLength-8 > 13 {
			authPluginDataLength -= 8
		} else {
			authPluginDataLength = 13
		}
		h.authPluginData = append(h.authPluginData, r.Bytes(int(authPluginDataLength))...)
	}
	if h.capabilityFlags&capPluginAuth != 0 {
		h.authPluginName = r.StringNull()
	}
	return r.Err
}

// handshakeResponse41 is the client's reply to handshake, carrying the
// chosen auth plugin's response bytes.
//
// https://dev.mysql.com/doc/internals/en/connection-phase-packets.html#packet-Protocol::HandshakeResponse41
type handshakeResponse41 struct {
	capabilityFlags uint32
	maxPacketSize   uint32
	characterSet    uint8
	username        string
	authResponse    []byte
	database        string
	authPluginName  string
}

func (e handshakeResponse41) encode(w *wireio.Writer) {
	capabilities := e.capabilityFlags | capProtocol41
	if e.database != "" {
		capabilities |= capConnectWithDB
	}
	if e.authPluginName != "" {
		capabilities |= capPluginAuth
	}

	w.Int4(capabilities)
	w.Int4(e.maxPacketSize)
	w.Int1(e.characterSet)
	w.BytesN(make([]byte, 23)) // reserved
	w.StringNull(e.username)
	switch {
	case capabilities&capPluginAuthLenencClientData != 0:
		w.StringN(string(e.authResponse))
	case capabilities&capSecureConnection != 0:
		w.Int1(byte(len(e.authResponse)))
		w.BytesN(e.authResponse)
	default:
		w.BytesNull(e.authResponse)
	}
	if capabilities&capConnectWithDB != 0 {
		w.StringNull(e.database)
	}
	if capabilities&capPluginAuth != 0 {
		w.StringNull(e.authPluginName)
	}
}

// sslRequest requests a TLS upgrade before the rest of the handshake
// response is sent.
type sslRequest struct {
	capabilityFlags uint32
	maxPacketSize   uint32
	characterSet    uint8
}

func (e sslRequest) encode(w *wireio.Writer) {
	w.Int4(e.capabilityFlags | capProtocol41 | capSSL)
	w.Int4(e.maxPacketSize)
	w.Int1(e.characterSet)
	w.BytesN(make([]byte, 23))
}
