package mysqlconn

import (
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/shopsync/catalogcdc/internal/binlogdecode"
	"github.com/shopsync/catalogcdc/internal/wireio"
)

// ErrMalformedPacket is returned when a packet's leading byte matches none of
// OK/ERR/EOF/auth-switch markers where one of those is expected.
var ErrMalformedPacket = errors.New("mysqlconn: malformed packet")

// errNoMoreEvents is returned by NextEvent once the server's EOF packet
// signals the end of a zero-serverID (non-streaming) dump.
var errNoMoreEvents = io.EOF

// Conn is a client connection to a MySQL server, used first for a handful of
// admin queries (SHOW MASTER STATUS, @@server_id, version()) and then
// switched into binlog replication mode via Seek/NextEvent.
type Conn struct {
	netconn net.Conn
	seq     uint8
	hs      handshake

	checksumLen int // 4 when binlog_checksum=CRC32, else 0
	decoder     *binlogdecode.Decoder
	pr          *wireio.PacketReader
}

// Dial connects to address (host:port, or a unix socket path with network
// "unix") and completes the initial server handshake.
func Dial(network, address string) (*Conn, error) {
	nc, err := net.Dial(network, address)
	if err != nil {
		return nil, err
	}
	if tc, ok := nc.(*net.TCPConn); ok {
		if err := tc.SetKeepAlive(true); err != nil {
			_ = nc.Close()
			return nil, err
		}
	}
	c := &Conn{netconn: nc}
	r := wireio.NewReader(wireio.NewPacketReader(nc, &c.seq))
	if err := c.hs.decode(r); err != nil {
		_ = nc.Close()
		return nil, err
	}
	c.hs.capabilityFlags &^= capSessionTrack
	return c, nil
}

func (c *Conn) capabilities() uint32 { return c.hs.capabilityFlags }

// IsSSLSupported reports whether the server offered CLIENT_SSL in its
// handshake.
func (c *Conn) IsSSLSupported() bool {
	return c.hs.capabilityFlags&capSSL != 0
}

// UpgradeSSL switches the connection to TLS. Call before Authenticate. A nil
// rootCAs skips server certificate verification.
func (c *Conn) UpgradeSSL(rootCAs *x509.CertPool) error {
	if err := c.write(sslRequest{
		capabilityFlags: capLongFlag | capSecureConnection,
		maxPacketSize:   maxPacketSize,
		characterSet:    c.hs.characterSet,
	}); err != nil {
		return err
	}
	conf := &tls.Config{}
	if rootCAs != nil {
		conf.RootCAs = rootCAs
	} else {
		conf.InsecureSkipVerify = true
	}
	c.netconn = tls.Client(c.netconn, conf)
	return nil
}

func (c *Conn) write(event interface{ encode(w *wireio.Writer) }) error {
	w := wireio.NewWriter()
	event.encode(w)
	return wireio.NewPacketWriter(c.netconn, &c.seq).WritePacket(w.Bytes())
}

func (c *Conn) readOKErr() error {
	r := wireio.NewReader(wireio.NewPacketReader(c.netconn, &c.seq))
	b, err := r.Peek()
	if err != nil {
		return err
	}
	switch b {
	case okMarker:
		return r.Drain()
	case errMarker:
		var ep errPacket
		if err := ep.decode(r, c.capabilities()); err != nil {
			return err
		}
		return errors.New(ep.errorMessage)
	default:
		return ErrMalformedPacket
	}
}

// Authenticate completes password authentication using whichever plugin the
// server requested in its handshake (or mysql_native_password if the
// handshake left the plugin unspecified), following the auth-switch /
// auth-more-data loop the protocol allows.
func (c *Conn) Authenticate(username, password string) error {
	plugin := c.hs.authPluginName
	switch plugin {
	case "mysql_native_password", "mysql_clear_password", "caching_sha2_password", "sha256_password":
	case "":
		plugin = "mysql_native_password"
	default:
		return fmt.Errorf("mysqlconn: unsupported auth plugin %q", plugin)
	}

	scramble := c.hs.authPluginData
	authResponse, err := encryptPassword(plugin, []byte(password), scramble, nil)
	if err != nil {
		return err
	}

	if err := c.write(handshakeResponse41{
		capabilityFlags: capLongFlag | capSecureConnection,
		maxPacketSize:   maxPacketSize,
		characterSet:    c.hs.characterSet,
		username:        username,
		authResponse:    authResponse,
		authPluginName:  plugin,
	}); err != nil {
		return err
	}

	var switched bool
	var pubKey *rsa.PublicKey
	for {
		r := wireio.NewReader(wireio.NewPacketReader(c.netconn, &c.seq))
		marker, err := r.Peek()
		if err != nil {
			return err
		}
		switch marker {
		case okMarker:
			if err := r.Drain(); err != nil {
				return err
			}
			return c.fetchServerVersion()
		case errMarker:
			var ep errPacket
			if err := ep.decode(r, c.capabilities()); err != nil {
				return err
			}
			return errors.New(ep.errorMessage)
		case 0x01:
			var amd authMoreData
			if err := amd.decode(r); err != nil {
				return err
			}
			switch plugin {
			case "caching_sha2_password":
				if len(amd.pluginData) != 1 {
					return ErrMalformedPacket
				}
				switch amd.pluginData[0] {
				case 3: // fast-auth-success
					if err := c.readOKErr(); err != nil {
						return err
					}
					return c.fetchServerVersion()
				case 4: // full-auth-required
					if _, isTLS := c.netconn.(*tls.Conn); isTLS {
						authResponse = append([]byte(password), 0)
					} else if _, isUnix := c.netconn.(*net.UnixConn); isUnix {
						authResponse = append([]byte(password), 0)
					} else {
						if err := c.write(requestPublicKey{}); err != nil {
							return err
						}
						r2 := wireio.NewReader(wireio.NewPacketReader(c.netconn, &c.seq))
						var amd2 authMoreData
						if err := amd2.decode(r2); err != nil {
							return err
						}
						key, err := decodePublicKey(amd2.pluginData)
						if err != nil {
							return err
						}
						pubKey = key
						authResponse, err = encryptPasswordPubKey([]byte(password), scramble, pubKey)
						if err != nil {
							return err
						}
					}
					if err := c.write(authSwitchResponse{authResponse}); err != nil {
						return err
					}
					if err := c.readOKErr(); err != nil {
						return err
					}
					return c.fetchServerVersion()
				default:
					return ErrMalformedPacket
				}
			case "sha256_password":
				// The server's answer to the public-key request that
				// encryptPassword sent in place of a password.
				key, err := decodePublicKey(amd.pluginData)
				if err != nil {
					return err
				}
				pubKey = key
				authResponse, err = encryptPasswordPubKey([]byte(password), scramble, pubKey)
				if err != nil {
					return err
				}
				if err := c.write(authSwitchResponse{authResponse}); err != nil {
					return err
				}
			default:
				return ErrMalformedPacket
			}
		case 0xFE:
			if switched {
				return errors.New("mysqlconn: auth switch requested more than once")
			}
			switched = true
			var asr authSwitchRequest
			if err := asr.decode(r); err != nil {
				return err
			}
			plugin = asr.pluginName
			scramble = asr.pluginData
			authResponse, err = encryptPassword(plugin, []byte(password), scramble, pubKey)
			if err != nil {
				return err
			}
			if err := c.write(authSwitchResponse{authResponse}); err != nil {
				return err
			}
		default:
			return ErrMalformedPacket
		}
	}
}

func (c *Conn) fetchServerVersion() error {
	rows, err := queryRows(c, "select version()")
	if err != nil {
		return err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil
	}
	c.hs.serverVersion = rows[0][0]

	sv, err := newServerVersion(c.hs.serverVersion)
	if err != nil {
		// Some managed MySQL offerings (notably Azure) report a
		// non-dotted-triple version string here; version() isn't
		// required for decoding, so don't fail the connection over it.
		return nil
	}
	if sv.binlogVersion() < 4 {
		return fmt.Errorf("mysqlconn: server version %s uses binlog format v%d, which this decoder does not support", c.hs.serverVersion, sv.binlogVersion())
	}
	return nil
}

// ServerVersion returns the server's reported version string, populated
// after a successful Authenticate.
func (c *Conn) ServerVersion() string {
	return c.hs.serverVersion
}

// MasterStatus reports the server's current binlog file/position, as
// `SHOW MASTER STATUS` would.
func (c *Conn) MasterStatus() (file string, pos uint32, err error) {
	rows, err := queryRows(c, "show master status")
	if err != nil {
		return "", 0, err
	}
	if len(rows) == 0 {
		return "", 0, nil
	}
	off, err := strconv.Atoi(rows[0][1])
	return rows[0][0], uint32(off), err
}

// ServerID reports the server's @@server_id system variable.
func (c *Conn) ServerID() (uint32, error) {
	rows, err := queryRows(c, "select @@server_id")
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, errors.New("mysqlconn: @@server_id returned no rows")
	}
	id, err := strconv.ParseUint(rows[0][0], 10, 32)
	return uint32(id), err
}

// SetHeartbeatPeriod configures the interval at which the server sends
// heartbeat events when there is no replication traffic. Zero disables
// heartbeats. Only meaningful when Seek is called with a non-zero serverID.
func (c *Conn) SetHeartbeatPeriod(d time.Duration) error {
	_, err := queryRows(c, fmt.Sprintf("SET @master_heartbeat_period=%d", d.Nanoseconds()))
	return err
}

func (c *Conn) fetchBinlogChecksum() (string, error) {
	rows, err := queryRows(c, "show global variables like 'binlog_checksum'")
	if err != nil {
		return "", err
	}
	if len(rows) > 0 && len(rows[0]) > 1 {
		return rows[0][1], nil
	}
	return "", nil
}

func (c *Conn) confirmChecksumSupport() error {
	_, err := queryRows(c, "set @master_binlog_checksum = @@global.binlog_checksum")
	return err
}

// Seek requests the binlog stream starting at fileName/position for
// database (with tablePrefix stripped from table names the decoder
// records), registers as serverID with the master, and prepares NextEvent.
//
// If serverID is zero, NextEvent returns io.EOF once the server's current
// events are exhausted. A non-zero serverID makes the server hold the
// connection open and push new events as they're written.
func (c *Conn) Seek(serverID uint32, fileName string, position uint32, database, tablePrefix string) error {
	checksum, err := c.fetchBinlogChecksum()
	if err != nil {
		return err
	}
	if checksum != "" && checksum != "NONE" {
		if err := c.confirmChecksumSupport(); err != nil {
			return err
		}
		c.checksumLen = 4
	} else {
		c.checksumLen = 0
	}

	c.seq = 0
	if err := c.write(comBinlogDump{
		binlogPos:      position,
		serverID:       serverID,
		binlogFilename: fileName,
	}); err != nil {
		return err
	}

	// The stream always opens with a FORMAT_DESCRIPTION event (binlog
	// position 4 is its fixed offset), so the decoder doesn't need the
	// server's reported binlog-version seeded up front.
	c.decoder = binlogdecode.NewDecoder(database, tablePrefix)
	c.pr = wireio.NewPacketReader(c.netconn, &c.seq)
	return nil
}

// NextEvent decodes and returns the next binlog event, skipping and
// discarding the trailing CRC32 checksum the server appends per event when
// binlog_checksum=CRC32 rather than verifying it: a corrupted event still
// fails to decode as valid MySQL wire data almost immediately, so the
// verification buys little beyond what the decoder already catches.
//
// Returns io.EOF when there are no more events (serverID zero in Seek) or
// blocks awaiting new ones (serverID non-zero).
func (c *Conn) NextEvent() (*binlogdecode.DecodedEvent, error) {
	if c.pr == nil {
		return nil, errors.New("mysqlconn: NextEvent called before Seek")
	}
	c.pr.Reset()
	r := wireio.NewReader(c.pr)

	b, err := r.Peek()
	if err != nil {
		return nil, err
	}
	switch b {
	case okMarker:
		r.Skip(1)
	case eofMarker:
		var eof eofPacket
		if err := eof.decode(r, c.capabilities()); err != nil {
			return nil, err
		}
		return nil, errNoMoreEvents
	case errMarker:
		var ep errPacket
		if err := ep.decode(r, c.capabilities()); err != nil {
			return nil, err
		}
		return nil, errors.New(ep.errorMessage)
	default:
		return nil, fmt.Errorf("mysqlconn: NextEvent: got 0x%02x, want OK-byte", b)
	}

	ev, err := c.decoder.Decode(r)
	if err != nil {
		return nil, err
	}
	if c.checksumLen > 0 {
		r.Limit = -1
		if err := r.Skip(c.checksumLen); err != nil {
			return nil, err
		}
	}
	return ev, nil
}

// Close closes the underlying network connection.
func (c *Conn) Close() error {
	return c.netconn.Close()
}

// Query runs q as a text query and returns its rows, one string per column
// (SQL NULL becomes ""). Intended for one-shot admin/metadata queries
// (INFORMATION_SCHEMA lookups and the like), not for streaming result sets.
func (c *Conn) Query(q string) ([][]string, error) {
	return queryRows(c, q)
}

// comBinlogDump is the COM_BINLOG_DUMP command that starts event streaming.
//
// https://dev.mysql.com/doc/internals/en/com-binlog-dump.html
type comBinlogDump struct {
	binlogPos      uint32
	flags          uint16
	serverID       uint32
	binlogFilename string
}

func (e comBinlogDump) encode(w *wireio.Writer) {
	w.Int1(0x12)
	w.Int4(e.binlogPos)
	w.Int2(e.flags)
	w.Int4(e.serverID)
	w.String(e.binlogFilename)
}
