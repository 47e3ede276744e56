// Package config loads the CDC pipeline's configuration file, per spec §6:
// an INI/TOML/JSON document (dispatched by file extension) naming the
// target database, table prefix, batch size, and connection parameters.
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Connection is the "connection" config key: either a bare DSN-shaped URL
// string, or an object naming the fields individually. Exactly one of URL
// or the structured fields is populated, mirroring the string-or-object
// union spec §6 describes.
type Connection struct {
	URL string

	Socket            string
	User              string
	Pass              string
	Host              string
	Port              int
	StmtCacheSize     int
	MaxAllowedPacket  int
}

// Config is the loaded configuration document.
type Config struct {
	Database      string
	TablePrefix   string
	BatchSize     uint64
	FlushInterval time.Duration
	Connection    Connection
}

const (
	defaultBatchSize     = 10000
	defaultFlushInterval = 2 * time.Second
)

// Load reads the config file at path, dispatching its grammar by extension:
// .json is JSON, .toml is TOML, .ini and .cnf are the INI grammar. Any other
// extension is passed through to viper's own detection.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".cnf":
		v.SetConfigType("ini")
	case ".json", ".toml", ".ini":
		v.SetConfigType(strings.TrimPrefix(ext, "."))
	}

	v.SetDefault("batch_size", defaultBatchSize)
	v.SetDefault("table_prefix", "")
	v.SetDefault("flush_interval", defaultFlushInterval.String())

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	database := v.GetString("database")
	if database == "" {
		return nil, fmt.Errorf("config: %s: \"database\" is required", path)
	}

	flushInterval, err := time.ParseDuration(v.GetString("flush_interval"))
	if err != nil {
		return nil, fmt.Errorf("config: %s: invalid flush_interval: %w", path, err)
	}

	conn, err := parseConnection(v.Get("connection"))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	return &Config{
		Database:      database,
		TablePrefix:   v.GetString("table_prefix"),
		BatchSize:     v.GetUint64("batch_size"),
		FlushInterval: flushInterval,
		Connection:    conn,
	}, nil
}

func parseConnection(raw interface{}) (Connection, error) {
	switch v := raw.(type) {
	case nil:
		return Connection{}, fmt.Errorf("\"connection\" is required")
	case string:
		return Connection{URL: v}, nil
	case map[string]interface{}:
		c := Connection{
			Socket: stringField(v, "socket"),
			User:   stringField(v, "user"),
			Pass:   stringField(v, "pass"),
			Host:   stringField(v, "host"),
		}
		c.Port = intField(v, "port")
		c.StmtCacheSize = intField(v, "stmt_cache_size")
		c.MaxAllowedPacket = intField(v, "max_allowed_packet")
		return c, nil
	default:
		return Connection{}, fmt.Errorf("\"connection\" must be a string or object, got %T", raw)
	}
}

const defaultMySQLPort = 3306

// Resolve derives the network/address/user/pass dial parameters from a
// Connection, whichever of the string-URL or structured-object forms it
// was loaded from.
func (c Connection) Resolve() (network, address, user, pass string, err error) {
	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil {
			return "", "", "", "", fmt.Errorf("connection: invalid URL: %w", err)
		}
		host := u.Hostname()
		port := u.Port()
		if port == "" {
			port = strconv.Itoa(defaultMySQLPort)
		}
		user = u.User.Username()
		pass, _ = u.User.Password()
		return "tcp", host + ":" + port, user, pass, nil
	}

	if c.Socket != "" {
		return "unix", c.Socket, c.User, c.Pass, nil
	}
	port := c.Port
	if port == 0 {
		port = defaultMySQLPort
	}
	return "tcp", fmt.Sprintf("%s:%d", c.Host, port), c.User, c.Pass, nil
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func intField(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
