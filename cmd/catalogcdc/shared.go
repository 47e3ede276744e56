package main

import (
	"fmt"

	"github.com/shopsync/catalogcdc/internal/cdcerr"
	"github.com/shopsync/catalogcdc/internal/config"
	"github.com/shopsync/catalogcdc/internal/mysqlconn"
)

// outputFormats are the valid values of --output.
var outputFormats = map[string]bool{"json": true, "binary": true}

func validateOutputFormat(format string) error {
	if !outputFormats[format] {
		return fmt.Errorf("unknown --output format %q: want json or binary", format)
	}
	return nil
}

// connectAndAuth dials and authenticates against the database cfg names,
// per cfg.Connection's string-URL or structured-object form.
func connectAndAuth(cfg *config.Config) (*mysqlconn.Conn, error) {
	network, address, user, pass, err := cfg.Connection.Resolve()
	if err != nil {
		return nil, err
	}
	conn, err := mysqlconn.Dial(network, address)
	if err != nil {
		return nil, cdcerr.NewTransport(err)
	}
	if err := conn.Authenticate(user, pass); err != nil {
		_ = conn.Close()
		return nil, cdcerr.NewTransport(err)
	}
	return conn, nil
}
