package mysqlconn

import (
	"database/sql"
	"flag"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
)

// Integration tests need a real server; they're skipped unless -mysql is
// passed, following the same convention the teacher uses for its own
// live-connection tests.
var (
	mysql            = flag.String("mysql", "", "mysql server used for testing")
	network, address string
	user, passwd     string

	skipReason = `SKIPPED: pass -mysql flag to run this test
example: go test -mysql tcp:localhost:3306,user=root,password=password
`
)

func TestMain(m *testing.M) {
	flag.Parse()
	if *mysql != "" {
		colon := strings.IndexByte(*mysql, ':')
		network, address = (*mysql)[:colon], (*mysql)[colon+1:]
		tok := strings.Split(address, ",")
		address = tok[0]
		for _, t := range tok[1:] {
			switch {
			case strings.HasPrefix(t, "user="):
				user = strings.TrimPrefix(t, "user=")
			case strings.HasPrefix(t, "password="):
				passwd = strings.TrimPrefix(t, "password=")
			}
		}
	}
	os.Exit(m.Run())
}

// TestConn_AuthenticateAndStream seeds a row through database/sql and then
// reads it back as a decoded binlog event over a Conn, exercising Dial,
// Authenticate, MasterStatus, Seek and NextEvent end to end.
func TestConn_AuthenticateAndStream(t *testing.T) {
	if *mysql == "" {
		t.Skip(skipReason)
	}

	db, err := sql.Open("mysql", user+":"+passwd+"@"+network+"("+address+")/mysql")
	require.NoError(t, err)
	require.NoError(t, db.Ping())
	defer db.Close()

	_, err = db.Exec("CREATE DATABASE IF NOT EXISTS catalogcdc_test")
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS catalogcdc_test.catalog_product_entity (
		entity_id INT UNSIGNED PRIMARY KEY, sku VARCHAR(64))`)
	require.NoError(t, err)

	c, err := Dial(network, address)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Authenticate(user, passwd))

	file, pos, err := c.MasterStatus()
	require.NoError(t, err)
	require.NotEmpty(t, file)

	serverID, err := c.ServerID()
	require.NoError(t, err)
	_ = serverID

	require.NoError(t, c.Seek(0, file, pos, "catalogcdc_test", ""))

	_, err = db.Exec("INSERT INTO catalogcdc_test.catalog_product_entity (entity_id, sku) VALUES (1, 'sku-1')")
	require.NoError(t, err)

	var sawInsert bool
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		ev, err := c.NextEvent()
		if err != nil {
			break
		}
		for _, rc := range ev.Rows {
			if rc.Table != nil && rc.Table.TableName == "catalog_product_entity" {
				sawInsert = true
			}
		}
		if sawInsert {
			break
		}
	}
	require.True(t, sawInsert, "expected to observe the seeded INSERT as a decoded row event")
}
