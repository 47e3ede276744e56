package mysqlconn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewServerVersion(t *testing.T) {
	sv, err := newServerVersion("8.0.34-0ubuntu0.22.04.1")
	require.NoError(t, err)
	require.Equal(t, serverVersion{8, 0, 34}, sv)
}

func TestServerVersion_BinlogVersion(t *testing.T) {
	cases := []struct {
		version string
		want    uint16
	}{
		{"3.23.0", 1},
		{"4.0.1", 2},
		{"4.1.0", 3},
		{"5.7.30", 4},
		{"8.0.34", 4},
	}
	for _, c := range cases {
		sv, err := newServerVersion(c.version)
		require.NoError(t, err)
		require.Equal(t, c.want, sv.binlogVersion(), "version %s", c.version)
	}
}

func TestNewServerVersion_RejectsMalformed(t *testing.T) {
	_, err := newServerVersion("not-a-version")
	require.Error(t, err)
}
