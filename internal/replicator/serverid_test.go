package replicator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeIDQuerier struct {
	rows     [][]string
	serverID uint32
	err      error
}

func (f fakeIDQuerier) Query(string) ([][]string, error) { return f.rows, f.err }
func (f fakeIDQuerier) ServerID() (uint32, error)        { return f.serverID, nil }

func TestPickServerIDNoExistingHosts(t *testing.T) {
	id, err := PickServerID(fakeIDQuerier{rows: nil, serverID: 0})
	require.NoError(t, err)
	require.Equal(t, uint32(2), id)
}

func TestPickServerIDMaxOfExisting(t *testing.T) {
	id, err := PickServerID(fakeIDQuerier{
		rows:     [][]string{{"3", "host1", "3306", "1"}, {"7", "host2", "3306", "1"}},
		serverID: 1,
	})
	require.NoError(t, err)
	require.Equal(t, uint32(8), id)
}

func TestPickServerIDFallsBackToSelf(t *testing.T) {
	id, err := PickServerID(fakeIDQuerier{rows: nil, serverID: 5})
	require.NoError(t, err)
	require.Equal(t, uint32(6), id)
}
