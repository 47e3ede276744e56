package replicator

import (
	"fmt"
	"strconv"
)

// idQuerier is the subset of mysqlconn.Conn this file needs.
type idQuerier interface {
	Query(q string) ([][]string, error)
	ServerID() (uint32, error)
}

// PickServerID implements spec §6's replica-id allocation: SHOW SLAVE HOSTS
// plus SELECT @@server_id determine an id not already in use, as
// max(existing)+1, or 2 if none are registered.
func PickServerID(conn idQuerier) (uint32, error) {
	rows, err := conn.Query("show slave hosts")
	if err != nil {
		return 0, fmt.Errorf("replicator: SHOW SLAVE HOSTS: %w", err)
	}

	var maxID uint64
	var any bool
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		id, err := strconv.ParseUint(row[0], 10, 32)
		if err != nil {
			continue
		}
		if !any || id > maxID {
			maxID = id
			any = true
		}
	}

	if selfID, err := conn.ServerID(); err == nil && selfID != 0 {
		if !any || uint64(selfID) > maxID {
			maxID = uint64(selfID)
			any = true
		}
	}

	if !any {
		return 2, nil
	}
	return uint32(maxID) + 1, nil
}
