package binlogdecode

import "github.com/shopsync/catalogcdc/internal/wireio"

// TableCache is the table-map cache of §3/§4.A: table-ids are installed on
// TABLE_MAP_EVENT and looked up by every subsequent row event until the
// process exits (the core spec applies no eviction policy).
type TableCache struct {
	database    string
	tablePrefix string
	byID        map[uint64]*TableDescriptor
}

// NewTableCache returns a cache that only installs table-maps for database
// and strips tablePrefix from table names.
func NewTableCache(database, tablePrefix string) *TableCache {
	return &TableCache{
		database:    database,
		tablePrefix: tablePrefix,
		byID:        make(map[uint64]*TableDescriptor),
	}
}

// Get returns the descriptor installed for tableID, if any.
func (c *TableCache) Get(tableID uint64) (*TableDescriptor, bool) {
	td, ok := c.byID[tableID]
	return td, ok
}

// Install decodes a TABLE_MAP_EVENT body and records its descriptor, unless
// it belongs to a database other than the configured one.
func (c *TableCache) Install(r *wireio.Reader) error {
	td, err := decodeTableDescriptor(r, c.tablePrefix)
	if err != nil {
		return err
	}
	if td.DatabaseName != c.database {
		return nil
	}
	c.byID[td.TableID] = td
	return nil
}
