package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	rows [][]string
}

func (f fakeQuerier) Query(string) ([][]string, error) {
	return f.rows, nil
}

func TestLoad_ColumnPosition(t *testing.T) {
	fq := fakeQuerier{rows: [][]string{
		{"catalog_product_entity", "entity_id", "1", "PRI", "auto_increment"},
		{"catalog_product_entity", "attribute_set_id", "2", "", ""},
		{"catalog_product_entity", "sku", "5", "", ""},
		{"catalog_product_entity_varchar", "value_id", "1", "PRI", "auto_increment"},
		{"catalog_product_entity_varchar", "store_id", "3", "", ""},
		{"catalog_product_entity_varchar", "value", "5", "", ""},
	}}

	r, err := Load(fq, "magento", "")
	require.NoError(t, err)

	ord, ok := r.ColumnPosition("catalog_product_entity", "sku")
	require.True(t, ok)
	require.Equal(t, 4, ord) // ORDINAL_POSITION 5 -> zero-based 4

	_, ok = r.ColumnPosition("catalog_product_entity", "nonexistent")
	require.False(t, ok)

	_, ok = r.ColumnPosition("nonexistent_table", "sku")
	require.False(t, ok)
}

func TestLoad_IsGeneratedPrimaryKey(t *testing.T) {
	fq := fakeQuerier{rows: [][]string{
		{"catalog_product_entity", "entity_id", "1", "PRI", "auto_increment"},
		{"catalog_product_entity", "sku", "2", "", ""},
	}}

	r, err := Load(fq, "magento", "")
	require.NoError(t, err)

	require.True(t, r.IsGeneratedPrimaryKey("catalog_product_entity", "entity_id"))
	require.False(t, r.IsGeneratedPrimaryKey("catalog_product_entity", "sku"))
	require.False(t, r.IsGeneratedPrimaryKey("catalog_product_entity", "nonexistent"))
}

func TestLoad_StripsTablePrefix(t *testing.T) {
	fq := fakeQuerier{rows: [][]string{
		{"mg_catalog_product_entity", "entity_id", "1", "PRI", "auto_increment"},
	}}

	r, err := Load(fq, "magento", "mg_")
	require.NoError(t, err)

	_, ok := r.ColumnPosition("catalog_product_entity", "entity_id")
	require.True(t, ok)
	_, ok = r.ColumnPosition("mg_catalog_product_entity", "entity_id")
	require.False(t, ok)
}

func TestLoad_KeepsFirstGeneratedPrimaryKey(t *testing.T) {
	// Not realistic MySQL (a table can't have two auto_increment PK columns),
	// but per spec the resolver keeps the first one seen rather than erroring.
	fq := fakeQuerier{rows: [][]string{
		{"weird_table", "a", "1", "PRI", "auto_increment"},
		{"weird_table", "b", "2", "PRI", "auto_increment"},
	}}

	r, err := Load(fq, "magento", "")
	require.NoError(t, err)

	require.True(t, r.IsGeneratedPrimaryKey("weird_table", "a"))
	require.False(t, r.IsGeneratedPrimaryKey("weird_table", "b"))
}
