package domain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shopsync/catalogcdc/internal/binlogdecode"
)

// fakeSchema maps table -> column -> ordinal, for tests that don't need a
// real INFORMATION_SCHEMA load.
type fakeSchema map[string]map[string]int

func (f fakeSchema) ColumnPosition(table, column string) (int, bool) {
	cols, ok := f[table]
	if !ok {
		return 0, false
	}
	pos, ok := cols[column]
	return pos, ok
}

func present(v interface{}) binlogdecode.Slot {
	return binlogdecode.Slot{State: binlogdecode.Present, Value: binlogdecode.Value{Kind: binlogdecode.ValuePrimitive, Primitive: v}}
}

var productEntitySchema = fakeSchema{
	"catalog_product_entity": {
		"entity_id":        0,
		"attribute_set_id": 1,
		"type_id":          2,
		"sku":              3,
		"has_options":      4,
		"required_options": 5,
	},
}

func TestMap_ProductEntity_Insert(t *testing.T) {
	after := binlogdecode.BinaryRow{present(uint32(7)), present(uint32(4)), present("simple"), present("sku-7"), present(uint8(0)), present(uint8(0))}
	change, err := Map("catalog_product_entity", binlogdecode.RowChange{After: after}, productEntitySchema)
	require.NoError(t, err)
	require.NotNil(t, change)
	require.Equal(t, Created, change.Kind)
	require.Equal(t, uint64(7), change.EntityID)
}

func TestMap_ProductEntity_Delete(t *testing.T) {
	before := binlogdecode.BinaryRow{present(uint32(7)), present(uint32(4)), present("simple"), present("sku-7"), present(uint8(0)), present(uint8(0))}
	change, err := Map("catalog_product_entity", binlogdecode.RowChange{Before: before}, productEntitySchema)
	require.NoError(t, err)
	require.NotNil(t, change)
	require.Equal(t, Deleted, change.Kind)
	require.Equal(t, uint64(7), change.EntityID)
}

func TestMap_ProductEntity_Update_TrackedFieldChanged(t *testing.T) {
	before := binlogdecode.BinaryRow{present(uint32(7)), present(uint32(4)), present("simple"), present("sku-7"), present(uint8(0)), present(uint8(0))}
	after := binlogdecode.BinaryRow{present(uint32(7)), present(uint32(4)), present("simple"), present("sku-7-renamed"), present(uint8(0)), present(uint8(0))}
	change, err := Map("catalog_product_entity", binlogdecode.RowChange{Before: before, After: after}, productEntitySchema)
	require.NoError(t, err)
	require.NotNil(t, change)
	require.Equal(t, Fields, change.Kind)
	require.Equal(t, uint64(7), change.EntityID)
	require.Equal(t, []string{"sku"}, change.ChangedFields)
}

func TestMap_ProductEntity_Update_UntrackedFieldOnly(t *testing.T) {
	// entity_id never "changes" in practice, but if only the PK column were
	// reported different none of the tracked fields changed, so no event.
	before := binlogdecode.BinaryRow{present(uint32(7)), present(uint32(4)), present("simple"), present("sku-7"), present(uint8(0)), present(uint8(0))}
	after := binlogdecode.BinaryRow{present(uint32(8)), present(uint32(4)), present("simple"), present("sku-7"), present(uint8(0)), present(uint8(0))}
	change, err := Map("catalog_product_entity", binlogdecode.RowChange{Before: before, After: after}, productEntitySchema)
	require.NoError(t, err)
	require.Nil(t, change)
}

func TestMap_UnknownTable(t *testing.T) {
	change, err := Map("some_unrelated_table", binlogdecode.RowChange{}, fakeSchema{})
	require.NoError(t, err)
	require.Nil(t, change)
}

var attrSchema = fakeSchema{
	"catalog_product_entity_varchar": {
		"entity_id":    0,
		"attribute_id": 1,
		"store_id":     2,
		"value":        3,
	},
}

func TestMap_Attribute_Insert(t *testing.T) {
	after := binlogdecode.BinaryRow{present(uint32(7)), present(uint16(73)), present(uint16(0)), present("red")}
	change, err := Map("catalog_product_entity_varchar", binlogdecode.RowChange{After: after}, attrSchema)
	require.NoError(t, err)
	require.NotNil(t, change)
	require.Equal(t, Attribute, change.Kind)
	require.Equal(t, uint64(7), change.EntityID)
	require.Equal(t, uint64(73), change.ScopeID)
}

func TestMap_Attribute_Update_ValueChanged(t *testing.T) {
	before := binlogdecode.BinaryRow{present(uint32(7)), present(uint16(73)), present(uint16(0)), present("red")}
	after := binlogdecode.BinaryRow{present(uint32(7)), present(uint16(73)), present(uint16(0)), present("blue")}
	change, err := Map("catalog_product_entity_varchar", binlogdecode.RowChange{Before: before, After: after}, attrSchema)
	require.NoError(t, err)
	require.NotNil(t, change)
}

func TestMap_Attribute_Update_NoTrackedChange(t *testing.T) {
	before := binlogdecode.BinaryRow{present(uint32(7)), present(uint16(73)), present(uint16(0)), present("red")}
	after := binlogdecode.BinaryRow{present(uint32(7)), present(uint16(73)), present(uint16(0)), present("red")}
	change, err := Map("catalog_product_entity_varchar", binlogdecode.RowChange{Before: before, After: after}, attrSchema)
	require.NoError(t, err)
	require.Nil(t, change)
}

var websiteSchema = fakeSchema{
	"catalog_product_website": {"product_id": 0, "website_id": 1},
}

func TestMap_Website_InsertAndIgnoredUpdate(t *testing.T) {
	row := binlogdecode.BinaryRow{present(uint32(7)), present(uint16(2))}
	change, err := Map("catalog_product_website", binlogdecode.RowChange{After: row}, websiteSchema)
	require.NoError(t, err)
	require.Equal(t, Website, change.Kind)
	require.Equal(t, uint64(7), change.EntityID)
	require.Equal(t, uint64(2), change.ScopeID)

	change, err = Map("catalog_product_website", binlogdecode.RowChange{Before: row, After: row}, websiteSchema)
	require.NoError(t, err)
	require.Nil(t, change, "catalog_product_website updates are ignored")
}

var linkSchema = fakeSchema{
	"catalog_product_link": {"product_id": 0, "link_type_id": 1},
}

func TestMap_LinkRelation_AlwaysEmitsOnUpdate(t *testing.T) {
	row := binlogdecode.BinaryRow{present(uint32(7)), present(uint8(3))}
	change, err := Map("catalog_product_link", binlogdecode.RowChange{Before: row, After: row}, linkSchema)
	require.NoError(t, err)
	require.NotNil(t, change)
	require.Equal(t, LinkRelation, change.Kind)
}

var superLinkSchema = fakeSchema{
	"catalog_product_super_link": {"parent_id": 0},
}

func TestMap_SuperLink_IgnoredUpdate(t *testing.T) {
	row := binlogdecode.BinaryRow{present(uint32(9))}
	change, err := Map("catalog_product_super_link", binlogdecode.RowChange{Before: row, After: row}, superLinkSchema)
	require.NoError(t, err)
	require.Nil(t, change)

	change, err = Map("catalog_product_super_link", binlogdecode.RowChange{After: row}, superLinkSchema)
	require.NoError(t, err)
	require.Equal(t, CompositeRelation, change.Kind)
	require.Equal(t, uint64(9), change.EntityID)
}
