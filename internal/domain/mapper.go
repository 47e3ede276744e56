package domain

import (
	"fmt"
	"sort"

	"github.com/shopsync/catalogcdc/internal/binlogdecode"
	"github.com/shopsync/catalogcdc/internal/cdcerr"
)

// Schema is the subset of schema.Resolver this package needs, kept as an
// interface so mapping can be tested against fixed column layouts without a
// real INFORMATION_SCHEMA load.
type Schema interface {
	ColumnPosition(tableName, columnName string) (int, bool)
}

var attributeTables = map[string]bool{
	"catalog_product_entity_datetime": true,
	"catalog_product_entity_decimal":  true,
	"catalog_product_entity_int":      true,
	"catalog_product_entity_text":     true,
	"catalog_product_entity_varchar":  true,
}

// Map applies the per-table rules of §4.C to one decoded row change,
// returning nil if the table is unknown or the change doesn't clear its
// table's emission rule (e.g. an update that touched no tracked column).
func Map(tableName string, change binlogdecode.RowChange, sch Schema) (*ProductChange, error) {
	switch {
	case tableName == "catalog_product_entity":
		return mapProductEntity(tableName, change, sch)
	case attributeTables[tableName]:
		return mapAttribute(tableName, change, sch)
	case tableName == "catalog_product_entity_tier_price":
		return mapTierPrice(tableName, change, sch)
	case tableName == "catalog_product_website":
		return mapPair(tableName, change, sch, Website, "product_id", "website_id")
	case tableName == "catalog_category_product":
		return mapPair(tableName, change, sch, Category, "product_id", "category_id")
	case tableName == "catalog_product_link":
		return mapLinkRelation(tableName, change, sch)
	case tableName == "catalog_product_entity_media_gallery_value":
		return mapMediaGallery(tableName, change, sch)
	case tableName == "catalog_product_bundle_selection":
		return mapBundleSelection(tableName, change, sch)
	case tableName == "catalog_product_super_link":
		return mapSuperLink(tableName, change, sch)
	default:
		return nil, nil
	}
}

func mapProductEntity(table string, c binlogdecode.RowChange, sch Schema) (*ProductChange, error) {
	switch {
	case c.Before == nil && c.After != nil:
		id, err := uintColumn(table, c.After, sch, "entity_id")
		if err != nil {
			return nil, err
		}
		return &ProductChange{Kind: Created, EntityID: id}, nil
	case c.After == nil && c.Before != nil:
		id, err := uintColumn(table, c.Before, sch, "entity_id")
		if err != nil {
			return nil, err
		}
		return &ProductChange{Kind: Deleted, EntityID: id}, nil
	case c.Before != nil && c.After != nil:
		id, err := uintColumn(table, c.After, sch, "entity_id")
		if err != nil {
			return nil, err
		}
		tracked := []string{"attribute_set_id", "type_id", "sku", "has_options", "required_options"}
		changed, err := changedColumns(table, c, sch, tracked)
		if err != nil {
			return nil, err
		}
		if len(changed) == 0 {
			return nil, nil
		}
		return &ProductChange{Kind: Fields, EntityID: id, ChangedFields: changed}, nil
	default:
		return nil, nil
	}
}

func mapAttribute(table string, c binlogdecode.RowChange, sch Schema) (*ProductChange, error) {
	row := c.After
	if row == nil {
		row = c.Before
	}
	if row == nil {
		return nil, nil
	}
	entityID, err := uintColumn(table, row, sch, "entity_id")
	if err != nil {
		return nil, err
	}
	attrID, err := uintColumn(table, row, sch, "attribute_id")
	if err != nil {
		return nil, err
	}
	change := &ProductChange{Kind: Attribute, EntityID: entityID, ScopeID: attrID}

	if c.Before != nil && c.After != nil {
		changed, err := changedColumns(table, c, sch, []string{"store_id", "value"})
		if err != nil {
			return nil, err
		}
		if len(changed) == 0 {
			return nil, nil
		}
	}
	return change, nil
}

func mapTierPrice(table string, c binlogdecode.RowChange, sch Schema) (*ProductChange, error) {
	row := c.After
	if row == nil {
		row = c.Before
	}
	if row == nil {
		return nil, nil
	}
	id, err := uintColumn(table, row, sch, "entity_id")
	if err != nil {
		return nil, err
	}
	return &ProductChange{Kind: TierPrice, EntityID: id}, nil
}

// mapPair handles tables whose insert/delete rules produce (kind, id,
// scopeID) from idColumn/scopeColumn and whose update rule is "ignored".
func mapPair(table string, c binlogdecode.RowChange, sch Schema, kind Kind, idColumn, scopeColumn string) (*ProductChange, error) {
	if c.Before != nil && c.After != nil {
		return nil, nil // update ignored
	}
	row := c.After
	if row == nil {
		row = c.Before
	}
	if row == nil {
		return nil, nil
	}
	id, err := uintColumn(table, row, sch, idColumn)
	if err != nil {
		return nil, err
	}
	scope, err := uintColumn(table, row, sch, scopeColumn)
	if err != nil {
		return nil, err
	}
	return &ProductChange{Kind: kind, EntityID: id, ScopeID: scope}, nil
}

func mapLinkRelation(table string, c binlogdecode.RowChange, sch Schema) (*ProductChange, error) {
	row := c.After
	if row == nil {
		row = c.Before
	}
	if row == nil {
		return nil, nil
	}
	id, err := uintColumn(table, row, sch, "product_id")
	if err != nil {
		return nil, err
	}
	linkType, err := uintColumn(table, row, sch, "link_type_id")
	if err != nil {
		return nil, err
	}
	// Updates always emit: link relations carry no content worth diffing
	// beyond their own existence, unlike catalog_product_website/
	// catalog_category_product's pure (product, scope) pairs.
	return &ProductChange{Kind: LinkRelation, EntityID: id, ScopeID: linkType}, nil
}

func mapMediaGallery(table string, c binlogdecode.RowChange, sch Schema) (*ProductChange, error) {
	row := c.After
	if row == nil {
		row = c.Before
	}
	if row == nil {
		return nil, nil
	}
	id, err := uintColumn(table, row, sch, "entity_id")
	if err != nil {
		return nil, err
	}
	if c.Before != nil && c.After != nil {
		changed, err := changedColumns(table, c, sch, []string{"store_id", "label", "disabled"})
		if err != nil {
			return nil, err
		}
		if len(changed) == 0 {
			return nil, nil
		}
	}
	return &ProductChange{Kind: MediaGallery, EntityID: id}, nil
}

func mapBundleSelection(table string, c binlogdecode.RowChange, sch Schema) (*ProductChange, error) {
	row := c.After
	if row == nil {
		row = c.Before
	}
	if row == nil {
		return nil, nil
	}
	id, err := uintColumn(table, row, sch, "parent_product_id")
	if err != nil {
		return nil, err
	}
	if c.Before != nil && c.After != nil {
		changed, err := changedColumns(table, c, sch, []string{
			"is_default", "selection_price_type", "selection_price_value", "selection_qty",
		})
		if err != nil {
			return nil, err
		}
		if len(changed) == 0 {
			return nil, nil
		}
	}
	return &ProductChange{Kind: CompositeRelation, EntityID: id}, nil
}

func mapSuperLink(table string, c binlogdecode.RowChange, sch Schema) (*ProductChange, error) {
	if c.Before != nil && c.After != nil {
		return nil, nil // update ignored
	}
	row := c.After
	if row == nil {
		row = c.Before
	}
	if row == nil {
		return nil, nil
	}
	id, err := uintColumn(table, row, sch, "parent_id")
	if err != nil {
		return nil, err
	}
	return &ProductChange{Kind: CompositeRelation, EntityID: id}, nil
}

// changedColumns returns the subset of candidateColumns whose before/after
// slots differ per binlogdecode.Slot.Equal, sorted for deterministic output.
func changedColumns(table string, c binlogdecode.RowChange, sch Schema, candidateColumns []string) ([]string, error) {
	var changed []string
	for _, col := range candidateColumns {
		pos, ok := sch.ColumnPosition(table, col)
		if !ok {
			continue
		}
		before := slotAt(c.Before, pos)
		after := slotAt(c.After, pos)
		if !before.Equal(after) {
			changed = append(changed, col)
		}
	}
	sort.Strings(changed)
	return changed, nil
}

func slotAt(row binlogdecode.BinaryRow, pos int) binlogdecode.Slot {
	if pos < 0 || pos >= len(row) {
		return binlogdecode.Slot{State: binlogdecode.Absent}
	}
	return row[pos]
}

// uintColumn reads column as an unsigned integer id. MySQL id columns are
// always some integer wire type, decoded by binlogdecode as one of the sized
// Go int/uint kinds depending on signedness; this normalizes all of them to
// uint64 for the aggregate-key / ProductChange id fields.
func uintColumn(table string, row binlogdecode.BinaryRow, sch Schema, column string) (uint64, error) {
	pos, ok := sch.ColumnPosition(table, column)
	if !ok {
		return 0, cdcerr.NewColumnNotFound(table, column)
	}
	slot := slotAt(row, pos)
	if slot.State != binlogdecode.Present {
		return 0, cdcerr.NewUnsupportedValue(table, column, "absent-or-null", "uint")
	}
	if slot.Value.Kind != binlogdecode.ValuePrimitive {
		return 0, cdcerr.NewUnsupportedValue(table, column, "json", "uint")
	}
	switch v := slot.Value.Primitive.(type) {
	case uint8:
		return uint64(v), nil
	case int8:
		return uint64(v), nil
	case uint16:
		return uint64(v), nil
	case int16:
		return uint64(v), nil
	case uint32:
		return uint64(v), nil
	case int32:
		return uint64(v), nil
	case uint64:
		return v, nil
	case int64:
		return uint64(v), nil
	default:
		return 0, cdcerr.NewUnsupportedValue(table, column, fmt.Sprintf("%T", v), "uint")
	}
}
