// Package aggregate implements the §4.D aggregator and flush policy: it
// absorbs a stream of domain.ProductChange values and occasional position
// markers, de-duplicates and buckets them by aggregate key, and produces a
// ChangeAggregate on demand for the emitter.
package aggregate

import "fmt"

// EntityKind identifies which top-level domain a ChangeAggregate describes.
// The numeric values are load-bearing: they are the MessagePack entity-kind
// byte of §4.E.
type EntityKind int

const (
	Product EntityKind = iota + 1
	Category
	Inventory
)

func (k EntityKind) String() string {
	switch k {
	case Product:
		return "product"
	case Category:
		return "category"
	case Inventory:
		return "inventory"
	default:
		return fmt.Sprintf("EntityKind(%d)", int(k))
	}
}

// keyKind discriminates the AggregateKey tagged union of §3.
type keyKind int

const (
	keyAttribute keyKind = iota
	keyName
	keyNameScopeInt
	keyNameScopeStr
)

// AggregateKey is the composite bucket identifier a pushed id is grouped
// under. Construct one with AttributeKey, NameKey, NameScopeIntKey, or
// NameScopeStrKey; the zero value is not a valid key.
//
// AggregateKey is comparable and safe as a map key: every constructor fills
// exactly the fields its variant uses, leaving the others zero.
type AggregateKey struct {
	kind        keyKind
	name        string
	attributeID uint64
	scopeInt    uint64
	scopeStr    string
}

// AttributeKey identifies the bucket for a product_entity_* EAV attribute.
func AttributeKey(attributeID uint64) AggregateKey {
	return AggregateKey{kind: keyAttribute, attributeID: attributeID}
}

// NameKey identifies an unscoped well-known bucket such as "@created" or a
// plain product field name such as "sku".
func NameKey(name string) AggregateKey {
	return AggregateKey{kind: keyName, name: name}
}

// NameScopeIntKey identifies a bucket scoped to an integer id, e.g.
// ("@website", 2).
func NameScopeIntKey(name string, scope uint64) AggregateKey {
	return AggregateKey{kind: keyNameScopeInt, name: name, scopeInt: scope}
}

// NameScopeStrKey identifies a bucket scoped to a string id, reserved for
// non-product entity kinds.
func NameScopeStrKey(name string, scope string) AggregateKey {
	return AggregateKey{kind: keyNameScopeStr, name: name, scopeStr: scope}
}

// IsAttribute reports whether k is an AttributeKey, and if so its id.
func (k AggregateKey) IsAttribute() (uint64, bool) {
	if k.kind == keyAttribute {
		return k.attributeID, true
	}
	return 0, false
}

// Name returns the well-known or field name for keyName/keyNameScopeInt/
// keyNameScopeStr variants; empty for AttributeKey.
func (k AggregateKey) Name() string { return k.name }

// ScopeInt returns the integer scope and true for a NameScopeIntKey.
func (k AggregateKey) ScopeInt() (uint64, bool) {
	if k.kind == keyNameScopeInt {
		return k.scopeInt, true
	}
	return 0, false
}

// ScopeStr returns the string scope and true for a NameScopeStrKey.
func (k AggregateKey) ScopeStr() (string, bool) {
	if k.kind == keyNameScopeStr {
		return k.scopeStr, true
	}
	return "", false
}

// Well-known unscoped bucket names, per §3's glossary of "@"-prefixed keys.
const (
	KeyCreated      = "@created"
	KeyDeleted      = "@deleted"
	KeyWebsite      = "@website"
	KeyCategory     = "@category"
	KeyComposite    = "@composite"
	KeyMediaGallery = "@media_gallery"
	KeyTierPrice    = "@tier_price"
	KeyLink         = "@link"
)

// BinlogPosition is the (file, offset) pair the driver advances on every
// event and every rotate.
type BinlogPosition struct {
	File   string
	Offset uint32
}

// EventMetadata is attached to a batch at the time it was most recently
// advanced: the timestamp and position of the last row event absorbed.
type EventMetadata struct {
	Timestamp uint64
	Position  BinlogPosition
}

// AggregateValue is the sorted, deduplicated id list stored under one
// AggregateKey: either integer ids or string ids, never both.
type AggregateValue struct {
	Ints []uint64
	Strs []string
}
