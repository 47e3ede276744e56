// Package domain maps decoded binlog row changes onto Magento's catalog
// domain model: the per-table rules of §4.C that decide whether a row event
// is worth emitting at all, and if so, as which ProductChange variant.
package domain

// Kind identifies a ProductChange variant.
type Kind int

const (
	Created Kind = iota
	Deleted
	Fields
	Attribute
	MediaGallery
	LinkRelation
	Website
	Category
	CompositeRelation
	TierPrice
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "Created"
	case Deleted:
		return "Deleted"
	case Fields:
		return "Fields"
	case Attribute:
		return "Attribute"
	case MediaGallery:
		return "MediaGallery"
	case LinkRelation:
		return "LinkRelation"
	case Website:
		return "Website"
	case Category:
		return "Category"
	case CompositeRelation:
		return "CompositeRelation"
	case TierPrice:
		return "TierPrice"
	default:
		return "Kind(?)"
	}
}

// ProductChange is the domain event produced by mapping one row change, per
// spec §3's "Product change" sum type. EntityID is always the product's
// (or, for CompositeRelation, the parent product's) id. ScopeID carries the
// variant-specific second id (attribute id, website id, category id, or link
// type id) and is unused by Created/Deleted/MediaGallery/CompositeRelation/
// TierPrice. ChangedFields is populated only for Fields.
type ProductChange struct {
	Kind          Kind
	EntityID      uint64
	ScopeID       uint64
	ChangedFields []string
}
