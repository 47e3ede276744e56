package aggregate

import (
	"sort"

	"github.com/shopsync/catalogcdc/internal/domain"
)

// ChangeAggregate is everything absorbed by an Aggregator since its last
// flush, keyed and sorted per §3's Change aggregate invariants.
type ChangeAggregate struct {
	EntityKind EntityKind
	Metadata   EventMetadata
	Data       map[AggregateKey]AggregateValue
}

// Aggregator absorbs a mixed stream of domain.ProductChange values and
// EventMetadata markers and produces a ChangeAggregate on Flush. It is not
// safe for concurrent use; per §5 it is owned by a single emitter task.
type Aggregator struct {
	entityKind EntityKind
	intBuckets map[AggregateKey]map[uint64]struct{}
	strBuckets map[AggregateKey]map[string]struct{}
	metadata   *EventMetadata
}

// New returns an empty Aggregator for the given entity kind.
func New(entityKind EntityKind) *Aggregator {
	return &Aggregator{
		entityKind: entityKind,
		intBuckets: make(map[AggregateKey]map[uint64]struct{}),
		strBuckets: make(map[AggregateKey]map[string]struct{}),
	}
}

func (a *Aggregator) pushInt(key AggregateKey, id uint64) {
	set, ok := a.intBuckets[key]
	if !ok {
		set = make(map[uint64]struct{})
		a.intBuckets[key] = set
	}
	set[id] = struct{}{}
}

// PushString absorbs a string id under key, for non-product entity kinds
// reserved by NameScopeStrKey.
func (a *Aggregator) PushString(key AggregateKey, id string) {
	set, ok := a.strBuckets[key]
	if !ok {
		set = make(map[string]struct{})
		a.strBuckets[key] = set
	}
	set[id] = struct{}{}
}

// Push absorbs one domain.ProductChange, fanning it out to every bucket the
// §3 aggregate-key table assigns it to.
func (a *Aggregator) Push(change *domain.ProductChange) {
	if change == nil {
		return
	}
	id := change.EntityID
	switch change.Kind {
	case domain.Created:
		a.pushInt(NameKey(KeyCreated), id)
	case domain.Deleted:
		a.pushInt(NameKey(KeyDeleted), id)
	case domain.Fields:
		for _, field := range change.ChangedFields {
			a.pushInt(NameKey(field), id)
		}
	case domain.Attribute:
		a.pushInt(AttributeKey(change.ScopeID), id)
	case domain.MediaGallery:
		a.pushInt(NameKey(KeyMediaGallery), id)
	case domain.LinkRelation:
		a.pushInt(NameKey(KeyLink), id)
	case domain.Website:
		a.pushInt(NameKey(KeyWebsite), id)
		a.pushInt(NameScopeIntKey(KeyWebsite, change.ScopeID), id)
	case domain.Category:
		a.pushInt(NameKey(KeyCategory), id)
		a.pushInt(NameScopeIntKey(KeyCategory, change.ScopeID), id)
	case domain.CompositeRelation:
		a.pushInt(NameKey(KeyComposite), id)
	case domain.TierPrice:
		a.pushInt(NameKey(KeyTierPrice), id)
	}
}

// PushMetadata records meta as the position of the last event absorbed.
func (a *Aggregator) PushMetadata(meta EventMetadata) {
	m := meta
	a.metadata = &m
}

// Size is the sum of distinct (key, id) pairs across every bucket.
func (a *Aggregator) Size() int {
	n := 0
	for _, set := range a.intBuckets {
		n += len(set)
	}
	for _, set := range a.strBuckets {
		n += len(set)
	}
	return n
}

// Flush returns a ChangeAggregate for everything absorbed since the last
// Flush and clears internal state, or returns nil if no metadata marker has
// ever been pushed (the aggregate has nothing to anchor its position to).
func (a *Aggregator) Flush() *ChangeAggregate {
	if a.metadata == nil {
		return nil
	}
	data := make(map[AggregateKey]AggregateValue, len(a.intBuckets)+len(a.strBuckets))
	for key, set := range a.intBuckets {
		ids := make([]uint64, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		data[key] = AggregateValue{Ints: ids}
	}
	for key, set := range a.strBuckets {
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		data[key] = AggregateValue{Strs: ids}
	}
	result := &ChangeAggregate{
		EntityKind: a.entityKind,
		Metadata:   *a.metadata,
		Data:       data,
	}
	a.intBuckets = make(map[AggregateKey]map[uint64]struct{})
	a.strBuckets = make(map[AggregateKey]map[string]struct{})
	a.metadata = nil
	return result
}
