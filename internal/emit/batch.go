// Package emit serializes aggregate.ChangeAggregate values to the two
// downstream wire formats of spec §4.E: newline-delimited JSON and framed
// MessagePack.
package emit

import (
	"sort"

	"github.com/shopsync/catalogcdc/internal/aggregate"
)

// idList is one bucket's sorted id list, carrying whichever of Ints/Strs the
// source aggregate.AggregateValue populated.
type idList = aggregate.AggregateValue

// plan is the aggregate's keys sorted and bucketed into the three sections
// of §4.E, computed once and shared by both encoders so their output always
// agrees on which bucket a key landed in.
type plan struct {
	entity    aggregate.EntityKind
	metadata  aggregate.EventMetadata
	global    []globalEntry
	scopedInt []scopedIntEntry
	scopedStr []scopedStrEntry
	attribute []attributeEntry
}

type globalEntry struct {
	name string
	list idList
}

type scopedIntEntry struct {
	name  string
	scope uint64
	list  idList
}

type scopedStrEntry struct {
	name  string
	scope string
	list  idList
}

type attributeEntry struct {
	attributeID uint64
	list        idList
}

// buildPlan sorts agg.Data into the §4.E sections, in a stable order
// (attribute-id / name / scope ascending) so repeated runs over the same
// aggregate produce byte-identical output.
func buildPlan(agg *aggregate.ChangeAggregate) *plan {
	p := &plan{entity: agg.EntityKind, metadata: agg.Metadata}
	for key, list := range agg.Data {
		if attrID, ok := key.IsAttribute(); ok {
			p.attribute = append(p.attribute, attributeEntry{attributeID: attrID, list: list})
			continue
		}
		if scope, ok := key.ScopeInt(); ok {
			p.scopedInt = append(p.scopedInt, scopedIntEntry{name: key.Name(), scope: scope, list: list})
			continue
		}
		if scope, ok := key.ScopeStr(); ok {
			p.scopedStr = append(p.scopedStr, scopedStrEntry{name: key.Name(), scope: scope, list: list})
			continue
		}
		p.global = append(p.global, globalEntry{name: key.Name(), list: list})
	}
	sort.Slice(p.global, func(i, j int) bool { return p.global[i].name < p.global[j].name })
	sort.Slice(p.scopedInt, func(i, j int) bool {
		if p.scopedInt[i].name != p.scopedInt[j].name {
			return p.scopedInt[i].name < p.scopedInt[j].name
		}
		return p.scopedInt[i].scope < p.scopedInt[j].scope
	})
	sort.Slice(p.scopedStr, func(i, j int) bool {
		if p.scopedStr[i].name != p.scopedStr[j].name {
			return p.scopedStr[i].name < p.scopedStr[j].name
		}
		return p.scopedStr[i].scope < p.scopedStr[j].scope
	})
	sort.Slice(p.attribute, func(i, j int) bool { return p.attribute[i].attributeID < p.attribute[j].attributeID })
	return p
}

// entryCount is the §4.E MessagePack header's data-entry-count: one entry
// per (key, list) pair across every section.
func (p *plan) entryCount() int {
	return len(p.global) + len(p.scopedInt) + len(p.scopedStr) + len(p.attribute)
}
