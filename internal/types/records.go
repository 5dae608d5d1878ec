// Package types contains the record types shared by sources, reconciliation and reporting.
package types

import (
	"strings"
	"time"

	"github.com/elliotchance/orderedmap/v2"
)

// ChildRecord is one observation row read from the child table.
type ChildRecord struct {
	ObjectID        int64
	ObservationDate *time.Time // naive UTC wall clock, nil when the store holds NULL
	ParentReference string
	CreatorName     string
	BioCompany      string
}

// Orphan holds the reported fields of a child whose parent is missing.
type Orphan struct {
	ObservationDate *time.Time
	CreatorName     string
	BioCompany      string
}

// ParentIDSet is the set of parent global IDs present in the parent layer.
type ParentIDSet map[string]struct{}

// NewParentIDSet builds a set from the given identifiers.
func NewParentIDSet(ids ...string) ParentIDSet {
	s := make(ParentIDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts an identifier.
func (s ParentIDSet) Add(id string) {
	s[id] = struct{}{}
}

// Has reports whether the identifier is present. A nil set contains nothing.
func (s ParentIDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of identifiers.
func (s ParentIDSet) Len() int {
	return len(s)
}

// NormalizeID canonicalises a global ID for comparison: surrounding
// whitespace and braces are removed and hex digits upper-cased, so
// "{ab12-...}" and "AB12-..." compare equal.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "{")
	id = strings.TrimSuffix(id, "}")
	return strings.ToUpper(id)
}

// OrphanReport maps object IDs to orphan details, preserving insertion order.
type OrphanReport struct {
	m *orderedmap.OrderedMap[int64, Orphan]
}

// NewOrphanReport returns an empty report.
func NewOrphanReport() *OrphanReport {
	return &OrphanReport{m: orderedmap.NewOrderedMap[int64, Orphan]()}
}

// Set records an orphan under its object ID. An existing entry keeps its position.
func (r *OrphanReport) Set(objectID int64, o Orphan) {
	r.m.Set(objectID, o)
}

// Get returns the orphan recorded for objectID.
func (r *OrphanReport) Get(objectID int64) (Orphan, bool) {
	return r.m.Get(objectID)
}

// Len returns the number of orphans.
func (r *OrphanReport) Len() int {
	return r.m.Len()
}

// Empty reports whether no orphans were found.
func (r *OrphanReport) Empty() bool {
	return r.m.Len() == 0
}

// ObjectIDs returns the object IDs in insertion order.
func (r *OrphanReport) ObjectIDs() []int64 {
	ids := make([]int64, 0, r.m.Len())
	for el := r.m.Front(); el != nil; el = el.Next() {
		ids = append(ids, el.Key)
	}
	return ids
}

// Each calls fn for every orphan in insertion order.
func (r *OrphanReport) Each(fn func(objectID int64, o Orphan)) {
	for el := r.m.Front(); el != nil; el = el.Next() {
		fn(el.Key, el.Value)
	}
}
