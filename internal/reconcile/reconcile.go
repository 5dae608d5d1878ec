// Package reconcile finds child records whose referenced parent is missing.
package reconcile

import (
	"github.com/dbsmedya/straycheck/internal/types"
)

// Stats summarises one reconciliation.
type Stats struct {
	Parents  int
	Children int
	Orphans  int
}

// Options tunes identifier comparison.
type Options struct {
	// NormalizeIDs compares IDs after types.NormalizeID on both sides.
	NormalizeIDs bool
}

// FindOrphans returns, in child order, every child whose ParentReference is
// not in parents. A nil or empty parent set makes every child an orphan.
func FindOrphans(parents types.ParentIDSet, children []types.ChildRecord) *types.OrphanReport {
	return FindOrphansWith(parents, children, Options{}, nil)
}

// FindOrphansWith is FindOrphans with comparison options. onOrphan, when
// non-nil, is called for each orphan as it is added.
func FindOrphansWith(parents types.ParentIDSet, children []types.ChildRecord, opts Options, onOrphan func(types.ChildRecord)) *types.OrphanReport {
	if opts.NormalizeIDs {
		parents = normalizeSet(parents)
	}

	report := types.NewOrphanReport()
	for _, child := range children {
		ref := child.ParentReference
		if opts.NormalizeIDs {
			ref = types.NormalizeID(ref)
		}
		if parents.Has(ref) {
			continue
		}
		if onOrphan != nil {
			onOrphan(child)
		}
		report.Set(child.ObjectID, types.Orphan{
			ObservationDate: child.ObservationDate,
			CreatorName:     child.CreatorName,
			BioCompany:      child.BioCompany,
		})
	}
	return report
}

// Summarize counts the inputs and result of a reconciliation.
func Summarize(parents types.ParentIDSet, children []types.ChildRecord, report *types.OrphanReport) Stats {
	return Stats{
		Parents:  parents.Len(),
		Children: len(children),
		Orphans:  report.Len(),
	}
}

func normalizeSet(parents types.ParentIDSet) types.ParentIDSet {
	out := make(types.ParentIDSet, len(parents))
	for id := range parents {
		out.Add(types.NormalizeID(id))
	}
	return out
}
