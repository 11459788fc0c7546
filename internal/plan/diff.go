package plan

import (
	"sort"

	"github.com/google/go-cmp/cmp"
)

// ChangeKind classifies a module's fate between two plans.
type ChangeKind string

const (
	Unchanged ChangeKind = "unchanged"
	Modified  ChangeKind = "modified"
	Added     ChangeKind = "added"
	Removed   ChangeKind = "removed"
)

// ModuleChange is the diff entry for a single module id.
type ModuleChange struct {
	ModuleID string     `yaml:"id"`
	Kind     ChangeKind `yaml:"change"`
	Detail   string     `yaml:"detail,omitempty"`
}

// Diff is the per-module classification of a new plan against a
// previously persisted one.
type Diff struct {
	Changes []ModuleChange `yaml:"changes"`
}

// NoChanges reports whether every module is unchanged and none were added
// or removed. Running the pipeline twice on unchanged input must yield a
// diff for which this returns true.
func (d *Diff) NoChanges() bool {
	for _, c := range d.Changes {
		if c.Kind != Unchanged {
			return false
		}
	}
	return true
}

// Count returns how many changes carry the given kind.
func (d *Diff) Count(kind ChangeKind) int {
	n := 0
	for _, c := range d.Changes {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// Compare classifies every module of the current plan against the
// previous one. A module whose content is identical but whose tier moved
// is reported as modified: the parallelization contract the executor sees
// changed even though the module itself did not.
func Compare(previous, current *Plan) *Diff {
	d := &Diff{}

	prevByID := make(map[string]Module)
	for _, m := range previous.Modules() {
		prevByID[m.ID] = m
	}

	for _, m := range current.Modules() {
		prev, existed := prevByID[m.ID]
		if !existed {
			d.Changes = append(d.Changes, ModuleChange{ModuleID: m.ID, Kind: Added})
			continue
		}
		delete(prevByID, m.ID)

		if detail := cmp.Diff(prev, m); detail != "" {
			d.Changes = append(d.Changes, ModuleChange{ModuleID: m.ID, Kind: Modified, Detail: detail})
			continue
		}
		if previous.TierIndex(m.ID) != current.TierIndex(m.ID) {
			d.Changes = append(d.Changes, ModuleChange{ModuleID: m.ID, Kind: Modified, Detail: "tier placement changed"})
			continue
		}
		d.Changes = append(d.Changes, ModuleChange{ModuleID: m.ID, Kind: Unchanged})
	}

	removed := make([]string, 0, len(prevByID))
	for id := range prevByID {
		removed = append(removed, id)
	}
	sort.Strings(removed)
	for _, id := range removed {
		d.Changes = append(d.Changes, ModuleChange{ModuleID: id, Kind: Removed})
	}

	return d
}
