package presence

import "slices"

// Plan is the outcome of comparing the computed present set with what is
// stored.
type Plan struct {
	Batch      Batch
	Desired    []Entry
	Suppressed []string
}

// Desired builds the entries that should exist after a pass. names carries
// directory display names; a person without one falls back to the name on
// their last punch. Persons held off by a live override are returned
// separately.
func (t Tally) Desired(day string, names map[string]string, overrides map[string]Override) (desired []Entry, suppressed []string) {
	for _, id := range t.Present() {
		if o, ok := overrides[id]; ok && o.Suppresses(day, t.Counts[id]) {
			suppressed = append(suppressed, id)
			continue
		}

		last := t.Last[id]
		name, ok := names[id]
		if !ok || name == "" {
			name = last.DisplayName()
		}

		desired = append(desired, Entry{
			PersonID:      id,
			DisplayName:   name,
			LastEntryTime: last.Timestamp,
			MovementCount: t.Counts[id],
		})
	}
	return desired, suppressed
}

// Diff computes the batch that turns existing into desired. Entries already
// stored with identical state are not rewritten, so a repeated pass over an
// unchanged feed yields an empty batch. Overrides that no longer suppress
// anyone are cleared.
func Diff(existing []Entry, desired []Entry, overrides map[string]Override, suppressed []string) Batch {
	current := make(map[string]Entry, len(existing))
	for _, e := range existing {
		current[e.PersonID] = e
	}

	var b Batch
	keep := make(map[string]struct{}, len(desired))
	for _, d := range desired {
		keep[d.PersonID] = struct{}{}
		if e, ok := current[d.PersonID]; ok && e.SameState(d) {
			continue
		}
		b.Upserts = append(b.Upserts, d)
	}

	for _, e := range existing {
		if _, ok := keep[e.PersonID]; !ok {
			b.Deletes = append(b.Deletes, e.PersonID)
		}
	}

	live := make(map[string]struct{}, len(suppressed))
	for _, id := range suppressed {
		live[id] = struct{}{}
	}
	for id := range overrides {
		if _, ok := live[id]; !ok {
			b.ClearOverrides = append(b.ClearOverrides, id)
		}
	}
	slices.Sort(b.ClearOverrides)

	return b
}

// NewPlan runs the full computation for one day.
func NewPlan(t Tally, day string, existing []Entry, names map[string]string, overrides []Override) Plan {
	byID := make(map[string]Override, len(overrides))
	for _, o := range overrides {
		byID[o.PersonID] = o
	}

	desired, suppressed := t.Desired(day, names, byID)
	return Plan{
		Batch:      Diff(existing, desired, byID, suppressed),
		Desired:    desired,
		Suppressed: suppressed,
	}
}
