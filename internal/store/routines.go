package store

import (
	"fmt"
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const defaultStepDuration = 60 // seconds

// RoutineManager owns one ordered-step collection. Routines and sequences
// are the same algorithm over different collections; use NewRoutines or
// NewSequences to pick the instance.
type RoutineManager struct {
	store      *Store
	collection string
	prefix     string
	kind       string
}

func NewRoutines(s *Store) *RoutineManager {
	return &RoutineManager{store: s, collection: CollectionRoutines, prefix: "routine", kind: "routine"}
}

// NewSequences serves the legacy sequences collection. Same record shape,
// same manager, separate data.
func NewSequences(s *Store) *RoutineManager {
	return &RoutineManager{store: s, collection: CollectionSequences, prefix: "seq", kind: "sequence"}
}

// Collection returns the collection name this manager owns.
func (m *RoutineManager) Collection() string { return m.collection }

func (m *RoutineManager) buildSteps(ins []StepInput) []Step {
	steps := make([]Step, 0, len(ins))
	for i, in := range ins {
		dur := defaultStepDuration
		if in.Duration != nil {
			dur = *in.Duration
		}
		steps = append(steps, Step{
			ID:          NewID("step"),
			Name:        in.Name,
			Duration:    dur,
			Order:       i,
			Description: in.Description,
		})
	}
	return steps
}

// normalizeSteps assigns missing step ids and re-densifies Order to
// 0..n-1 in array order.
func normalizeSteps(steps []Step) []Step {
	if steps == nil {
		return []Step{}
	}
	for i := range steps {
		if steps[i].ID == "" {
			steps[i].ID = NewID("step")
		}
		steps[i].Order = i
	}
	return steps
}

func sumDurations(steps []Step) int {
	total := 0
	for _, st := range steps {
		total += st.Duration
	}
	return total
}

func (m *RoutineManager) build(in RoutineInput) Routine {
	r := Routine{
		Name:        in.Name,
		Description: in.Description,
		Steps:       m.buildSteps(in.Steps),
		Tags:        in.Tags,
		EnergyTag:   in.EnergyTag,
	}
	if in.ID != "" {
		r.ID = in.ID
		ensureMeta(&r.Meta, m.prefix)
	} else {
		r.Meta = newMeta(m.prefix)
	}
	r.TotalDuration = sumDurations(r.Steps)
	return r
}

// Create persists a new routine and returns it. Steps default to an empty
// ordered sequence; step durations are stored as given, sign unchecked.
func (m *RoutineManager) Create(in RoutineInput) (*Routine, error) {
	r := m.build(in)
	if err := putRecord(m.store, m.collection, r.ID, r); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateBatch persists all inputs in one transaction and returns their ids
// in input order. Generated ids stay pairwise distinct regardless of how
// fast the batch runs.
func (m *RoutineManager) CreateBatch(ins []RoutineInput) ([]string, error) {
	records := make([]RawRecord, 0, len(ins))
	ids := make([]string, 0, len(ins))
	for _, in := range ins {
		r := m.build(in)
		data, err := marshalRecord(m.collection, r.ID, r)
		if err != nil {
			return nil, err
		}
		records = append(records, RawRecord{ID: r.ID, Data: data})
		ids = append(ids, r.ID)
	}
	if err := m.store.PutBatch(m.collection, records); err != nil {
		return nil, err
	}
	return ids, nil
}

// Get returns the routine or a NotFound error.
func (m *RoutineManager) Get(id string) (*Routine, error) {
	r, found, err := getRecord[Routine](m.store, m.collection, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%s %q: %w", m.kind, id, ErrNotFound)
	}
	return r, nil
}

var collator = collate.New(language.Und)

// List returns all records, sorted per opts. String fields compare with
// the collator, numeric and timestamp fields numerically. An empty SortBy
// returns storage order.
func (m *RoutineManager) List(opts ListOptions) ([]Routine, error) {
	all, err := getAllRecords[Routine](m.store, m.collection)
	if err != nil {
		return nil, err
	}
	if opts.SortBy == "" {
		return all, nil
	}

	var less func(a, b Routine) bool
	switch opts.SortBy {
	case "name":
		less = func(a, b Routine) bool { return collator.CompareString(a.Name, b.Name) < 0 }
	case "totalDuration":
		less = func(a, b Routine) bool { return a.TotalDuration < b.TotalDuration }
	case "lastUsed":
		less = func(a, b Routine) bool {
			au, bu := time.Time{}, time.Time{}
			if a.LastUsed != nil {
				au = *a.LastUsed
			}
			if b.LastUsed != nil {
				bu = *b.LastUsed
			}
			return au.Before(bu)
		}
	default: // "updatedAt" and anything unrecognized
		less = func(a, b Routine) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	}

	sort.SliceStable(all, func(i, j int) bool {
		if opts.Order == "desc" {
			return less(all[j], all[i])
		}
		return less(all[i], all[j])
	})
	return all, nil
}

// RoutineUpdate carries the fields Update may change; nil means "leave".
type RoutineUpdate struct {
	Name        *string
	Description *string
	Tags        *[]string
	EnergyTag   *string
	Steps       *[]Step
}

// Update applies the set fields, renormalizes steps when they changed, and
// persists.
func (m *RoutineManager) Update(id string, upd RoutineUpdate) (*Routine, error) {
	r, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		r.Name = *upd.Name
	}
	if upd.Description != nil {
		r.Description = *upd.Description
	}
	if upd.Tags != nil {
		r.Tags = *upd.Tags
	}
	if upd.EnergyTag != nil {
		r.EnergyTag = *upd.EnergyTag
	}
	if upd.Steps != nil {
		r.Steps = normalizeSteps(*upd.Steps)
		r.TotalDuration = sumDurations(r.Steps)
	}
	r.touch()
	if err := putRecord(m.store, m.collection, r.ID, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Delete removes the routine. Schedule events referencing it are left in
// place; readers treat the dangling id as "not found".
func (m *RoutineManager) Delete(id string) error {
	deleted, err := m.store.Delete(m.collection, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%s %q: %w", m.kind, id, ErrNotFound)
	}
	return nil
}

// AddStep appends a step at the end and returns the updated routine.
func (m *RoutineManager) AddStep(id string, in StepInput) (*Routine, error) {
	r, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	dur := defaultStepDuration
	if in.Duration != nil {
		dur = *in.Duration
	}
	r.Steps = append(r.Steps, Step{
		ID:          NewID("step"),
		Name:        in.Name,
		Duration:    dur,
		Order:       len(r.Steps),
		Description: in.Description,
	})
	r.TotalDuration = sumDurations(r.Steps)
	r.touch()
	if err := putRecord(m.store, m.collection, r.ID, r); err != nil {
		return nil, err
	}
	return r, nil
}

// RemoveStep removes the matching step and re-densifies order, stable on
// the remaining steps' relative order.
func (m *RoutineManager) RemoveStep(id, stepID string) (*Routine, error) {
	r, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i, st := range r.Steps {
		if st.ID == stepID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("step %q in %s %q: %w", stepID, m.kind, id, ErrNotFound)
	}
	r.Steps = append(r.Steps[:idx], r.Steps[idx+1:]...)
	r.Steps = normalizeSteps(r.Steps)
	r.TotalDuration = sumDurations(r.Steps)
	r.touch()
	if err := putRecord(m.store, m.collection, r.ID, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ReorderStep splices the step out and re-inserts it at newIndex, clamped
// to the valid range, then re-densifies order.
func (m *RoutineManager) ReorderStep(id, stepID string, newIndex int) (*Routine, error) {
	r, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i, st := range r.Steps {
		if st.ID == stepID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("step %q in %s %q: %w", stepID, m.kind, id, ErrNotFound)
	}
	st := r.Steps[idx]
	rest := append(r.Steps[:idx:idx], r.Steps[idx+1:]...)
	if newIndex < 0 {
		newIndex = 0
	}
	if newIndex > len(rest) {
		newIndex = len(rest)
	}
	steps := make([]Step, 0, len(rest)+1)
	steps = append(steps, rest[:newIndex]...)
	steps = append(steps, st)
	steps = append(steps, rest[newIndex:]...)
	r.Steps = normalizeSteps(steps)
	r.touch()
	if err := putRecord(m.store, m.collection, r.ID, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Clone deep-copies the routine under a fresh identity. An empty newName
// defaults to "<original> (Copy)".
func (m *RoutineManager) Clone(id, newName string) (*Routine, error) {
	r, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	copied := *r
	copied.Meta = newMeta(m.prefix)
	copied.LastUsed = nil
	copied.ImportedAt = nil
	copied.Steps = make([]Step, len(r.Steps))
	copy(copied.Steps, r.Steps)
	for i := range copied.Steps {
		copied.Steps[i].ID = NewID("step")
	}
	copied.Tags = append([]string(nil), r.Tags...)
	if newName != "" {
		copied.Name = newName
	} else {
		copied.Name = r.Name + " (Copy)"
	}
	if err := putRecord(m.store, m.collection, copied.ID, copied); err != nil {
		return nil, err
	}
	return &copied, nil
}

// MarkUsed stamps LastUsed. The runner calls this when a run starts; it is
// the only write path driven by execution.
func (m *RoutineManager) MarkUsed(id string) error {
	r, err := m.Get(id)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	r.LastUsed = &now
	r.touch()
	return putRecord(m.store, m.collection, r.ID, r)
}

// FilterRoutines AND-combines all supplied criteria. Pure: no store access.
func FilterRoutines(routines []Routine, f RoutineFilter) []Routine {
	cutoff := time.Now().UTC().AddDate(0, 0, -7)
	var out []Routine
	for _, r := range routines {
		if len(f.Tags) > 0 && !hasAllTags(r.Tags, f.Tags) {
			continue
		}
		if f.MinDuration != nil && r.TotalDuration < *f.MinDuration {
			continue
		}
		if f.MaxDuration != nil && r.TotalDuration > *f.MaxDuration {
			continue
		}
		if f.EnergyTag != "" && r.EnergyTag != f.EnergyTag {
			continue
		}
		if f.RecentlyUsed && (r.LastUsed == nil || r.LastUsed.Before(cutoff)) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func hasAllTags(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// RoutinePayload is the import/export envelope for one ordered-step
// collection. Records maps to the "<collection>" array in the file; nil
// means the key was absent.
type RoutinePayload struct {
	Version    string
	ExportDate time.Time
	Records    []Routine
}

// Export packages the collection (or the subset named by ids) into a
// versioned payload.
func (m *RoutineManager) Export(ids ...string) (*RoutinePayload, error) {
	all, err := getAllRecords[Routine](m.store, m.collection)
	if err != nil {
		return nil, err
	}
	records := all
	if len(ids) > 0 {
		want := make(map[string]bool, len(ids))
		for _, id := range ids {
			want[id] = true
		}
		records = records[:0:0]
		for _, r := range all {
			if want[r.ID] {
				records = append(records, r)
			}
		}
	}
	return &RoutinePayload{Version: "1.0", ExportDate: time.Now().UTC(), Records: records}, nil
}

// Import validates the payload structurally, then normalizes and persists
// each record. Existing data is never overwritten: a colliding id gets a
// regenerated one. Per-record problems are collected, not thrown; all
// accepted records commit in one batch.
func (m *RoutineManager) Import(p *RoutinePayload) (*ImportResult, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedImport)
	}
	if p.Version == "" {
		return nil, fmt.Errorf("%w: missing version field", ErrMalformedImport)
	}
	if p.Records == nil {
		return nil, fmt.Errorf("%w: missing %s array", ErrMalformedImport, m.collection)
	}

	now := time.Now().UTC()
	result := &ImportResult{}
	taken := make(map[string]bool)
	var records []RawRecord

	for _, r := range p.Records {
		if r.Name == "" {
			result.Skipped++
			result.Errors = append(result.Errors, ImportError{
				Identifier: r.ID,
				Error:      "missing name",
			})
			continue
		}

		if r.ID != "" {
			_, exists, err := m.store.Get(m.collection, r.ID)
			if err != nil {
				return nil, err
			}
			if exists || taken[r.ID] {
				r.ID = NewID(m.prefix)
			}
		}
		ensureMeta(&r.Meta, m.prefix)
		taken[r.ID] = true

		r.Steps = normalizeSteps(r.Steps)
		r.TotalDuration = sumDurations(r.Steps)
		imported := now
		r.ImportedAt = &imported

		data, err := marshalRecord(m.collection, r.ID, r)
		if err != nil {
			return nil, err
		}
		records = append(records, RawRecord{ID: r.ID, Data: data})
		result.Imported++
	}

	if len(records) > 0 {
		if err := m.store.PutBatch(m.collection, records); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Seed creates starter routines when the collection is empty.
func (m *RoutineManager) Seed() error {
	n, err := m.store.Count(m.collection)
	if err != nil || n > 0 {
		return err
	}
	mins := func(v int) *int { v *= 60; return &v }
	starters := []RoutineInput{
		{
			Name:      "Morning Kickoff",
			EnergyTag: EnergyMedium,
			Tags:      []string{"morning"},
			Steps: []StepInput{
				{Name: "Water + stretch", Duration: mins(5)},
				{Name: "Review today's schedule", Duration: mins(5)},
				{Name: "Pick top three tasks", Duration: mins(10)},
			},
		},
		{
			Name:      "Evening Shutdown",
			EnergyTag: EnergyLow,
			Tags:      []string{"evening"},
			Steps: []StepInput{
				{Name: "Clear inbox to zero", Duration: mins(10)},
				{Name: "Braindump open loops", Duration: mins(5)},
				{Name: "Lay out tomorrow's first task", Duration: mins(5)},
			},
		},
	}
	_, err = m.CreateBatch(starters)
	return err
}
