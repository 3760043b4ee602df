package store

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TemplateManager owns the templates (library) collection.
type TemplateManager struct {
	store *Store
}

func NewTemplates(s *Store) *TemplateManager {
	return &TemplateManager{store: s}
}

// CoerceInt converts numeric form input arriving as a string. Empty or
// unparseable input becomes nil, never zero or NaN-ish garbage.
func CoerceInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// TemplateInput is caller-supplied template data. DueOffset and
// EstimatedDuration arrive as strings from form fields and are coerced.
type TemplateInput struct {
	ID                string
	Name              string
	Type              string // task|routine
	Description       string
	DueOffset         string // task: days, as typed into the form
	Priority          string
	Steps             []StepInput // routine
	EstimatedDuration string      // routine: seconds, as typed
}

func (m *TemplateManager) build(in TemplateInput) Template {
	t := Template{
		Name:        in.Name,
		Type:        in.Type,
		Description: in.Description,
	}
	switch in.Type {
	case TemplateTask:
		t.DueOffset = CoerceInt(in.DueOffset)
		t.Priority = in.Priority
	case TemplateRoutine:
		steps := make([]Step, 0, len(in.Steps))
		for i, si := range in.Steps {
			dur := defaultStepDuration
			if si.Duration != nil {
				dur = *si.Duration
			}
			steps = append(steps, Step{
				ID:          NewID("step"),
				Name:        si.Name,
				Duration:    dur,
				Order:       i,
				Description: si.Description,
			})
		}
		t.Steps = steps
		t.EstimatedDuration = CoerceInt(in.EstimatedDuration)
		if t.EstimatedDuration == nil && len(steps) > 0 {
			total := sumDurations(steps)
			t.EstimatedDuration = &total
		}
	}
	if in.ID != "" {
		t.ID = in.ID
		ensureMeta(&t.Meta, "tmpl")
	} else {
		t.Meta = newMeta("tmpl")
	}
	return t
}

func (m *TemplateManager) Create(in TemplateInput) (*Template, error) {
	if in.Type != TemplateTask && in.Type != TemplateRoutine {
		return nil, fmt.Errorf("template type %q: must be %q or %q", in.Type, TemplateTask, TemplateRoutine)
	}
	t := m.build(in)
	if err := putRecord(m.store, CollectionTemplates, t.ID, t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (m *TemplateManager) Get(id string) (*Template, error) {
	t, found, err := getRecord[Template](m.store, CollectionTemplates, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("template %q: %w", id, ErrNotFound)
	}
	return t, nil
}

// List returns templates sorted by name, optionally filtered by type.
func (m *TemplateManager) List(typ string) ([]Template, error) {
	all, err := getAllRecords[Template](m.store, CollectionTemplates)
	if err != nil {
		return nil, err
	}
	if typ != "" {
		filtered := all[:0:0]
		for _, t := range all {
			if t.Type == typ {
				filtered = append(filtered, t)
			}
		}
		all = filtered
	}
	sort.SliceStable(all, func(i, j int) bool {
		return collator.CompareString(all[i].Name, all[j].Name) < 0
	})
	return all, nil
}

// TemplateUpdate carries the fields Update may change. The type itself is
// fixed at creation.
type TemplateUpdate struct {
	Name              *string
	Description       *string
	DueOffset         *string // coerced like the create path
	Priority          *string
	Steps             *[]Step
	EstimatedDuration *string
}

// Update applies the set fields, re-deriving the routine estimate when the
// steps changed and no explicit estimate was given.
func (m *TemplateManager) Update(id string, upd TemplateUpdate) (*Template, error) {
	t, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		t.Name = *upd.Name
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	switch t.Type {
	case TemplateTask:
		if upd.DueOffset != nil {
			t.DueOffset = CoerceInt(*upd.DueOffset)
		}
		if upd.Priority != nil {
			t.Priority = *upd.Priority
		}
	case TemplateRoutine:
		if upd.Steps != nil {
			t.Steps = normalizeSteps(*upd.Steps)
			total := sumDurations(t.Steps)
			t.EstimatedDuration = &total
		}
		if upd.EstimatedDuration != nil {
			if n := CoerceInt(*upd.EstimatedDuration); n != nil {
				t.EstimatedDuration = n
			}
		}
	}
	t.touch()
	if err := putRecord(m.store, CollectionTemplates, t.ID, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (m *TemplateManager) Delete(id string) error {
	deleted, err := m.store.Delete(CollectionTemplates, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("template %q: %w", id, ErrNotFound)
	}
	return nil
}

// InstantiateRoutine creates a routine (or sequence) from a routine
// template through the given manager.
func (m *TemplateManager) InstantiateRoutine(id string, rm *RoutineManager) (*Routine, error) {
	t, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if t.Type != TemplateRoutine {
		return nil, fmt.Errorf("template %q is a %s template, not a routine", id, t.Type)
	}
	steps := make([]StepInput, 0, len(t.Steps))
	for _, st := range t.Steps {
		dur := st.Duration
		steps = append(steps, StepInput{Name: st.Name, Duration: &dur, Description: st.Description})
	}
	return rm.Create(RoutineInput{
		Name:        t.Name,
		Description: t.Description,
		Steps:       steps,
	})
}

// TemplatePayload is the import/export envelope for the templates collection.
type TemplatePayload struct {
	Version    string
	ExportDate time.Time
	Records    []Template
}

func (m *TemplateManager) Export() (*TemplatePayload, error) {
	all, err := m.List("")
	if err != nil {
		return nil, err
	}
	return &TemplatePayload{Version: "1.0", ExportDate: time.Now().UTC(), Records: all}, nil
}

func (m *TemplateManager) Import(p *TemplatePayload) (*ImportResult, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedImport)
	}
	if p.Version == "" {
		return nil, fmt.Errorf("%w: missing version field", ErrMalformedImport)
	}
	if p.Records == nil {
		return nil, fmt.Errorf("%w: missing templates array", ErrMalformedImport)
	}

	result := &ImportResult{}
	taken := make(map[string]bool)
	var records []RawRecord

	for _, t := range p.Records {
		if t.Name == "" {
			result.Skipped++
			result.Errors = append(result.Errors, ImportError{Identifier: t.ID, Error: "missing name"})
			continue
		}
		if t.Type != TemplateTask && t.Type != TemplateRoutine {
			result.Skipped++
			result.Errors = append(result.Errors, ImportError{Identifier: t.ID, Error: fmt.Sprintf("unknown type %q", t.Type)})
			continue
		}
		if t.ID != "" {
			_, exists, err := m.store.Get(CollectionTemplates, t.ID)
			if err != nil {
				return nil, err
			}
			if exists || taken[t.ID] {
				t.ID = NewID("tmpl")
			}
		}
		ensureMeta(&t.Meta, "tmpl")
		taken[t.ID] = true
		if t.Type == TemplateRoutine {
			t.Steps = normalizeSteps(t.Steps)
		}

		data, err := marshalRecord(CollectionTemplates, t.ID, t)
		if err != nil {
			return nil, err
		}
		records = append(records, RawRecord{ID: t.ID, Data: data})
		result.Imported++
	}

	if len(records) > 0 {
		if err := m.store.PutBatch(CollectionTemplates, records); err != nil {
			return nil, err
		}
	}
	return result, nil
}
