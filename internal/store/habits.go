package store

import (
	"fmt"
	"sort"
	"time"
)

const dayFormat = "2006-01-02"

// HabitManager owns the habits collection.
type HabitManager struct {
	store *Store
}

func NewHabits(s *Store) *HabitManager {
	return &HabitManager{store: s}
}

// HabitInput is caller-supplied habit data.
type HabitInput struct {
	ID      string
	Name    string
	Cadence string
}

func (m *HabitManager) Create(in HabitInput) (*Habit, error) {
	h := Habit{
		Name:        in.Name,
		Cadence:     in.Cadence,
		Completions: []string{},
	}
	if h.Cadence == "" {
		h.Cadence = CadenceDaily
	}
	if in.ID != "" {
		h.ID = in.ID
		ensureMeta(&h.Meta, "habit")
	} else {
		h.Meta = newMeta("habit")
	}
	if err := putRecord(m.store, CollectionHabits, h.ID, h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (m *HabitManager) Get(id string) (*Habit, error) {
	h, found, err := getRecord[Habit](m.store, CollectionHabits, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("habit %q: %w", id, ErrNotFound)
	}
	return h, nil
}

// List returns all habits sorted by name.
func (m *HabitManager) List() ([]Habit, error) {
	all, err := getAllRecords[Habit](m.store, CollectionHabits)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		return collator.CompareString(all[i].Name, all[j].Name) < 0
	})
	return all, nil
}

// HabitUpdate carries the fields Update may change.
type HabitUpdate struct {
	Name    *string
	Cadence *string
}

func (m *HabitManager) Update(id string, upd HabitUpdate) (*Habit, error) {
	h, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		h.Name = *upd.Name
	}
	if upd.Cadence != nil {
		h.Cadence = *upd.Cadence
	}
	h.touch()
	if err := putRecord(m.store, CollectionHabits, h.ID, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (m *HabitManager) Delete(id string) error {
	deleted, err := m.store.Delete(CollectionHabits, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("habit %q: %w", id, ErrNotFound)
	}
	return nil
}

// MarkComplete records a completion for day (today when empty). Marking an
// already-completed day is a no-op. Streaks and XP recompute on the spot.
func (m *HabitManager) MarkComplete(id, day string) (*Habit, error) {
	if day == "" {
		day = time.Now().Format(dayFormat)
	}
	h, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	for _, d := range h.Completions {
		if d == day {
			return h, nil
		}
	}
	h.Completions = append(h.Completions, day)
	sort.Strings(h.Completions)
	h.recompute(time.Now().Format(dayFormat))
	h.touch()
	if err := putRecord(m.store, CollectionHabits, h.ID, h); err != nil {
		return nil, err
	}
	return h, nil
}

// UnmarkComplete removes a completion for day.
func (m *HabitManager) UnmarkComplete(id, day string) (*Habit, error) {
	h, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	kept := h.Completions[:0]
	for _, d := range h.Completions {
		if d != day {
			kept = append(kept, d)
		}
	}
	h.Completions = kept
	h.recompute(time.Now().Format(dayFormat))
	h.touch()
	if err := putRecord(m.store, CollectionHabits, h.ID, h); err != nil {
		return nil, err
	}
	return h, nil
}

// AddVacationDay excludes day from streak breakage.
func (m *HabitManager) AddVacationDay(id, day string) (*Habit, error) {
	if day == "" {
		day = time.Now().Format(dayFormat)
	}
	h, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	for _, d := range h.VacationDays {
		if d == day {
			return h, nil
		}
	}
	h.VacationDays = append(h.VacationDays, day)
	sort.Strings(h.VacationDays)
	h.recompute(time.Now().Format(dayFormat))
	h.touch()
	if err := putRecord(m.store, CollectionHabits, h.ID, h); err != nil {
		return nil, err
	}
	return h, nil
}

// RemoveVacationDay undoes AddVacationDay.
func (m *HabitManager) RemoveVacationDay(id, day string) (*Habit, error) {
	h, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	kept := h.VacationDays[:0]
	for _, d := range h.VacationDays {
		if d != day {
			kept = append(kept, d)
		}
	}
	h.VacationDays = kept
	h.recompute(time.Now().Format(dayFormat))
	h.touch()
	if err := putRecord(m.store, CollectionHabits, h.ID, h); err != nil {
		return nil, err
	}
	return h, nil
}

// recompute walks the calendar from the first completion through today and
// rebuilds StreakCurrent, StreakBest, and XP. A completed day extends the
// run, a vacation day bridges it without counting, any other past day
// breaks it. Today itself never breaks the run: the day is still open.
// XP: 10 per completion, +5 each time the running streak hits a multiple
// of seven.
func (h *Habit) recompute(today string) {
	done := make(map[string]bool, len(h.Completions))
	for _, d := range h.Completions {
		done[d] = true
	}
	vac := make(map[string]bool, len(h.VacationDays))
	for _, d := range h.VacationDays {
		vac[d] = true
	}

	if len(done) == 0 {
		h.StreakCurrent, h.StreakBest, h.XP = 0, 0, 0
		return
	}

	first := h.Completions[0]
	last := h.Completions[len(h.Completions)-1]
	end := today
	if last > end {
		end = last
	}

	start, err := time.Parse(dayFormat, first)
	if err != nil {
		h.StreakCurrent, h.StreakBest, h.XP = 0, 0, 0
		return
	}

	run, best, xp := 0, 0, 0
	for t := start; ; t = t.AddDate(0, 0, 1) {
		d := t.Format(dayFormat)
		switch {
		case done[d]:
			run++
			xp += 10
			if run%7 == 0 {
				xp += 5
			}
			if run > best {
				best = run
			}
		case vac[d]:
			// bridges the streak, counts nothing
		case d == today:
			// still open
		default:
			run = 0
		}
		if d >= end {
			break
		}
	}

	h.StreakCurrent = run
	h.StreakBest = best
	h.XP = xp
}

// HabitPayload is the import/export envelope for the habits collection.
type HabitPayload struct {
	Version    string
	ExportDate time.Time
	Records    []Habit
}

func (m *HabitManager) Export() (*HabitPayload, error) {
	all, err := m.List()
	if err != nil {
		return nil, err
	}
	return &HabitPayload{Version: "1.0", ExportDate: time.Now().UTC(), Records: all}, nil
}

// Import follows the shared import contract; derived streak fields are
// recomputed rather than trusted from the file.
func (m *HabitManager) Import(p *HabitPayload) (*ImportResult, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedImport)
	}
	if p.Version == "" {
		return nil, fmt.Errorf("%w: missing version field", ErrMalformedImport)
	}
	if p.Records == nil {
		return nil, fmt.Errorf("%w: missing habits array", ErrMalformedImport)
	}

	today := time.Now().Format(dayFormat)
	result := &ImportResult{}
	taken := make(map[string]bool)
	var records []RawRecord

	for _, h := range p.Records {
		if h.Name == "" {
			result.Skipped++
			result.Errors = append(result.Errors, ImportError{Identifier: h.ID, Error: "missing name"})
			continue
		}
		if h.ID != "" {
			_, exists, err := m.store.Get(CollectionHabits, h.ID)
			if err != nil {
				return nil, err
			}
			if exists || taken[h.ID] {
				h.ID = NewID("habit")
			}
		}
		ensureMeta(&h.Meta, "habit")
		taken[h.ID] = true
		if h.Completions == nil {
			h.Completions = []string{}
		}
		sort.Strings(h.Completions)
		if h.Cadence == "" {
			h.Cadence = CadenceDaily
		}
		h.recompute(today)

		data, err := marshalRecord(CollectionHabits, h.ID, h)
		if err != nil {
			return nil, err
		}
		records = append(records, RawRecord{ID: h.ID, Data: data})
		result.Imported++
	}

	if len(records) > 0 {
		if err := m.store.PutBatch(CollectionHabits, records); err != nil {
			return nil, err
		}
	}
	return result, nil
}
