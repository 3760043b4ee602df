package store

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Default business window for AvailableSlots, hours of day. Overridable
// through the schedule_start_hour / schedule_end_hour settings.
const (
	ScheduleStartHour = 6
	ScheduleEndHour   = 22
)

// ScheduleManager owns the schedule collection.
type ScheduleManager struct {
	store *Store
}

func NewSchedule(s *Store) *ScheduleManager {
	return &ScheduleManager{store: s}
}

// parseClock converts "HH:MM" to minutes since midnight. Malformed input
// reads as 0; the store stays permissive and the forms validate.
func parseClock(s string) int {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0
	}
	hh, err1 := strconv.Atoi(h)
	mm, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil {
		return 0
	}
	return hh*60 + mm
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ScheduleEventInput is caller-supplied event data.
type ScheduleEventInput struct {
	ID        string
	Title     string
	Day       string // YYYY-MM-DD
	StartTime string // HH:MM
	EndTime   string
	Type      string
	RoutineID string
	Notes     string
}

// CreateEvent persists a new event with its duration derived from the
// time range.
func (m *ScheduleManager) CreateEvent(in ScheduleEventInput) (*ScheduleEvent, error) {
	ev := ScheduleEvent{
		Title:     in.Title,
		Day:       in.Day,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Type:      in.Type,
		RoutineID: in.RoutineID,
		Notes:     in.Notes,
		Duration:  parseClock(in.EndTime) - parseClock(in.StartTime),
	}
	if in.ID != "" {
		ev.ID = in.ID
		ensureMeta(&ev.Meta, "event")
	} else {
		ev.Meta = newMeta("event")
	}
	if err := putRecord(m.store, CollectionSchedule, ev.ID, ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// GetEvent returns the event or a NotFound error.
func (m *ScheduleManager) GetEvent(id string) (*ScheduleEvent, error) {
	ev, found, err := getRecord[ScheduleEvent](m.store, CollectionSchedule, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("event %q: %w", id, ErrNotFound)
	}
	return ev, nil
}

// ScheduleEventUpdate carries the fields UpdateEvent may change.
type ScheduleEventUpdate struct {
	Title     *string
	Day       *string
	StartTime *string
	EndTime   *string
	Type      *string
	Notes     *string
}

// UpdateEvent applies the set fields and recomputes the derived duration.
func (m *ScheduleManager) UpdateEvent(id string, upd ScheduleEventUpdate) (*ScheduleEvent, error) {
	ev, err := m.GetEvent(id)
	if err != nil {
		return nil, err
	}
	if upd.Title != nil {
		ev.Title = *upd.Title
	}
	if upd.Day != nil {
		ev.Day = *upd.Day
	}
	if upd.StartTime != nil {
		ev.StartTime = *upd.StartTime
	}
	if upd.EndTime != nil {
		ev.EndTime = *upd.EndTime
	}
	if upd.Type != nil {
		ev.Type = *upd.Type
	}
	if upd.Notes != nil {
		ev.Notes = *upd.Notes
	}
	ev.Duration = parseClock(ev.EndTime) - parseClock(ev.StartTime)
	ev.touch()
	if err := putRecord(m.store, CollectionSchedule, ev.ID, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// DeleteEvent removes the event.
func (m *ScheduleManager) DeleteEvent(id string) error {
	deleted, err := m.store.Delete(CollectionSchedule, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("event %q: %w", id, ErrNotFound)
	}
	return nil
}

// MoveEvent relocates the event, preserving its original duration: the new
// end time is newStart + duration.
func (m *ScheduleManager) MoveEvent(id, newDay, newStart string) (*ScheduleEvent, error) {
	ev, err := m.GetEvent(id)
	if err != nil {
		return nil, err
	}
	dur := ev.Duration
	ev.Day = newDay
	ev.StartTime = newStart
	ev.EndTime = formatClock(parseClock(newStart) + dur)
	ev.Duration = dur
	ev.touch()
	if err := putRecord(m.store, CollectionSchedule, ev.ID, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func (m *ScheduleManager) allSortedByStart() ([]ScheduleEvent, error) {
	all, err := getAllRecords[ScheduleEvent](m.store, CollectionSchedule)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Day != all[j].Day {
			return all[i].Day < all[j].Day
		}
		return all[i].StartTime < all[j].StartTime
	})
	return all, nil
}

// EventsForDay returns the day's events sorted by start time.
func (m *ScheduleManager) EventsForDay(day string) ([]ScheduleEvent, error) {
	return m.EventsForRange(day, day)
}

// EventsForRange returns events with startDay <= day <= endDay, both
// endpoints inclusive. Comparison is lexicographic, valid because of the
// fixed-width ISO date format.
func (m *ScheduleManager) EventsForRange(startDay, endDay string) ([]ScheduleEvent, error) {
	all, err := m.allSortedByStart()
	if err != nil {
		return nil, err
	}
	var out []ScheduleEvent
	for _, ev := range all {
		if ev.Day >= startDay && ev.Day <= endDay {
			out = append(out, ev)
		}
	}
	return out, nil
}

// EventsForWeek returns events from today through six days out.
func (m *ScheduleManager) EventsForWeek() ([]ScheduleEvent, error) {
	now := time.Now()
	start := now.Format("2006-01-02")
	end := now.AddDate(0, 0, 6).Format("2006-01-02")
	return m.EventsForRange(start, end)
}

// CheckConflicts returns every event on day whose interval overlaps
// [start,end). The test is half-open: an event ending at start, or
// starting at end, does not conflict. excludeID skips the event itself
// when checking a move.
func (m *ScheduleManager) CheckConflicts(day, start, end, excludeID string) ([]ScheduleEvent, error) {
	events, err := m.EventsForDay(day)
	if err != nil {
		return nil, err
	}
	var out []ScheduleEvent
	for _, ev := range events {
		if ev.ID == excludeID {
			continue
		}
		// Fixed-width HH:MM compares correctly as strings.
		if ev.StartTime < end && ev.EndTime > start {
			out = append(out, ev)
		}
	}
	return out, nil
}

// windowHour reads an hour-of-day setting, falling back when unset or
// out of range.
func (m *ScheduleManager) windowHour(key string, fallback int) int {
	v, err := m.store.GetSetting(key)
	if err != nil {
		return fallback
	}
	h, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || h < 0 || h > 24 {
		return fallback
	}
	return h
}

// AvailableSlots computes the free gaps of at least minDuration minutes
// between the day's booked intervals, within the business window.
func (m *ScheduleManager) AvailableSlots(day string, minDuration int) ([]Slot, error) {
	events, err := m.EventsForDay(day)
	if err != nil {
		return nil, err
	}

	windowStart := m.windowHour("schedule_start_hour", ScheduleStartHour) * 60
	windowEnd := m.windowHour("schedule_end_hour", ScheduleEndHour) * 60

	type interval struct{ start, end int }
	var booked []interval
	for _, ev := range events {
		s, e := parseClock(ev.StartTime), parseClock(ev.EndTime)
		if e <= windowStart || s >= windowEnd {
			continue
		}
		if s < windowStart {
			s = windowStart
		}
		if e > windowEnd {
			e = windowEnd
		}
		booked = append(booked, interval{s, e})
	}
	sort.Slice(booked, func(i, j int) bool { return booked[i].start < booked[j].start })

	// Merge overlapping intervals.
	var merged []interval
	for _, iv := range booked {
		if len(merged) > 0 && iv.start <= merged[len(merged)-1].end {
			if iv.end > merged[len(merged)-1].end {
				merged[len(merged)-1].end = iv.end
			}
			continue
		}
		merged = append(merged, iv)
	}

	var slots []Slot
	cursor := windowStart
	for _, iv := range merged {
		if iv.start-cursor >= minDuration {
			slots = append(slots, Slot{
				Start:    formatClock(cursor),
				End:      formatClock(iv.start),
				Duration: iv.start - cursor,
			})
		}
		cursor = iv.end
	}
	if windowEnd-cursor >= minDuration {
		slots = append(slots, Slot{
			Start:    formatClock(cursor),
			End:      formatClock(windowEnd),
			Duration: windowEnd - cursor,
		})
	}
	return slots, nil
}

// TodaySummary aggregates today's events by count, total minutes, and type.
func (m *ScheduleManager) TodaySummary() (*DaySummary, error) {
	day := time.Now().Format("2006-01-02")
	events, err := m.EventsForDay(day)
	if err != nil {
		return nil, err
	}
	sum := &DaySummary{Day: day, ByType: map[string]int{}}
	for _, ev := range events {
		sum.TotalEvents++
		sum.TotalDuration += ev.Duration
		sum.ByType[ev.Type]++
	}
	return sum, nil
}

// SchedulePayload is the import/export envelope for the schedule collection.
type SchedulePayload struct {
	Version    string
	ExportDate time.Time
	Records    []ScheduleEvent
}

// Export packages the whole schedule into a versioned payload.
func (m *ScheduleManager) Export() (*SchedulePayload, error) {
	all, err := m.allSortedByStart()
	if err != nil {
		return nil, err
	}
	return &SchedulePayload{Version: "1.0", ExportDate: time.Now().UTC(), Records: all}, nil
}

// Import mirrors the routines import contract: structural checks up front,
// id-collision regeneration, per-record errors collected, one atomic batch.
func (m *ScheduleManager) Import(p *SchedulePayload) (*ImportResult, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedImport)
	}
	if p.Version == "" {
		return nil, fmt.Errorf("%w: missing version field", ErrMalformedImport)
	}
	if p.Records == nil {
		return nil, fmt.Errorf("%w: missing schedule array", ErrMalformedImport)
	}

	result := &ImportResult{}
	taken := make(map[string]bool)
	var records []RawRecord

	for _, ev := range p.Records {
		if ev.Title == "" {
			result.Skipped++
			result.Errors = append(result.Errors, ImportError{Identifier: ev.ID, Error: "missing title"})
			continue
		}
		if ev.ID != "" {
			_, exists, err := m.store.Get(CollectionSchedule, ev.ID)
			if err != nil {
				return nil, err
			}
			if exists || taken[ev.ID] {
				ev.ID = NewID("event")
			}
		}
		ensureMeta(&ev.Meta, "event")
		taken[ev.ID] = true
		ev.Duration = parseClock(ev.EndTime) - parseClock(ev.StartTime)

		data, err := marshalRecord(CollectionSchedule, ev.ID, ev)
		if err != nil {
			return nil, err
		}
		records = append(records, RawRecord{ID: ev.ID, Data: data})
		result.Imported++
	}

	if len(records) > 0 {
		if err := m.store.PutBatch(CollectionSchedule, records); err != nil {
			return nil, err
		}
	}
	return result, nil
}
