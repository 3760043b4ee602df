package store

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestSchedule(t *testing.T) *ScheduleManager {
	t.Helper()
	return NewSchedule(newTestStore(t))
}

func mustEvent(t *testing.T, m *ScheduleManager, day, start, end, title string) *ScheduleEvent {
	t.Helper()
	ev, err := m.CreateEvent(ScheduleEventInput{
		Title:     title,
		Day:       day,
		StartTime: start,
		EndTime:   end,
		Type:      EventTask,
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return ev
}

// ============================================================
// Event CRUD
// ============================================================

func TestCreateEventDerivesDuration(t *testing.T) {
	m := newTestSchedule(t)

	ev := mustEvent(t, m, "2026-08-31", "09:00", "10:30", "Standup")
	if ev.Duration != 90 {
		t.Fatalf("expected 90 minutes, got %d", ev.Duration)
	}
	if !strings.HasPrefix(ev.ID, "event_") {
		t.Fatalf("unexpected id prefix: %s", ev.ID)
	}
}

func TestUpdateEventRecomputesDuration(t *testing.T) {
	m := newTestSchedule(t)

	ev := mustEvent(t, m, "2026-08-31", "09:00", "10:00", "Block")
	end := "11:00"
	got, err := m.UpdateEvent(ev.ID, ScheduleEventUpdate{EndTime: &end})
	if err != nil {
		t.Fatal(err)
	}
	if got.Duration != 120 {
		t.Fatalf("expected 120 minutes after update, got %d", got.Duration)
	}
}

func TestDeleteEvent(t *testing.T) {
	m := newTestSchedule(t)

	ev := mustEvent(t, m, "2026-08-31", "09:00", "10:00", "X")
	if err := m.DeleteEvent(ev.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := m.GetEvent(ev.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMoveEventPreservesDuration(t *testing.T) {
	m := newTestSchedule(t)

	ev := mustEvent(t, m, "2026-08-31", "09:00", "10:30", "Move me")
	moved, err := m.MoveEvent(ev.ID, "2026-09-01", "14:15")
	if err != nil {
		t.Fatal(err)
	}
	if moved.Day != "2026-09-01" || moved.StartTime != "14:15" {
		t.Fatalf("move ignored: %+v", moved)
	}
	if moved.EndTime != "15:45" {
		t.Fatalf("end not shifted with duration: %s", moved.EndTime)
	}
	if moved.Duration != 90 {
		t.Fatalf("duration changed on move: %d", moved.Duration)
	}
}

// ============================================================
// Queries
// ============================================================

func TestEventsForDaySortedByStart(t *testing.T) {
	m := newTestSchedule(t)

	mustEvent(t, m, "2026-08-31", "14:00", "15:00", "later")
	mustEvent(t, m, "2026-08-31", "08:00", "09:00", "earlier")
	mustEvent(t, m, "2026-09-01", "07:00", "08:00", "other day")

	events, err := m.EventsForDay("2026-08-31")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Title != "earlier" || events[1].Title != "later" {
		t.Fatalf("not sorted by start: %v %v", events[0].Title, events[1].Title)
	}
}

func TestEventsForRangeInclusive(t *testing.T) {
	m := newTestSchedule(t)

	mustEvent(t, m, "2026-08-30", "09:00", "10:00", "before")
	mustEvent(t, m, "2026-08-31", "09:00", "10:00", "first")
	mustEvent(t, m, "2026-09-02", "09:00", "10:00", "last")
	mustEvent(t, m, "2026-09-03", "09:00", "10:00", "after")

	events, err := m.EventsForRange("2026-08-31", "2026-09-02")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events in range, got %d", len(events))
	}
	if events[0].Title != "first" || events[1].Title != "last" {
		t.Fatalf("range boundaries wrong: %v", events)
	}
}

// ============================================================
// Conflicts
// ============================================================

func TestCheckConflictsHalfOpen(t *testing.T) {
	m := newTestSchedule(t)

	ev := mustEvent(t, m, "2026-08-31", "10:00", "11:00", "existing")

	cases := []struct {
		name       string
		start, end string
		want       int
	}{
		{"overlap middle", "10:30", "11:30", 1},
		{"contained", "10:15", "10:45", 1},
		{"containing", "09:00", "12:00", 1},
		{"identical", "10:00", "11:00", 1},
		{"touching end is free", "11:00", "12:00", 0},
		{"touching start is free", "09:00", "10:00", 0},
		{"disjoint", "13:00", "14:00", 0},
	}
	for _, tc := range cases {
		got, err := m.CheckConflicts("2026-08-31", tc.start, tc.end, "")
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if len(got) != tc.want {
			t.Errorf("%s: expected %d conflicts, got %d", tc.name, tc.want, len(got))
		}
	}

	// Excluding the event itself finds nothing.
	got, _ := m.CheckConflicts("2026-08-31", "10:00", "11:00", ev.ID)
	if len(got) != 0 {
		t.Fatalf("exclude id ignored: %d conflicts", len(got))
	}

	// Other days never conflict.
	got, _ = m.CheckConflicts("2026-09-01", "10:00", "11:00", "")
	if len(got) != 0 {
		t.Fatalf("conflict crossed days: %d", len(got))
	}
}

// ============================================================
// Available slots
// ============================================================

func TestAvailableSlotsEmptyDay(t *testing.T) {
	m := newTestSchedule(t)

	slots, err := m.AvailableSlots("2026-08-31", 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 1 {
		t.Fatalf("expected one open slot, got %d", len(slots))
	}
	if slots[0].Start != "06:00" || slots[0].End != "22:00" {
		t.Fatalf("slot should span the planning window: %+v", slots[0])
	}
	if slots[0].Duration != 16*60 {
		t.Fatalf("expected %d minutes, got %d", 16*60, slots[0].Duration)
	}
}

func TestAvailableSlotsGaps(t *testing.T) {
	m := newTestSchedule(t)

	mustEvent(t, m, "2026-08-31", "09:00", "10:00", "a")
	mustEvent(t, m, "2026-08-31", "12:00", "13:00", "b")

	slots, err := m.AvailableSlots("2026-08-31", 60)
	if err != nil {
		t.Fatal(err)
	}
	// 06-09, 10-12, 13-22
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d: %+v", len(slots), slots)
	}
	if slots[1].Start != "10:00" || slots[1].End != "12:00" || slots[1].Duration != 120 {
		t.Fatalf("middle gap wrong: %+v", slots[1])
	}
}

func TestAvailableSlotsMinDuration(t *testing.T) {
	m := newTestSchedule(t)

	mustEvent(t, m, "2026-08-31", "06:00", "21:30", "marathon")

	slots, _ := m.AvailableSlots("2026-08-31", 60)
	if len(slots) != 0 {
		t.Fatalf("30-minute tail should not satisfy 60-minute minimum: %+v", slots)
	}

	slots, _ = m.AvailableSlots("2026-08-31", 15)
	if len(slots) != 1 || slots[0].Duration != 30 {
		t.Fatalf("expected the 30-minute tail: %+v", slots)
	}
}

func TestAvailableSlotsOverlappingEvents(t *testing.T) {
	m := newTestSchedule(t)

	mustEvent(t, m, "2026-08-31", "09:00", "11:00", "a")
	mustEvent(t, m, "2026-08-31", "10:00", "12:00", "b")

	slots, _ := m.AvailableSlots("2026-08-31", 60)
	// Overlap merges: busy 09-12
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots around merged block, got %+v", slots)
	}
	if slots[0].End != "09:00" || slots[1].Start != "12:00" {
		t.Fatalf("merge wrong: %+v", slots)
	}
}

func TestAvailableSlotsWindowOverride(t *testing.T) {
	s := newTestStore(t)
	m := NewSchedule(s)

	s.SetSetting("schedule_start_hour", "9")
	s.SetSetting("schedule_end_hour", "17")

	slots, err := m.AvailableSlots("2026-08-31", 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 1 || slots[0].Start != "09:00" || slots[0].End != "17:00" {
		t.Fatalf("settings window not honored: %+v", slots)
	}

	// Garbage falls back to the defaults
	s.SetSetting("schedule_start_hour", "not an hour")
	slots, _ = m.AvailableSlots("2026-08-31", 30)
	if slots[0].Start != "06:00" {
		t.Fatalf("bad setting should fall back: %+v", slots)
	}
}

// ============================================================
// Summary
// ============================================================

func TestTodaySummary(t *testing.T) {
	m := newTestSchedule(t)

	today := time.Now().Format("2006-01-02")
	mustEvent(t, m, today, "09:00", "10:00", "one")
	mustEvent(t, m, today, "11:00", "11:30", "two")
	mustEvent(t, m, "1999-01-01", "09:00", "10:00", "past")

	sum, err := m.TodaySummary()
	if err != nil {
		t.Fatal(err)
	}
	if sum.TotalEvents != 2 {
		t.Fatalf("expected 2 events, got %d", sum.TotalEvents)
	}
	if sum.TotalDuration != 90 {
		t.Fatalf("expected 90 minutes, got %d", sum.TotalDuration)
	}
	if sum.ByType[EventTask] != 2 {
		t.Fatalf("by-type count wrong: %+v", sum.ByType)
	}
}

// ============================================================
// Export / import
// ============================================================

func TestScheduleImportStructural(t *testing.T) {
	m := newTestSchedule(t)

	_, err := m.Import(&SchedulePayload{Version: "1"})
	if !errors.Is(err, ErrMalformedImport) || !strings.Contains(err.Error(), "missing schedule array") {
		t.Fatalf("expected missing schedule array, got %v", err)
	}
}

func TestScheduleExportImportRoundTrip(t *testing.T) {
	m := newTestSchedule(t)
	mustEvent(t, m, "2026-08-31", "09:00", "10:00", "keep")

	payload, err := m.Export()
	if err != nil {
		t.Fatal(err)
	}

	m2 := newTestSchedule(t)
	res, err := m2.Import(payload)
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}

	events, _ := m2.EventsForDay("2026-08-31")
	if len(events) != 1 || events[0].Title != "keep" {
		t.Fatalf("round trip lost event: %v", events)
	}
}

// ============================================================
// Clock parsing
// ============================================================

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"00:00", 0},
		{"06:00", 360},
		{"09:30", 570},
		{"22:00", 1320},
		{"garbage", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := parseClock(tc.in); got != tc.want {
			t.Errorf("parseClock(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	if got := formatClock(570); got != "09:30" {
		t.Fatalf("formatClock(570) = %q", got)
	}
	if got := formatClock(0); got != "00:00" {
		t.Fatalf("formatClock(0) = %q", got)
	}
}
