package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dayloop/dayloop/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func intPtr(n int) *int { return &n }

// ============================================================
// Routines file round trip
// ============================================================

func TestWriteReadRoutines(t *testing.T) {
	s := newTestStore(t)
	rm := store.NewRoutines(s)
	rm.Create(store.RoutineInput{
		Name:  "Morning",
		Steps: []store.StepInput{{Name: "stretch", Duration: intPtr(120)}},
	})

	path := filepath.Join(t.TempDir(), "routines.json")
	if err := WriteRoutines(rm, path); err != nil {
		t.Fatal(err)
	}

	// File must carry the envelope shape
	raw, _ := os.ReadFile(path)
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"version", "exportDate", "routines"} {
		if _, ok := doc[key]; !ok {
			t.Fatalf("envelope missing %q: %s", key, raw)
		}
	}

	// Import into a fresh store
	s2 := newTestStore(t)
	rm2 := store.NewRoutines(s2)
	res, err := ReadRoutines(rm2, path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}

	items, _ := rm2.List(store.ListOptions{})
	if len(items) != 1 || items[0].Name != "Morning" {
		t.Fatalf("round trip lost routine: %v", items)
	}
	if items[0].TotalDuration != 120 {
		t.Fatalf("derived total lost: %d", items[0].TotalDuration)
	}
}

func TestWriteRoutinesSubset(t *testing.T) {
	s := newTestStore(t)
	rm := store.NewRoutines(s)
	keep, _ := rm.Create(store.RoutineInput{Name: "Keep"})
	rm.Create(store.RoutineInput{Name: "Drop"})

	path := filepath.Join(t.TempDir(), "subset.json")
	if err := WriteRoutines(rm, path, keep.ID); err != nil {
		t.Fatal(err)
	}

	s2 := newTestStore(t)
	rm2 := store.NewRoutines(s2)
	res, err := ReadRoutines(rm2, path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 1 {
		t.Fatalf("expected only the selected routine: %+v", res)
	}
}

// ============================================================
// Malformed files
// ============================================================

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadRoutinesMissingVersion(t *testing.T) {
	s := newTestStore(t)
	rm := store.NewRoutines(s)

	path := writeFile(t, `{"routines": []}`)
	_, err := ReadRoutines(rm, path)
	if !errors.Is(err, store.ErrMalformedImport) {
		t.Fatalf("expected ErrMalformedImport, got %v", err)
	}
	if !strings.Contains(err.Error(), "missing version field") {
		t.Fatalf("wrong message: %v", err)
	}
}

func TestReadRoutinesMissingArray(t *testing.T) {
	s := newTestStore(t)
	rm := store.NewRoutines(s)

	path := writeFile(t, `{"version": "1.0"}`)
	_, err := ReadRoutines(rm, path)
	if !errors.Is(err, store.ErrMalformedImport) {
		t.Fatalf("expected ErrMalformedImport, got %v", err)
	}
	if !strings.Contains(err.Error(), "missing routines array") {
		t.Fatalf("wrong message: %v", err)
	}
}

func TestReadRoutinesEmptyArrayOK(t *testing.T) {
	s := newTestStore(t)
	rm := store.NewRoutines(s)

	path := writeFile(t, `{"version": "1.0", "routines": []}`)
	res, err := ReadRoutines(rm, path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 0 || res.Skipped != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestReadRoutinesNotJSON(t *testing.T) {
	s := newTestStore(t)
	rm := store.NewRoutines(s)

	path := writeFile(t, `this is not json`)
	if _, err := ReadRoutines(rm, path); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestReadRoutinesMissingFile(t *testing.T) {
	s := newTestStore(t)
	rm := store.NewRoutines(s)

	if _, err := ReadRoutines(rm, filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// ============================================================
// Other collections
// ============================================================

func TestWriteReadSchedule(t *testing.T) {
	s := newTestStore(t)
	sm := store.NewSchedule(s)
	sm.CreateEvent(store.ScheduleEventInput{
		Title: "Standup", Day: "2026-08-31", StartTime: "09:00", EndTime: "09:15", Type: store.EventMeeting,
	})

	path := filepath.Join(t.TempDir(), "schedule.json")
	if err := WriteSchedule(sm, path); err != nil {
		t.Fatal(err)
	}

	s2 := newTestStore(t)
	sm2 := store.NewSchedule(s2)
	res, err := ReadSchedule(sm2, path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	events, _ := sm2.EventsForDay("2026-08-31")
	if len(events) != 1 || events[0].Duration != 15 {
		t.Fatalf("schedule round trip wrong: %+v", events)
	}
}

func TestWriteReadHabits(t *testing.T) {
	s := newTestStore(t)
	hm := store.NewHabits(s)
	h, _ := hm.Create(store.HabitInput{Name: "Read"})
	hm.MarkComplete(h.ID, "")

	path := filepath.Join(t.TempDir(), "habits.json")
	if err := WriteHabits(hm, path); err != nil {
		t.Fatal(err)
	}

	s2 := newTestStore(t)
	hm2 := store.NewHabits(s2)
	res, err := ReadHabits(hm2, path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	items, _ := hm2.List()
	if items[0].StreakCurrent != 1 {
		t.Fatalf("streak not recomputed on import: %d", items[0].StreakCurrent)
	}
}

func TestWriteReadTemplates(t *testing.T) {
	s := newTestStore(t)
	tm := store.NewTemplates(s)
	tm.Create(store.TemplateInput{Name: "Review", Type: store.TemplateTask, DueOffset: "7"})

	path := filepath.Join(t.TempDir(), "templates.json")
	if err := WriteTemplates(tm, path); err != nil {
		t.Fatal(err)
	}

	s2 := newTestStore(t)
	tm2 := store.NewTemplates(s2)
	res, err := ReadTemplates(tm2, path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

// ============================================================
// Bundle
// ============================================================

func TestBundleRoundTrip(t *testing.T) {
	s := newTestStore(t)
	sm := store.NewSchedule(s)
	sm.CreateEvent(store.ScheduleEventInput{
		Title: "Plan", Day: "2026-08-31", StartTime: "08:00", EndTime: "08:30", Type: store.EventTask,
	})
	s.SetBraindump("remember the milk")

	path := filepath.Join(t.TempDir(), "bundle.json")
	if err := WriteBundle(s, sm, path); err != nil {
		t.Fatal(err)
	}

	s2 := newTestStore(t)
	sm2 := store.NewSchedule(s2)
	res, err := ReadBundle(s2, sm2, path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}

	text, _ := s2.Braindump()
	if text != "remember the milk" {
		t.Fatalf("braindump lost: %q", text)
	}
	events, _ := sm2.EventsForDay("2026-08-31")
	if len(events) != 1 {
		t.Fatalf("bundle lost schedule: %v", events)
	}
}

func TestBundleMissingBraindumpLeavesExisting(t *testing.T) {
	s := newTestStore(t)
	sm := store.NewSchedule(s)
	s.SetBraindump("keep me")

	path := writeFile(t, `{"version": "1.0", "exportedAt": "2026-08-31T00:00:00Z", "schedule": []}`)
	if _, err := ReadBundle(s, sm, path); err != nil {
		t.Fatal(err)
	}

	text, _ := s.Braindump()
	if text != "keep me" {
		t.Fatalf("absent braindump key overwrote setting: %q", text)
	}
}

func TestBundleMissingScheduleMalformed(t *testing.T) {
	s := newTestStore(t)
	sm := store.NewSchedule(s)

	path := writeFile(t, `{"version": "1.0", "braindump": "x"}`)
	_, err := ReadBundle(s, sm, path)
	if !errors.Is(err, store.ErrMalformedImport) {
		t.Fatalf("expected ErrMalformedImport, got %v", err)
	}
}

// ============================================================
// CSV
// ============================================================

func TestScheduleToCSV(t *testing.T) {
	events := []store.ScheduleEvent{
		{
			Meta: store.Meta{ID: "event_1"}, Title: "Standup, daily", Day: "2026-08-31",
			StartTime: "09:00", EndTime: "09:15", Type: store.EventMeeting, Duration: 15,
			Notes: "has \"quotes\"",
		},
		{
			Meta: store.Meta{ID: "event_2"}, Title: "Deep work", Day: "2026-08-31",
			StartTime: "10:00", EndTime: "12:00", Type: store.EventTask, Duration: 120,
		},
	}

	path := filepath.Join(t.TempDir(), "schedule.csv")
	if err := ScheduleToCSV(events, path); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "ID" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][5] != "Standup, daily" {
		t.Fatalf("comma in title not preserved: %v", rows[1])
	}
	if rows[2][6] != "02:00" {
		t.Fatalf("duration not formatted: %v", rows[2])
	}
}

func TestScheduleToCSVEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := ScheduleToCSV(nil, path); err != nil {
		t.Fatal(err)
	}

	f, _ := os.Open(path)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %d rows", len(rows))
	}
}
