// Package export reads and writes the JSON backup files: one versioned
// envelope per collection, plus the whole-app bundle. All validation and
// collision handling lives in the managers; this package only moves
// payloads between disk and the manager API.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dayloop/dayloop/internal/store"
)

// writeEnvelope writes {"version", "exportDate", "<collection>": [...]}.
func writeEnvelope(path, collection, version string, exportDate time.Time, records any) error {
	doc := map[string]any{
		"version":    version,
		"exportDate": exportDate,
		collection:   records,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s export: %w", collection, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s export: %w", collection, err)
	}
	return nil
}

// readEnvelope decodes the envelope at path. A missing version or a
// missing collection key stays missing (empty string / false) so the
// manager's structural validation sees exactly what the file said.
func readEnvelope(path, collection string, records any) (version string, haveRecords bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, fmt.Errorf("read import file: %w", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", false, fmt.Errorf("%w: %v", store.ErrMalformedImport, err)
	}
	if v, ok := raw["version"]; ok {
		if err := json.Unmarshal(v, &version); err != nil {
			return "", false, fmt.Errorf("%w: version field: %v", store.ErrMalformedImport, err)
		}
	}
	if rec, ok := raw[collection]; ok {
		if err := json.Unmarshal(rec, records); err != nil {
			return "", false, fmt.Errorf("%w: %s array: %v", store.ErrMalformedImport, collection, err)
		}
		haveRecords = true
	}
	return version, haveRecords, nil
}

// WriteRoutines exports the manager's collection (or the ids subset) to
// path. Works for both the routines and sequences instances.
func WriteRoutines(m *store.RoutineManager, path string, ids ...string) error {
	p, err := m.Export(ids...)
	if err != nil {
		return err
	}
	return writeEnvelope(path, m.Collection(), p.Version, p.ExportDate, p.Records)
}

// ReadRoutines imports the file at path through the manager, returning its
// per-record result.
func ReadRoutines(m *store.RoutineManager, path string) (*store.ImportResult, error) {
	var records []store.Routine
	version, have, err := readEnvelope(path, m.Collection(), &records)
	if err != nil {
		return nil, err
	}
	p := &store.RoutinePayload{Version: version}
	if have {
		p.Records = records
		if p.Records == nil {
			p.Records = []store.Routine{}
		}
	}
	return m.Import(p)
}

func WriteSchedule(m *store.ScheduleManager, path string) error {
	p, err := m.Export()
	if err != nil {
		return err
	}
	return writeEnvelope(path, store.CollectionSchedule, p.Version, p.ExportDate, p.Records)
}

func ReadSchedule(m *store.ScheduleManager, path string) (*store.ImportResult, error) {
	var records []store.ScheduleEvent
	version, have, err := readEnvelope(path, store.CollectionSchedule, &records)
	if err != nil {
		return nil, err
	}
	p := &store.SchedulePayload{Version: version}
	if have {
		p.Records = records
		if p.Records == nil {
			p.Records = []store.ScheduleEvent{}
		}
	}
	return m.Import(p)
}

func WriteHabits(m *store.HabitManager, path string) error {
	p, err := m.Export()
	if err != nil {
		return err
	}
	return writeEnvelope(path, store.CollectionHabits, p.Version, p.ExportDate, p.Records)
}

func ReadHabits(m *store.HabitManager, path string) (*store.ImportResult, error) {
	var records []store.Habit
	version, have, err := readEnvelope(path, store.CollectionHabits, &records)
	if err != nil {
		return nil, err
	}
	p := &store.HabitPayload{Version: version}
	if have {
		p.Records = records
		if p.Records == nil {
			p.Records = []store.Habit{}
		}
	}
	return m.Import(p)
}

func WriteTemplates(m *store.TemplateManager, path string) error {
	p, err := m.Export()
	if err != nil {
		return err
	}
	return writeEnvelope(path, store.CollectionTemplates, p.Version, p.ExportDate, p.Records)
}

func ReadTemplates(m *store.TemplateManager, path string) (*store.ImportResult, error) {
	var records []store.Template
	version, have, err := readEnvelope(path, store.CollectionTemplates, &records)
	if err != nil {
		return nil, err
	}
	p := &store.TemplatePayload{Version: version}
	if have {
		p.Records = records
		if p.Records == nil {
			p.Records = []store.Template{}
		}
	}
	return m.Import(p)
}
