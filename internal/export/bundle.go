package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dayloop/dayloop/internal/store"
)

// Bundle is the whole-app backup: the schedule plus the braindump text.
type Bundle struct {
	Version    string                `json:"version"`
	ExportedAt time.Time             `json:"exportedAt"`
	Schedule   []store.ScheduleEvent `json:"schedule"`
	Braindump  string                `json:"braindump"`
}

// WriteBundle writes the whole-app backup to path.
func WriteBundle(s *store.Store, sched *store.ScheduleManager, path string) error {
	p, err := sched.Export()
	if err != nil {
		return err
	}
	braindump, err := s.Braindump()
	if err != nil {
		return err
	}
	b := Bundle{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Schedule:   p.Records,
		Braindump:  braindump,
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal bundle: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	return nil
}

// ReadBundle restores a whole-app backup: the schedule goes through the
// schedule manager's import (collision regeneration and all), the
// braindump replaces the current one.
func ReadBundle(s *store.Store, sched *store.ScheduleManager, path string) (*store.ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrMalformedImport, err)
	}

	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrMalformedImport, err)
	}

	p := &store.SchedulePayload{Version: b.Version}
	if _, ok := raw["schedule"]; ok {
		p.Records = b.Schedule
		if p.Records == nil {
			p.Records = []store.ScheduleEvent{}
		}
	}
	result, err := sched.Import(p)
	if err != nil {
		return nil, err
	}

	if _, ok := raw["braindump"]; ok {
		if err := s.SetBraindump(b.Braindump); err != nil {
			return nil, err
		}
	}
	return result, nil
}
