package store

import (
	"errors"
	"fmt"
	"sort"
)

// Settings live in their own collection, keyed by setting name. The
// braindump is one big markdown value under the "braindump" key so it
// rides along in the whole-app bundle.
const braindumpKey = "braindump"

var defaultSettings = map[string]string{
	"default_step_duration": "60",
	"week_start":            "monday",
	"schedule_start_hour":   "6",
	"schedule_end_hour":     "22",
	braindumpKey:            "",
}

func (s *Store) seedSettings() error {
	keys := make([]string, 0, len(defaultSettings))
	for k := range defaultSettings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, found, err := s.Get(CollectionSettings, k)
		if err != nil {
			return err
		}
		if found {
			continue
		}
		if err := putRecord(s, CollectionSettings, k, Setting{Key: k, Value: defaultSettings[k]}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetSetting(key string) (string, error) {
	set, found, err := getRecord[Setting](s, CollectionSettings, key)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("setting %q: %w", key, ErrNotFound)
	}
	return set.Value, nil
}

func (s *Store) SetSetting(key, value string) error {
	return putRecord(s, CollectionSettings, key, Setting{Key: key, Value: value})
}

func (s *Store) AllSettings() ([]Setting, error) {
	all, err := getAllRecords[Setting](s, CollectionSettings)
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Key < all[j].Key })
	return all, nil
}

// Braindump returns the free-form markdown scratchpad. A never-written
// braindump reads as empty.
func (s *Store) Braindump() (string, error) {
	v, err := s.GetSetting(braindumpKey)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

func (s *Store) SetBraindump(text string) error {
	return s.SetSetting(braindumpKey, text)
}
