package store

import (
	"time"

	"github.com/google/uuid"
)

// NewID generates a collision-resistant id with a semantic prefix,
// e.g. "routine_9f1c2a…". Safe for batch creation: uniqueness does not
// depend on the wall clock.
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// Meta is the base shape shared by all stored entities.
//
// UpdatedAt is the canonical ordering field. Timestamp (epoch millis) is
// kept populated for compatibility with previously exported files but is
// never consulted for sorting.
type Meta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Timestamp int64     `json:"timestamp"`
}

func newMeta(prefix string) Meta {
	now := time.Now().UTC()
	return Meta{
		ID:        NewID(prefix),
		CreatedAt: now,
		UpdatedAt: now,
		Timestamp: now.UnixMilli(),
	}
}

// touch refreshes UpdatedAt and Timestamp; ID and CreatedAt never change.
func (m *Meta) touch() {
	now := time.Now().UTC()
	m.UpdatedAt = now
	m.Timestamp = now.UnixMilli()
}

// ensureMeta fills any missing identity/timestamp fields on a record that
// arrived from outside (imports, batch creation with caller-supplied ids).
func ensureMeta(m *Meta, prefix string) {
	if m.ID == "" {
		m.ID = NewID(prefix)
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = now
	}
	if m.Timestamp == 0 {
		m.Timestamp = m.UpdatedAt.UnixMilli()
	}
}
