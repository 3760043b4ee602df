package store

import "time"

// Energy tags for routine filtering.
const (
	EnergyLow    = "low"
	EnergyMedium = "medium"
	EnergyHigh   = "high"
)

// Step is one timed step inside a routine or sequence. Order is always a
// dense 0-based permutation of the array index after any mutation.
type Step struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Duration    int    `json:"duration"` // seconds
	Order       int    `json:"order"`
	Description string `json:"description,omitempty"`
}

// Routine is an ordered-step entity. The sequences collection stores the
// same shape under a different name.
type Routine struct {
	Meta
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Steps         []Step     `json:"steps"`
	TotalDuration int        `json:"totalDuration"` // derived: sum of step durations
	Tags          []string   `json:"tags,omitempty"`
	EnergyTag     string     `json:"energyTag,omitempty"`
	LastUsed      *time.Time `json:"lastUsed,omitempty"`
	ImportedAt    *time.Time `json:"importedAt,omitempty"`
}

// StepInput is caller-supplied step data. A nil Duration gets the default
// of 60 seconds; an explicit value is stored as-is, negative included
// (validation is the form layer's job).
type StepInput struct {
	Name        string
	Duration    *int
	Description string
}

// RoutineInput is caller-supplied routine data for Create/CreateBatch.
type RoutineInput struct {
	ID          string // optional; generated when empty
	Name        string
	Description string
	Steps       []StepInput
	Tags        []string
	EnergyTag   string
}

// RoutineFilter AND-combines all supplied criteria.
type RoutineFilter struct {
	Tags         []string
	MinDuration  *int // seconds
	MaxDuration  *int
	EnergyTag    string
	RecentlyUsed bool // LastUsed within the trailing 7 days
}

// ListOptions control sorting for List. An empty SortBy returns records in
// natural storage order.
type ListOptions struct {
	SortBy string // "name", "totalDuration", "updatedAt", "lastUsed"
	Order  string // "asc" (default) or "desc"
}

// Event types for schedule entries.
const (
	EventRoutine = "routine"
	EventTask    = "task"
	EventMeeting = "meeting"
	EventHabit   = "habit"
)

// ScheduleEvent is one block on the calendar. RoutineID is a soft
// reference: the routine may have been deleted since.
type ScheduleEvent struct {
	Meta
	Title     string `json:"title"`
	Day       string `json:"day"`       // YYYY-MM-DD
	StartTime string `json:"startTime"` // HH:MM
	EndTime   string `json:"endTime"`
	Type      string `json:"type"`
	RoutineID string `json:"routineId,omitempty"`
	Notes     string `json:"notes,omitempty"`
	Duration  int    `json:"duration"` // minutes, derived from the time range
}

// Slot is a free interval emitted by AvailableSlots.
type Slot struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Duration int    `json:"duration"` // minutes
}

// DaySummary aggregates one day's events.
type DaySummary struct {
	Day           string         `json:"day"`
	TotalEvents   int            `json:"totalEvents"`
	TotalDuration int            `json:"totalDuration"` // minutes
	ByType        map[string]int `json:"byType"`
}

// Template types.
const (
	TemplateTask    = "task"
	TemplateRoutine = "routine"
)

// Template is a reusable prototype of a task or a routine. Type
// discriminates which variant's fields are meaningful.
type Template struct {
	Meta
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`

	// task variant
	DueOffset *int   `json:"dueOffset,omitempty"` // days from instantiation
	Priority  string `json:"priority,omitempty"`

	// routine variant
	Steps             []Step `json:"steps,omitempty"`
	EstimatedDuration *int   `json:"estimatedDuration,omitempty"` // seconds
}

// Habit cadences.
const (
	CadenceDaily  = "daily"
	CadenceWeekly = "weekly"
)

// Habit tracks completions by date. Streaks and XP are derived and
// recomputed on every write; VacationDays bridge streak gaps without
// counting as completions.
type Habit struct {
	Meta
	Name          string   `json:"name"`
	Cadence       string   `json:"cadence"`
	Completions   []string `json:"completions"` // YYYY-MM-DD, sorted ascending
	VacationDays  []string `json:"vacationDays,omitempty"`
	StreakCurrent int      `json:"streakCurrent"`
	StreakBest    int      `json:"streakBest"`
	XP            int      `json:"xp"`
}

// Setting is one key/value pair in the settings collection.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ImportError records one unusable record inside an otherwise valid import.
type ImportError struct {
	Identifier string `json:"identifier"`
	Error      string `json:"error"`
}

// ImportResult reports the outcome of an import. Per-record problems land
// in Errors and never abort the batch.
type ImportResult struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}
