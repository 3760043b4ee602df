package tui

import (
	"fmt"
	"time"

	"github.com/dayloop/dayloop/internal/store"
)

// viewState represents the currently active view.
type viewState int

const (
	viewDashboard viewState = iota
	viewRoutines
	viewSchedule
	viewHabits
	viewLibrary
)

var viewNames = []string{"Dashboard", "Routines", "Schedule", "Habits", "Library"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type runStartedMsg struct {
	routine *store.Routine
}

type runFinishedMsg struct{}

type exportDoneMsg struct {
	path string
}

type importDoneMsg struct {
	path   string
	result *store.ImportResult
}

// --- Helpers ---

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatSeconds(secs int) string {
	return formatDuration(time.Duration(secs) * time.Second)
}

// formatStepClock renders a step countdown as MM:SS, clamped at zero.
func formatStepClock(secs int) string {
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func formatMinutes(mins int) string {
	if mins < 60 {
		return fmt.Sprintf("%dm", mins)
	}
	if mins%60 == 0 {
		return fmt.Sprintf("%dh", mins/60)
	}
	return fmt.Sprintf("%dh%02dm", mins/60, mins%60)
}

func today() string {
	return time.Now().Format("2006-01-02")
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
