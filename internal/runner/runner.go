// Package runner holds the transient execution state for a routine being
// actively performed. Nothing here is persisted; the TUI drives Tick from
// its refresh loop and the store only hears about a run through an explicit
// MarkUsed on start.
package runner

import (
	"time"

	"github.com/dayloop/dayloop/internal/store"
)

// State of a run.
type State int

const (
	Idle State = iota
	Running
	Paused
	Complete
)

var stateNames = map[State]string{
	Idle:     "idle",
	Running:  "running",
	Paused:   "paused",
	Complete: "complete",
}

func (s State) String() string { return stateNames[s] }

// StepResult records how one step ended.
type StepResult struct {
	StepID    string
	Name      string
	Duration  int // planned seconds
	Completed bool
	Skipped   bool
	Reason    string // skip reason, when skipped
}

// Run is the state machine for one routine execution. All methods are
// synchronous; the caller owns scheduling.
type Run struct {
	Routine store.Routine // snapshot taken at New

	State       State
	CurrentStep int
	Remaining   int // seconds left in the current step
	Elapsed     int // seconds spent overall
	StartedAt   time.Time

	results []StepResult
}

// New builds an idle run over a snapshot of the routine.
func New(rt store.Routine) *Run {
	return &Run{Routine: rt, State: Idle}
}

// Start transitions Idle -> Running on the first step. A routine with no
// steps completes immediately.
func (r *Run) Start() {
	if r.State != Idle {
		return
	}
	r.StartedAt = time.Now()
	if len(r.Routine.Steps) == 0 {
		r.State = Complete
		return
	}
	r.State = Running
	r.CurrentStep = 0
	r.Remaining = r.Routine.Steps[0].Duration
}

// Tick advances one second. Only Running runs move; on hitting zero the
// current step completes and the run advances.
func (r *Run) Tick() {
	if r.State != Running {
		return
	}
	r.Elapsed++
	r.Remaining--
	if r.Remaining <= 0 {
		r.finishStep(true, "")
	}
}

// TogglePause flips Running <-> Paused; a no-op from Idle or Complete.
func (r *Run) TogglePause() {
	switch r.State {
	case Running:
		r.State = Paused
	case Paused:
		r.State = Running
	}
}

// CompleteStep force-completes the current step regardless of remaining
// time.
func (r *Run) CompleteStep() {
	if r.State != Running && r.State != Paused {
		return
	}
	r.finishStep(true, "")
}

// SkipStep force-advances past the current step, recording why.
func (r *Run) SkipStep(reason string) {
	if r.State != Running && r.State != Paused {
		return
	}
	r.finishStep(false, reason)
}

func (r *Run) finishStep(completed bool, reason string) {
	st := r.Routine.Steps[r.CurrentStep]
	r.results = append(r.results, StepResult{
		StepID:    st.ID,
		Name:      st.Name,
		Duration:  st.Duration,
		Completed: completed,
		Skipped:   !completed,
		Reason:    reason,
	})
	r.CurrentStep++
	if r.CurrentStep >= len(r.Routine.Steps) {
		r.State = Complete
		return
	}
	if r.State == Paused {
		r.State = Running
	}
	r.Remaining = r.Routine.Steps[r.CurrentStep].Duration
}

// Cancel discards all progress and returns the run to Idle. Distinct from
// Complete: a cancelled run has no summary worth showing.
func (r *Run) Cancel() {
	r.State = Idle
	r.CurrentStep = 0
	r.Remaining = 0
	r.Elapsed = 0
	r.results = nil
}

// Progress is the elapsed/total ratio, clamped to [0,1]. Total is the
// routine's planned duration; a zero-duration routine reports 1 once
// complete.
func (r *Run) Progress() float64 {
	total := r.Routine.TotalDuration
	if total <= 0 {
		if r.State == Complete {
			return 1
		}
		return 0
	}
	p := float64(r.Elapsed) / float64(total)
	if p > 1 {
		p = 1
	}
	return p
}

// Summary aggregates the per-step outcomes so far.
type Summary struct {
	RoutineName string
	Completed   int
	Skipped     int
	Elapsed     int // seconds
	Steps       []StepResult
}

func (r *Run) Summary() Summary {
	s := Summary{
		RoutineName: r.Routine.Name,
		Elapsed:     r.Elapsed,
		Steps:       append([]StepResult(nil), r.results...),
	}
	for _, res := range r.results {
		if res.Completed {
			s.Completed++
		} else {
			s.Skipped++
		}
	}
	return s
}
