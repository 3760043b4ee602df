package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dayloop/dayloop/internal/runner"
	"github.com/dayloop/dayloop/internal/store"
)

var energyTags = []string{store.EnergyLow, store.EnergyMedium, store.EnergyHigh}

type routinesModel struct {
	routines *store.RoutineManager
	width    int
	height   int

	items  []store.Routine
	cursor int

	// Active run. nil when nothing is being executed.
	run         *runner.Run
	showSummary bool

	formActive bool
	form       *huh.Form

	// Form field pointers (survive value copies)
	formName   *string
	formDesc   *string
	formEnergy *string
	formTags   *string
	formSteps  *string
}

func newRoutinesModel(rm *store.RoutineManager) routinesModel {
	name, desc, energy, tags, steps := "", "", store.EnergyMedium, "", ""
	return routinesModel{
		routines:   rm,
		formName:   &name,
		formDesc:   &desc,
		formEnergy: &energy,
		formTags:   &tags,
		formSteps:  &steps,
	}
}

func (r *routinesModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

func (r routinesModel) running() bool {
	return r.run != nil && (r.run.State == runner.Running || r.run.State == runner.Paused)
}

type routinesDataMsg struct {
	items []store.Routine
}

func (r routinesModel) refresh() tea.Cmd {
	return func() tea.Msg {
		items, _ := r.routines.List(store.ListOptions{SortBy: "name", Order: "asc"})
		return routinesDataMsg{items: items}
	}
}

func (r routinesModel) update(msg tea.Msg) (routinesModel, tea.Cmd) {
	if r.formActive && r.form != nil {
		return r.updateForm(msg)
	}

	switch msg := msg.(type) {
	case routinesDataMsg:
		r.items = msg.items
		if r.cursor >= len(r.items) {
			r.cursor = max(0, len(r.items)-1)
		}
		return r, nil

	case tickMsg:
		if r.run != nil && r.run.State == runner.Running {
			r.run.Tick()
			if r.run.State == runner.Complete {
				r.showSummary = true
				return r, func() tea.Msg { return runFinishedMsg{} }
			}
		}
		return r, nil

	case tea.KeyMsg:
		if r.run != nil {
			return r.updateRun(msg)
		}
		return r.updateList(msg)
	}
	return r, nil
}

func (r routinesModel) updateList(msg tea.KeyMsg) (routinesModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if r.cursor > 0 {
			r.cursor--
		}
	case key.Matches(msg, keys.Down):
		if r.cursor < len(r.items)-1 {
			r.cursor++
		}
	case key.Matches(msg, keys.New):
		return r.showNewForm()
	case key.Matches(msg, keys.Delete):
		if len(r.items) > 0 {
			rt := r.items[r.cursor]
			if err := r.routines.Delete(rt.ID); err != nil {
				return r, errStatus(err)
			}
			return r, r.refresh()
		}
	case key.Matches(msg, keys.Clone):
		if len(r.items) > 0 {
			if _, err := r.routines.Clone(r.items[r.cursor].ID, ""); err != nil {
				return r, errStatus(err)
			}
			return r, r.refresh()
		}
	case key.Matches(msg, keys.Start):
		if len(r.items) > 0 {
			return r.startRun(r.items[r.cursor])
		}
	}
	return r, nil
}

func (r routinesModel) startRun(rt store.Routine) (routinesModel, tea.Cmd) {
	run := runner.New(rt)
	run.Start()
	r.run = run
	r.showSummary = run.State == runner.Complete
	r.routines.MarkUsed(rt.ID)
	return r, func() tea.Msg { return runStartedMsg{routine: &rt} }
}

func (r routinesModel) updateRun(msg tea.KeyMsg) (routinesModel, tea.Cmd) {
	if r.showSummary {
		if key.Matches(msg, keys.Back) || key.Matches(msg, keys.Enter) {
			r.run = nil
			r.showSummary = false
			return r, r.refresh()
		}
		return r, nil
	}

	switch {
	case key.Matches(msg, keys.Pause):
		r.run.TogglePause()
	case key.Matches(msg, keys.Complete):
		r.run.CompleteStep()
	case key.Matches(msg, keys.Skip):
		r.run.SkipStep("skipped from runner")
	case key.Matches(msg, keys.Stop), key.Matches(msg, keys.Back):
		r.run.Cancel()
		r.run = nil
		return r, func() tea.Msg { return statusMsg{text: "Run cancelled"} }
	}
	if r.run != nil && r.run.State == runner.Complete {
		r.showSummary = true
		return r, func() tea.Msg { return runFinishedMsg{} }
	}
	return r, nil
}

func (r routinesModel) showNewForm() (routinesModel, tea.Cmd) {
	*r.formName = ""
	*r.formDesc = ""
	*r.formEnergy = store.EnergyMedium
	*r.formTags = ""
	*r.formSteps = ""

	energyOptions := make([]huh.Option[string], len(energyTags))
	for i, e := range energyTags {
		energyOptions[i] = huh.NewOption(e, e)
	}

	r.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Routine Name").Value(r.formName),
			huh.NewInput().Title("Description").Value(r.formDesc),
			huh.NewSelect[string]().Title("Energy").Options(energyOptions...).Value(r.formEnergy),
			huh.NewInput().Title("Tags (comma-separated)").Value(r.formTags),
			huh.NewText().Title("Steps (one per line: name | seconds)").Value(r.formSteps),
		),
	).WithShowHelp(true).WithShowErrors(true)

	r.formActive = true
	return r, r.form.Init()
}

func (r routinesModel) updateForm(msg tea.Msg) (routinesModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			r.formActive = false
			r.form = nil
			return r, nil
		}
	}

	form, cmd := r.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		r.form = f
	}

	if r.form.State == huh.StateCompleted {
		r.formActive = false
		if *r.formName != "" {
			_, err := r.routines.Create(store.RoutineInput{
				Name:        *r.formName,
				Description: *r.formDesc,
				EnergyTag:   *r.formEnergy,
				Tags:        splitTags(*r.formTags),
				Steps:       parseStepLines(*r.formSteps),
			})
			if err != nil {
				return r, errStatus(err)
			}
		}
		return r, r.refresh()
	}

	return r, cmd
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// parseStepLines turns "name | seconds" lines into step inputs. A missing
// or unparseable duration falls back to the manager's default.
func parseStepLines(text string) []store.StepInput {
	var steps []store.StepInput
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, durStr, _ := strings.Cut(line, "|")
		steps = append(steps, store.StepInput{
			Name:     strings.TrimSpace(name),
			Duration: store.CoerceInt(durStr),
		})
	}
	return steps
}

func errStatus(err error) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
	}
}

func (r routinesModel) view() string {
	if r.formActive && r.form != nil {
		title := titleStyle.Render("New Routine")
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", r.form.View())
		return panelStyle.Width(r.width - 4).Render(content)
	}
	if r.run != nil {
		if r.showSummary {
			return r.renderSummary()
		}
		return r.renderRun()
	}
	return r.renderList()
}

func (r routinesModel) renderList() string {
	w := r.width - 4
	title := titleStyle.Render("Routines")

	if len(r.items) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No routines yet. Press n to create one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	header := mutedStyle.Render(fmt.Sprintf("  %-3s %-28s %-8s %8s %8s", "", "Name", "Energy", "Steps", "Total"))
	rows = append(rows, header)
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 60))))

	for i, rt := range r.items {
		cursor := "  "
		style := normalItemStyle
		if i == r.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s  %-28s %-8s %8d %8s",
			cursor, truncate(rt.Name, 28), rt.EnergyTag, len(rt.Steps), formatSeconds(rt.TotalDuration),
		)))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  s: start  n: new  y: clone  d: delete"))
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (r routinesModel) renderRun() string {
	w := r.width - 4
	run := r.run
	st := run.Routine.Steps[run.CurrentStep]

	title := titleStyle.Render(run.Routine.Name)
	stepLabel := subtitleStyle.Render(fmt.Sprintf("Step %d of %d", run.CurrentStep+1, len(run.Routine.Steps)))
	stepName := highlightStyle.Bold(true).Render(st.Name)

	clockStyle := runnerClockStyle
	state := successStyle.Bold(true).Render("RUNNING")
	if run.State == runner.Paused {
		clockStyle = runnerPausedStyle
		state = warningStyle.Bold(true).Render("PAUSED")
	}
	clock := clockStyle.Width(w - 6).Render(formatStepClock(run.Remaining))

	bar := renderProgressBar(run.Progress(), min(w-10, 50))

	controls := mutedStyle.Render("space: pause  c: complete step  k: skip  x: cancel")

	return activePanelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Center,
			title, stepLabel, "", stepName, clock, state, "", bar, "", controls,
		),
	)
}

func (r routinesModel) renderSummary() string {
	w := r.width - 4
	sum := r.run.Summary()

	var rows []string
	rows = append(rows, titleStyle.Render("Routine Complete"))
	rows = append(rows, "")
	rows = append(rows, successStyle.Render(fmt.Sprintf("  %s — %d completed, %d skipped in %s",
		sum.RoutineName, sum.Completed, sum.Skipped, formatSeconds(sum.Elapsed))))
	rows = append(rows, "")

	for _, res := range sum.Steps {
		mark := successStyle.Render("✓")
		note := ""
		if res.Skipped {
			mark = warningStyle.Render("↷")
			note = mutedStyle.Render(" (" + res.Reason + ")")
		}
		rows = append(rows, fmt.Sprintf("  %s %s%s", mark, res.Name, note))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: back to routines"))
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func renderProgressBar(ratio float64, width int) string {
	if width < 4 {
		width = 4
	}
	filled := int(ratio * float64(width))
	if filled > width {
		filled = width
	}
	bar := successStyle.Render(strings.Repeat("█", filled)) +
		mutedStyle.Render(strings.Repeat("░", width-filled))
	return bar
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
