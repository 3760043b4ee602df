package tui

import (
	"fmt"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dayloop/dayloop/internal/store"
)

const habitChartDays = 14

type habitsModel struct {
	habits *store.HabitManager
	width  int
	height int

	items  []store.Habit
	cursor int

	chart barchart.Model

	formActive bool
	form       *huh.Form

	formName    *string
	formCadence *string
}

func newHabitsModel(hm *store.HabitManager) habitsModel {
	name, cadence := "", store.CadenceDaily
	return habitsModel{
		habits:      hm,
		chart:       barchart.New(60, 8),
		formName:    &name,
		formCadence: &cadence,
	}
}

func (h *habitsModel) setSize(w, h2 int) {
	h.width = w
	h.height = h2
}

type habitsDataMsg struct {
	items []store.Habit
}

func (h habitsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		items, _ := h.habits.List()
		return habitsDataMsg{items: items}
	}
}

func (h habitsModel) update(msg tea.Msg) (habitsModel, tea.Cmd) {
	if h.formActive && h.form != nil {
		return h.updateForm(msg)
	}

	switch msg := msg.(type) {
	case habitsDataMsg:
		h.items = msg.items
		if h.cursor >= len(h.items) {
			h.cursor = max(0, len(h.items)-1)
		}
		h.rebuildChart()
		return h, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if h.cursor > 0 {
				h.cursor--
			}
			h.rebuildChart()
		case key.Matches(msg, keys.Down):
			if h.cursor < len(h.items)-1 {
				h.cursor++
			}
			h.rebuildChart()
		case key.Matches(msg, keys.Complete), key.Matches(msg, keys.Enter):
			if len(h.items) > 0 {
				if _, err := h.habits.MarkComplete(h.items[h.cursor].ID, ""); err != nil {
					return h, errStatus(err)
				}
				return h, h.refresh()
			}
		case key.Matches(msg, keys.Vacation):
			if len(h.items) > 0 {
				if _, err := h.habits.AddVacationDay(h.items[h.cursor].ID, ""); err != nil {
					return h, errStatus(err)
				}
				return h, h.refresh()
			}
		case key.Matches(msg, keys.New):
			return h.showNewForm()
		case key.Matches(msg, keys.Delete):
			if len(h.items) > 0 {
				if err := h.habits.Delete(h.items[h.cursor].ID); err != nil {
					return h, errStatus(err)
				}
				return h, h.refresh()
			}
		}
	}
	return h, nil
}

// rebuildChart redraws the completions-per-day bars for the selected habit
// over the trailing two weeks.
func (h *habitsModel) rebuildChart() {
	chartWidth := min(h.width-10, 64)
	if chartWidth < 20 {
		chartWidth = 20
	}
	h.chart = barchart.New(chartWidth, 8)

	if len(h.items) == 0 {
		return
	}
	habit := h.items[h.cursor]

	done := make(map[string]bool, len(habit.Completions))
	for _, d := range habit.Completions {
		done[d] = true
	}
	vac := make(map[string]bool, len(habit.VacationDays))
	for _, d := range habit.VacationDays {
		vac[d] = true
	}

	var bars []barchart.BarData
	now := time.Now()
	for i := habitChartDays - 1; i >= 0; i-- {
		d := now.AddDate(0, 0, -i)
		dateStr := d.Format("2006-01-02")
		label := d.Format("02")

		value := 0.0
		style := lipgloss.NewStyle().Foreground(colorSubtle)
		switch {
		case done[dateStr]:
			value = 1.0
			style = lipgloss.NewStyle().Foreground(colorSuccess)
		case vac[dateStr]:
			value = 0.5
			style = lipgloss.NewStyle().Foreground(colorWarning)
		}

		bars = append(bars, barchart.BarData{
			Label:  label,
			Values: []barchart.BarValue{{Name: habit.Name, Value: value, Style: style}},
		})
	}

	h.chart.PushAll(bars)
	h.chart.Draw()
}

func (h habitsModel) showNewForm() (habitsModel, tea.Cmd) {
	*h.formName = ""
	*h.formCadence = store.CadenceDaily

	h.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Habit Name").Value(h.formName),
			huh.NewSelect[string]().Title("Cadence").Options(
				huh.NewOption("Daily", store.CadenceDaily),
				huh.NewOption("Weekly", store.CadenceWeekly),
			).Value(h.formCadence),
		),
	).WithShowHelp(true).WithShowErrors(true)

	h.formActive = true
	return h, h.form.Init()
}

func (h habitsModel) updateForm(msg tea.Msg) (habitsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			h.formActive = false
			h.form = nil
			return h, nil
		}
	}

	form, cmd := h.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		h.form = f
	}

	if h.form.State == huh.StateCompleted {
		h.formActive = false
		if *h.formName != "" {
			if _, err := h.habits.Create(store.HabitInput{
				Name:    *h.formName,
				Cadence: *h.formCadence,
			}); err != nil {
				return h, errStatus(err)
			}
		}
		return h, h.refresh()
	}

	return h, cmd
}

func (h habitsModel) view() string {
	if h.formActive && h.form != nil {
		title := titleStyle.Render("New Habit")
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", h.form.View())
		return panelStyle.Width(h.width - 4).Render(content)
	}

	w := h.width - 4
	var rows []string
	rows = append(rows, titleStyle.Render("Habits"))
	rows = append(rows, "")

	if len(h.items) == 0 {
		rows = append(rows, mutedStyle.Render("No habits yet. Press n to create one."))
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	todayStr := today()
	for i, habit := range h.items {
		cursor := "  "
		style := normalItemStyle
		if i == h.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		mark := mutedStyle.Render("○")
		for _, d := range habit.Completions {
			if d == todayStr {
				mark = successStyle.Render("●")
				break
			}
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%s %-26s %-7s streak %d (best %d)  %d xp",
			cursor, mark, truncate(habit.Name, 26), habit.Cadence,
			habit.StreakCurrent, habit.StreakBest, habit.XP)))
	}

	rows = append(rows, "")
	rows = append(rows, accentStyle.Render(fmt.Sprintf("Last %d days — %s", habitChartDays, h.items[h.cursor].Name)))
	rows = append(rows, h.chart.View())
	rows = append(rows, mutedStyle.Render("c/enter: done today  v: vacation  n: new  d: delete"))
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
