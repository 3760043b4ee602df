package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dayloop/dayloop/internal/store"
)

type dashboardModel struct {
	store    *store.Store
	routines *store.RoutineManager
	schedule *store.ScheduleManager
	habits   *store.HabitManager
	width    int
	height   int

	summary   *store.DaySummary
	upcoming  []store.ScheduleEvent
	habitList []store.Habit
	recent    []store.Routine
	braindump string
}

func newDashboardModel(s *store.Store, rm *store.RoutineManager, sm *store.ScheduleManager, hm *store.HabitManager) dashboardModel {
	return dashboardModel{
		store:    s,
		routines: rm,
		schedule: sm,
		habits:   hm,
	}
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

type dashboardDataMsg struct {
	summary   *store.DaySummary
	upcoming  []store.ScheduleEvent
	habitList []store.Habit
	recent    []store.Routine
	braindump string
}

func (d dashboardModel) refresh() tea.Cmd {
	return func() tea.Msg {
		var msg dashboardDataMsg
		msg.summary, _ = d.schedule.TodaySummary()
		msg.upcoming, _ = d.schedule.EventsForDay(today())
		msg.habitList, _ = d.habits.List()
		all, _ := d.routines.List(store.ListOptions{SortBy: "lastUsed", Order: "desc"})
		msg.recent = store.FilterRoutines(all, store.RoutineFilter{RecentlyUsed: true})
		msg.braindump, _ = d.store.Braindump()
		return msg
	}
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	if msg, ok := msg.(dashboardDataMsg); ok {
		d.summary = msg.summary
		d.upcoming = msg.upcoming
		d.habitList = msg.habitList
		d.recent = msg.recent
		d.braindump = msg.braindump
	}
	return d, nil
}

func (d dashboardModel) view() string {
	w := d.width - 4
	half := (w - 4) / 2
	if half < 20 {
		half = 20
	}

	left := lipgloss.JoinVertical(lipgloss.Left,
		d.renderToday(half),
		d.renderHabits(half),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		d.renderRecent(half),
		d.renderBraindump(half),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
}

func (d dashboardModel) renderToday(w int) string {
	var rows []string
	rows = append(rows, titleStyle.Render("Today"))

	if d.summary != nil && d.summary.TotalEvents > 0 {
		var parts []string
		for _, typ := range []string{store.EventRoutine, store.EventTask, store.EventMeeting, store.EventHabit} {
			if n := d.summary.ByType[typ]; n > 0 {
				parts = append(parts, fmt.Sprintf("%d %s", n, typ))
			}
		}
		rows = append(rows, subtitleStyle.Render(fmt.Sprintf("%d events · %s planned",
			d.summary.TotalEvents, formatMinutes(d.summary.TotalDuration))))
		if len(parts) > 0 {
			rows = append(rows, mutedStyle.Render(strings.Join(parts, "  ")))
		}
	} else {
		rows = append(rows, mutedStyle.Render("Nothing planned yet"))
	}

	rows = append(rows, "")
	if len(d.upcoming) == 0 {
		rows = append(rows, mutedStyle.Render("  —"))
	}
	for i, ev := range d.upcoming {
		if i >= 5 {
			rows = append(rows, mutedStyle.Render(fmt.Sprintf("  … %d more", len(d.upcoming)-i)))
			break
		}
		rows = append(rows, fmt.Sprintf("  %s  %s",
			accentStyle.Render(ev.StartTime), truncate(ev.Title, w-12)))
	}

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (d dashboardModel) renderHabits(w int) string {
	var rows []string
	rows = append(rows, titleStyle.Render("Habits"))

	if len(d.habitList) == 0 {
		rows = append(rows, mutedStyle.Render("No habits tracked"))
	}
	todayStr := today()
	for i, h := range d.habitList {
		if i >= 4 {
			break
		}
		mark := mutedStyle.Render("○")
		for _, c := range h.Completions {
			if c == todayStr {
				mark = successStyle.Render("●")
				break
			}
		}
		rows = append(rows, fmt.Sprintf("  %s %-20s %s", mark, truncate(h.Name, 20),
			highlightStyle.Render(fmt.Sprintf("%d🔥", h.StreakCurrent))))
	}

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (d dashboardModel) renderRecent(w int) string {
	var rows []string
	rows = append(rows, titleStyle.Render("Recent Routines"))

	if len(d.recent) == 0 {
		rows = append(rows, mutedStyle.Render("Nothing run this week"))
	}
	for i, rt := range d.recent {
		if i >= 5 {
			break
		}
		rows = append(rows, fmt.Sprintf("  %-24s %s",
			truncate(rt.Name, 24), mutedStyle.Render(formatSeconds(rt.TotalDuration))))
	}

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (d dashboardModel) renderBraindump(w int) string {
	var rows []string
	rows = append(rows, titleStyle.Render("Braindump"))

	text := strings.TrimSpace(d.braindump)
	if text == "" {
		rows = append(rows, mutedStyle.Render("Empty"))
	} else {
		lines := strings.Split(text, "\n")
		for i, line := range lines {
			if i >= 6 {
				rows = append(rows, mutedStyle.Render(fmt.Sprintf("  … %d more lines", len(lines)-i)))
				break
			}
			rows = append(rows, "  "+truncate(line, w-6))
		}
	}

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
