package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dayloop/dayloop/internal/store"
)

type scheduleModel struct {
	schedule *store.ScheduleManager
	width    int
	height   int

	day    string
	events []store.ScheduleEvent
	slots  []store.Slot
	cursor int

	formActive bool
	form       *huh.Form

	formTitle *string
	formStart *string
	formEnd   *string
	formType  *string
	formNotes *string
}

func newScheduleModel(sm *store.ScheduleManager) scheduleModel {
	title, start, end, typ, notes := "", "", "", store.EventTask, ""
	return scheduleModel{
		schedule:  sm,
		day:       today(),
		formTitle: &title,
		formStart: &start,
		formEnd:   &end,
		formType:  &typ,
		formNotes: &notes,
	}
}

func (s *scheduleModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type scheduleDataMsg struct {
	day    string
	events []store.ScheduleEvent
	slots  []store.Slot
}

func (s scheduleModel) refresh() tea.Cmd {
	day := s.day
	return func() tea.Msg {
		events, _ := s.schedule.EventsForDay(day)
		slots, _ := s.schedule.AvailableSlots(day, 15)
		return scheduleDataMsg{day: day, events: events, slots: slots}
	}
}

func (s scheduleModel) update(msg tea.Msg) (scheduleModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case scheduleDataMsg:
		if msg.day != s.day {
			return s, nil
		}
		s.events = msg.events
		s.slots = msg.slots
		if s.cursor >= len(s.events) {
			s.cursor = max(0, len(s.events)-1)
		}
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if s.cursor > 0 {
				s.cursor--
			}
		case key.Matches(msg, keys.Down):
			if s.cursor < len(s.events)-1 {
				s.cursor++
			}
		case key.Matches(msg, keys.Left):
			s.day = shiftDay(s.day, -1)
			return s, s.refresh()
		case key.Matches(msg, keys.Right):
			s.day = shiftDay(s.day, 1)
			return s, s.refresh()
		case key.Matches(msg, keys.New):
			return s.showNewForm()
		case key.Matches(msg, keys.Delete):
			if len(s.events) > 0 {
				if err := s.schedule.DeleteEvent(s.events[s.cursor].ID); err != nil {
					return s, errStatus(err)
				}
				return s, s.refresh()
			}
		}
	}
	return s, nil
}

func shiftDay(day string, delta int) string {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return today()
	}
	return t.AddDate(0, 0, delta).Format("2006-01-02")
}

func (s scheduleModel) showNewForm() (scheduleModel, tea.Cmd) {
	*s.formTitle = ""
	*s.formStart = "09:00"
	*s.formEnd = "10:00"
	*s.formType = store.EventTask
	*s.formNotes = ""

	typeOptions := []huh.Option[string]{
		huh.NewOption("Task", store.EventTask),
		huh.NewOption("Routine", store.EventRoutine),
		huh.NewOption("Meeting", store.EventMeeting),
		huh.NewOption("Habit", store.EventHabit),
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(s.formTitle),
			huh.NewInput().Title("Start (HH:MM)").Value(s.formStart),
			huh.NewInput().Title("End (HH:MM)").Value(s.formEnd),
			huh.NewSelect[string]().Title("Type").Options(typeOptions...).Value(s.formType),
			huh.NewInput().Title("Notes").Value(s.formNotes),
		),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s scheduleModel) updateForm(msg tea.Msg) (scheduleModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		if *s.formTitle != "" {
			conflicts, err := s.schedule.CheckConflicts(s.day, *s.formStart, *s.formEnd, "")
			if err != nil {
				return s, errStatus(err)
			}
			if _, err := s.schedule.CreateEvent(store.ScheduleEventInput{
				Title:     *s.formTitle,
				Day:       s.day,
				StartTime: *s.formStart,
				EndTime:   *s.formEnd,
				Type:      *s.formType,
				Notes:     *s.formNotes,
			}); err != nil {
				return s, errStatus(err)
			}
			if len(conflicts) > 0 {
				warn := func() tea.Msg {
					return statusMsg{
						text:    fmt.Sprintf("Added with %d conflict(s) — overlaps %s", len(conflicts), conflicts[0].Title),
						isError: true,
					}
				}
				return s, tea.Batch(s.refresh(), warn)
			}
		}
		return s, s.refresh()
	}

	return s, cmd
}

func (s scheduleModel) view() string {
	if s.formActive && s.form != nil {
		title := titleStyle.Render("New Event — " + s.day)
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View())
		return panelStyle.Width(s.width - 4).Render(content)
	}

	w := s.width - 4
	dayLabel := s.day
	if s.day == today() {
		dayLabel += " (today)"
	}

	var rows []string
	rows = append(rows, titleStyle.Render("Schedule")+"  "+subtitleStyle.Render("◀ "+dayLabel+" ▶"))
	rows = append(rows, "")

	if len(s.events) == 0 {
		rows = append(rows, mutedStyle.Render("Nothing planned. Press n to add an event."))
	} else {
		for i, ev := range s.events {
			cursor := "  "
			style := normalItemStyle
			if i == s.cursor {
				cursor = "> "
				style = selectedItemStyle
			}
			line := fmt.Sprintf("%s%s–%s  %-9s %s",
				cursor, ev.StartTime, ev.EndTime, ev.Type, truncate(ev.Title, 36))
			rows = append(rows, style.Render(line))
			if i == s.cursor && ev.Notes != "" {
				rows = append(rows, mutedStyle.Render("             "+truncate(ev.Notes, 46)))
			}
		}
	}

	rows = append(rows, "")
	rows = append(rows, accentStyle.Render("Open slots"))
	if len(s.slots) == 0 {
		rows = append(rows, mutedStyle.Render("  none"))
	} else {
		var parts []string
		for _, sl := range s.slots {
			parts = append(parts, fmt.Sprintf("%s–%s (%s)", sl.Start, sl.End, formatMinutes(sl.Duration)))
		}
		rows = append(rows, mutedStyle.Render("  "+strings.Join(parts, "   ")))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("←/→: day  n: new  d: delete"))
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
