package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dayloop/dayloop/internal/export"
	"github.com/dayloop/dayloop/internal/runner"
	"github.com/dayloop/dayloop/internal/store"
)

// App is the root Bubble Tea model.
type App struct {
	store     *store.Store
	routines  *store.RoutineManager
	sequences *store.RoutineManager
	schedule  *store.ScheduleManager
	habits    *store.HabitManager
	templates *store.TemplateManager

	width  int
	height int

	activeView viewState
	showHelp   bool

	pickerMode   pickerMode
	pickerCursor int

	dashboard dashboardModel
	routView  routinesModel
	schedView scheduleModel
	habitView habitsModel
	library   libraryModel

	help   help.Model
	status string
}

type pickerMode int

const (
	pickerNone pickerMode = iota
	pickerExport
	pickerImport
)

// Transfer targets offered by the export/import picker, in display order.
var transferTargets = []string{
	"Routines (JSON)",
	"Sequences (JSON)",
	"Schedule (JSON)",
	"Schedule (CSV)",
	"Habits (JSON)",
	"Templates (JSON)",
	"Full bundle (JSON)",
}

func NewApp(s *store.Store) App {
	h := help.New()
	h.ShowAll = false

	rm := store.NewRoutines(s)
	seq := store.NewSequences(s)
	sm := store.NewSchedule(s)
	hm := store.NewHabits(s)
	tm := store.NewTemplates(s)

	return App{
		store:      s,
		routines:   rm,
		sequences:  seq,
		schedule:   sm,
		habits:     hm,
		templates:  tm,
		activeView: viewDashboard,
		dashboard:  newDashboardModel(s, rm, sm, hm),
		routView:   newRoutinesModel(rm),
		schedView:  newScheduleModel(sm),
		habitView:  newHabitsModel(hm),
		library:    newLibraryModel(tm, rm),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.dashboard.refresh(),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.dashboard.setSize(a.width, contentHeight)
		a.routView.setSize(a.width, contentHeight)
		a.schedView.setSize(a.width, contentHeight)
		a.habitView.setSize(a.width, contentHeight)
		a.library.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.pickerMode != pickerNone {
			return a.updatePicker(msg)
		}

		// If a child view is capturing input (form or active run), delegate first.
		if a.isCapturing() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.pickerMode = pickerExport
			a.pickerCursor = 0
			return a, nil
		case key.Matches(msg, keys.Import):
			a.pickerMode = pickerImport
			a.pickerCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewDashboard
			return a, a.dashboard.refresh()
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewRoutines
			return a, a.routView.refresh()
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewSchedule
			return a, a.schedView.refresh()
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewHabits
			return a, a.habitView.refresh()
		case key.Matches(msg, keys.Tab5):
			a.activeView = viewLibrary
			return a, a.library.refresh()
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % 5
			return a, a.refreshCurrentView()
		}

	case tickMsg:
		cmds = append(cmds, tickCmd())
		// Ticks always reach the routines view so an active run keeps
		// counting regardless of which tab is showing.
		var cmd tea.Cmd
		a.routView, cmd = a.routView.update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)

	case statusMsg:
		a.status = msg.text
		return a, nil

	case runStartedMsg:
		a.activeView = viewRoutines
		a.status = "Running " + msg.routine.Name
		return a, nil

	case runFinishedMsg:
		a.status = "Routine finished"
		return a, a.dashboard.refresh()

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		return a, nil

	case importDoneMsg:
		a.status = fmt.Sprintf("Imported %d, skipped %d from %s",
			msg.result.Imported, msg.result.Skipped, filepath.Base(msg.path))
		if len(msg.result.Errors) > 0 {
			a.status += fmt.Sprintf(" (%d errors)", len(msg.result.Errors))
		}
		return a, a.refreshCurrentView()
	}

	return a.updateActiveView(msg)
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.update(msg)
	case viewRoutines:
		a.routView, cmd = a.routView.update(msg)
	case viewSchedule:
		a.schedView, cmd = a.schedView.update(msg)
	case viewHabits:
		a.habitView, cmd = a.habitView.update(msg)
	case viewLibrary:
		a.library, cmd = a.library.update(msg)
	}
	return a, cmd
}

func (a App) isCapturing() bool {
	switch a.activeView {
	case viewRoutines:
		return a.routView.formActive || a.routView.run != nil
	case viewSchedule:
		return a.schedView.formActive
	case viewHabits:
		return a.habitView.formActive
	case viewLibrary:
		return a.library.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewDashboard:
		return a.dashboard.refresh()
	case viewRoutines:
		return a.routView.refresh()
	case viewSchedule:
		return a.schedView.refresh()
	case viewHabits:
		return a.habitView.refresh()
	case viewLibrary:
		return a.library.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewDashboard:
		content = a.dashboard.view()
	case viewRoutines:
		content = a.routView.view()
	case viewSchedule:
		content = a.schedView.view()
	case viewHabits:
		content = a.habitView.view()
	case viewLibrary:
		content = a.library.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	if a.pickerMode != pickerNone {
		content = a.renderPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("dayloop")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		status = mutedStyle.Render(" " + a.status)
	}

	// Active run indicator stays visible on every tab.
	runInfo := ""
	if a.routView.running() {
		run := a.routView.run
		runInfo = successStyle.Render(" ▶ " + formatStepClock(run.Remaining))
		if run.State == runner.Paused {
			runInfo = warningStyle.Render(" ⏸ " + formatStepClock(run.Remaining))
		}
	}

	left := footerStyle.Render(helpView)
	right := runInfo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderPicker() string {
	verb := "Export"
	if a.pickerMode == pickerImport {
		verb = "Import"
	}
	title := titleStyle.Render(verb + " Target")

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range transferTargets {
		cursor := "  "
		style := normalItemStyle
		if i == a.pickerCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: "+verb+"  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.pickerCursor > 0 {
			a.pickerCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.pickerCursor < len(transferTargets)-1 {
			a.pickerCursor++
		}
	case key.Matches(msg, keys.Enter):
		mode := a.pickerMode
		a.pickerMode = pickerNone
		if mode == pickerExport {
			return a, a.doExport(a.pickerCursor)
		}
		return a, a.doImport(a.pickerCursor)
	case key.Matches(msg, keys.Back):
		a.pickerMode = pickerNone
	}
	return a, nil
}

// transferPath builds the default file path for a picker target.
func transferPath(name, ext string) string {
	home, _ := os.UserHomeDir()
	dateStr := time.Now().Format("2006-01-02")
	return filepath.Join(home, fmt.Sprintf("dayloop-%s-%s.%s", name, dateStr, ext))
}

func (a App) doExport(target int) tea.Cmd {
	return func() tea.Msg {
		var (
			path string
			err  error
		)
		switch target {
		case 0:
			path = transferPath("routines", "json")
			err = export.WriteRoutines(a.routines, path)
		case 1:
			path = transferPath("sequences", "json")
			err = export.WriteRoutines(a.sequences, path)
		case 2:
			path = transferPath("schedule", "json")
			err = export.WriteSchedule(a.schedule, path)
		case 3:
			path = transferPath("schedule", "csv")
			var events []store.ScheduleEvent
			events, err = a.schedule.EventsForWeek()
			if err == nil {
				err = export.ScheduleToCSV(events, path)
			}
		case 4:
			path = transferPath("habits", "json")
			err = export.WriteHabits(a.habits, path)
		case 5:
			path = transferPath("templates", "json")
			err = export.WriteTemplates(a.templates, path)
		case 6:
			path = transferPath("bundle", "json")
			err = export.WriteBundle(a.store, a.schedule, path)
		}
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		return exportDoneMsg{path: path}
	}
}

func (a App) doImport(target int) tea.Cmd {
	return func() tea.Msg {
		var (
			path   string
			result *store.ImportResult
			err    error
		)
		switch target {
		case 0:
			path = transferPath("routines", "json")
			result, err = export.ReadRoutines(a.routines, path)
		case 1:
			path = transferPath("sequences", "json")
			result, err = export.ReadRoutines(a.sequences, path)
		case 2:
			path = transferPath("schedule", "json")
			result, err = export.ReadSchedule(a.schedule, path)
		case 3:
			return statusMsg{text: "CSV import is not supported", isError: true}
		case 4:
			path = transferPath("habits", "json")
			result, err = export.ReadHabits(a.habits, path)
		case 5:
			path = transferPath("templates", "json")
			result, err = export.ReadTemplates(a.templates, path)
		case 6:
			path = transferPath("bundle", "json")
			result, err = export.ReadBundle(a.store, a.schedule, path)
		}
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Import error: %v", err), isError: true}
		}
		return importDoneMsg{path: path, result: result}
	}
}
