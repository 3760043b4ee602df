package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dayloop/dayloop/internal/store"
)

type libraryModel struct {
	templates *store.TemplateManager
	routines  *store.RoutineManager
	width     int
	height    int

	items  []store.Template
	cursor int

	formActive bool
	form       *huh.Form

	formName     *string
	formType     *string
	formDesc     *string
	formDue      *string
	formPriority *string
	formSteps    *string
	formEstimate *string
}

func newLibraryModel(tm *store.TemplateManager, rm *store.RoutineManager) libraryModel {
	name, typ, desc, due, prio, steps, est := "", store.TemplateTask, "", "", "medium", "", ""
	return libraryModel{
		templates:    tm,
		routines:     rm,
		formName:     &name,
		formType:     &typ,
		formDesc:     &desc,
		formDue:      &due,
		formPriority: &prio,
		formSteps:    &steps,
		formEstimate: &est,
	}
}

func (l *libraryModel) setSize(w, h int) {
	l.width = w
	l.height = h
}

type libraryDataMsg struct {
	items []store.Template
}

func (l libraryModel) refresh() tea.Cmd {
	return func() tea.Msg {
		items, _ := l.templates.List("")
		return libraryDataMsg{items: items}
	}
}

func (l libraryModel) update(msg tea.Msg) (libraryModel, tea.Cmd) {
	if l.formActive && l.form != nil {
		return l.updateForm(msg)
	}

	switch msg := msg.(type) {
	case libraryDataMsg:
		l.items = msg.items
		if l.cursor >= len(l.items) {
			l.cursor = max(0, len(l.items)-1)
		}
		return l, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if l.cursor > 0 {
				l.cursor--
			}
		case key.Matches(msg, keys.Down):
			if l.cursor < len(l.items)-1 {
				l.cursor++
			}
		case key.Matches(msg, keys.New):
			return l.showNewForm()
		case key.Matches(msg, keys.Delete):
			if len(l.items) > 0 {
				if err := l.templates.Delete(l.items[l.cursor].ID); err != nil {
					return l, errStatus(err)
				}
				return l, l.refresh()
			}
		case key.Matches(msg, keys.Enter):
			if len(l.items) > 0 {
				return l.instantiate(l.items[l.cursor])
			}
		}
	}
	return l, nil
}

func (l libraryModel) instantiate(t store.Template) (libraryModel, tea.Cmd) {
	if t.Type != store.TemplateRoutine {
		return l, func() tea.Msg {
			return statusMsg{text: "Only routine templates can be instantiated", isError: true}
		}
	}
	rt, err := l.templates.InstantiateRoutine(t.ID, l.routines)
	if err != nil {
		return l, errStatus(err)
	}
	return l, func() tea.Msg {
		return statusMsg{text: fmt.Sprintf("Created routine %q from template", rt.Name)}
	}
}

func (l libraryModel) showNewForm() (libraryModel, tea.Cmd) {
	*l.formName = ""
	*l.formType = store.TemplateTask
	*l.formDesc = ""
	*l.formDue = ""
	*l.formPriority = "medium"
	*l.formSteps = ""
	*l.formEstimate = ""

	l.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Template Name").Value(l.formName),
			huh.NewSelect[string]().Title("Type").Options(
				huh.NewOption("Task", store.TemplateTask),
				huh.NewOption("Routine", store.TemplateRoutine),
			).Value(l.formType),
			huh.NewInput().Title("Description").Value(l.formDesc),
		),
		huh.NewGroup(
			huh.NewInput().Title("Due offset in days (task)").Value(l.formDue),
			huh.NewSelect[string]().Title("Priority (task)").Options(
				huh.NewOption("Low", "low"),
				huh.NewOption("Medium", "medium"),
				huh.NewOption("High", "high"),
			).Value(l.formPriority),
			huh.NewText().Title("Steps, one per line: name | seconds (routine)").Value(l.formSteps),
			huh.NewInput().Title("Estimated seconds (routine)").Value(l.formEstimate),
		),
	).WithShowHelp(true).WithShowErrors(true)

	l.formActive = true
	return l, l.form.Init()
}

func (l libraryModel) updateForm(msg tea.Msg) (libraryModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			l.formActive = false
			l.form = nil
			return l, nil
		}
	}

	form, cmd := l.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		l.form = f
	}

	if l.form.State == huh.StateCompleted {
		l.formActive = false
		if *l.formName != "" {
			if _, err := l.templates.Create(store.TemplateInput{
				Name:              *l.formName,
				Type:              *l.formType,
				Description:       *l.formDesc,
				DueOffset:         *l.formDue,
				Priority:          *l.formPriority,
				Steps:             parseStepLines(*l.formSteps),
				EstimatedDuration: *l.formEstimate,
			}); err != nil {
				return l, errStatus(err)
			}
		}
		return l, l.refresh()
	}

	return l, cmd
}

func (l libraryModel) view() string {
	if l.formActive && l.form != nil {
		title := titleStyle.Render("New Template")
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", l.form.View())
		return panelStyle.Width(l.width - 4).Render(content)
	}

	w := l.width - 4
	var rows []string
	rows = append(rows, titleStyle.Render("Library"))
	rows = append(rows, "")

	if len(l.items) == 0 {
		rows = append(rows, mutedStyle.Render("No templates yet. Press n to create one."))
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	for i, t := range l.items {
		cursor := "  "
		style := normalItemStyle
		if i == l.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		detail := ""
		switch t.Type {
		case store.TemplateTask:
			if t.DueOffset != nil {
				detail = fmt.Sprintf("due +%dd, %s", *t.DueOffset, t.Priority)
			} else {
				detail = t.Priority
			}
		case store.TemplateRoutine:
			detail = fmt.Sprintf("%d steps", len(t.Steps))
			if t.EstimatedDuration != nil {
				detail += fmt.Sprintf(", ~%s", formatSeconds(*t.EstimatedDuration))
			}
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%-26s %-8s %s",
			cursor, truncate(t.Name, 26), t.Type, detail)))
		if i == l.cursor && t.Description != "" {
			rows = append(rows, mutedStyle.Render("    "+truncate(t.Description, 50)))
		}
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("enter: instantiate routine  n: new  d: delete"))
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
