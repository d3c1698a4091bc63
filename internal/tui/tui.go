package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sokinpui/listdiff/internal/app"
	"github.com/sokinpui/listdiff/listdiff"
	"github.com/sokinpui/listdiff/model"
)

// --- Styles ---
var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))  // Mauve
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))             // Green
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))            // Red
	pathStyle     = lipgloss.NewStyle()
	faintStyle    = lipgloss.NewStyle().Faint(true)
	insertedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	movedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // Orange
	replacedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))  // Blue
)

// --- Messages ---
type applyMsg struct{}

type committedMsg struct {
	model.Summary
}

type errorMsg struct{ err error }

func (e errorMsg) Error() string { return e.err.Error() }

// --- Model ---
type Model struct {
	app     *app.App
	plan    *app.Plan
	tasks   []model.Task
	list    list.Model
	view    *ListView
	spinner spinner.Model
	state   state
	summary model.Summary
	pending []tea.Cmd
	err     error
}

type state int

const (
	stateReady state = iota
	stateAnimating
	stateCommitting
	stateSummary
	stateError
)

// New creates the interactive view of plan. The list starts with the current
// rows of the file.
func New(a *app.App, plan *app.Plan) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	l := list.New(rows(plan.Before, nil), list.NewDefaultDelegate(), 0, 0)
	l.Title = plan.Path
	l.SetFilteringEnabled(false)
	l.Styles.Title = headerStyle

	m := &Model{
		app:     a,
		plan:    plan,
		tasks:   plan.Before,
		list:    l,
		spinner: s,
		state:   stateReady,
	}
	cfg := a.Config()
	m.view = NewListView(&m.list, cfg.Section, func() []model.Task { return m.tasks }, cfg.Animation, a.Logger())
	return m
}

// Err returns the error the program ended with, if any.
func (m *Model) Err() error {
	return m.err
}

func (m *Model) Init() tea.Cmd {
	if m.plan.Empty() {
		summary := app.Summarize(m.plan)
		return func() tea.Msg { return committedMsg{summary} }
	}
	return tea.Batch(m.spinner.Tick, func() tea.Msg { return applyMsg{} })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "enter":
			return m, m.apply()
		}

	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-2)
		return m, nil

	case applyMsg:
		return m, m.apply()

	case batchDoneMsg:
		cmd := m.view.HandleDone(msg)
		pending := m.pending
		m.pending = nil
		return m, tea.Batch(append(pending, cmd)...)

	case committedMsg:
		m.state = stateSummary
		finished := m.summary.Finished
		m.summary = msg.Summary
		m.summary.Finished = finished || m.plan.Empty()
		return m, tea.Quit

	case errorMsg:
		m.state = stateError
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// apply animates the plan's changes into the list, then writes the file.
func (m *Model) apply() tea.Cmd {
	if m.state != stateReady || m.view.Busy() {
		return nil
	}
	m.state = stateAnimating
	m.summary = app.Summarize(m.plan)

	listdiff.Reload(m.view, m.plan.Changes, func() { m.tasks = m.plan.After }, &listdiff.Config{
		Section:    m.app.Config().Section,
		Logger:     m.app.Logger(),
		Completion: m.batchFinished,
	})
	return m.view.Flush()
}

func (m *Model) batchFinished(finished bool) {
	m.summary.Finished = finished
	m.state = stateCommitting
	if !finished {
		m.pending = append(m.pending, m.view.Refresh())
	}
	m.pending = append(m.pending, m.commit)
}

func (m *Model) commit() tea.Msg {
	summary, err := m.app.Commit(m.plan)
	if err != nil {
		return errorMsg{err}
	}
	return committedMsg{summary}
}

func (m *Model) View() string {
	switch m.state {
	case stateError:
		return errorStyle.Render("Error: ", m.err.Error())
	case stateSummary:
		return m.renderSummary()
	case stateAnimating:
		return m.list.View() + "\n" + fmt.Sprintf("%s Applying...", m.spinner.View())
	case stateCommitting:
		return m.list.View() + "\n" + fmt.Sprintf("%s Saving...", m.spinner.View())
	default:
		return m.list.View()
	}
}

func (m *Model) renderSummary() string {
	var b strings.Builder

	if m.summary.Message != "" {
		b.WriteString(headerStyle.Render(m.summary.Message))
		b.WriteString("\n\n")
	}
	if m.summary.Path != "" {
		b.WriteString(fmt.Sprintf("  %s\n", pathStyle.Render(m.summary.Path)))
	}

	hasContent := false
	for _, line := range []struct {
		n     int
		label string
		style lipgloss.Style
	}{
		{m.summary.Inserted, "inserted", insertedStyle},
		{m.summary.Deleted, "deleted", errorStyle},
		{m.summary.Moved, "moved", movedStyle},
		{m.summary.Replaced, "updated", replacedStyle},
	} {
		if line.n == 0 {
			continue
		}
		hasContent = true
		b.WriteString(line.style.Render(fmt.Sprintf("  %d %s", line.n, line.label)))
		b.WriteString("\n")
	}

	switch {
	case !hasContent && m.summary.Message == "":
		b.WriteString(faintStyle.Render("Nothing to do."))
	case hasContent && m.summary.Finished:
		b.WriteString(successStyle.Render("Saved."))
	case hasContent:
		b.WriteString(errorStyle.Render("Saved. The list could not animate the changes and was reloaded."))
	}

	return b.String()
}
