package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	keyCtrlC = "ctrl+c"
	keyQuit  = "q"
)

// PublishStepItem represents a step in the publish run
type PublishStepItem struct {
	StepIndex   int
	Description string
	Status      string // "pending", "running", "done", "error"
	Error       error
	Done        int
	Total       int
}

// PublishTUIModel is the bubbletea model for publish progress
type PublishTUIModel struct {
	title    string
	steps    []PublishStepItem
	spinner  spinner.Model
	done     bool
	quitting bool
	styles   publishStyles
	updates  <-chan ProgressUpdate
}

type publishStyles struct {
	spinnerStyle lipgloss.Style
	doneStyle    lipgloss.Style
	errorStyle   lipgloss.Style
	dimStyle     lipgloss.Style
	countStyle   lipgloss.Style
}

const (
	stepStatusPending = "pending"
	stepStatusRunning = "running"
	stepStatusDone    = "done"
	stepStatusError   = "error"
)

// StepUpdateMsg is sent when a step status changes
type StepUpdateMsg struct {
	StepIndex int
	Status    string
	Error     error
}

// StepProgressMsg is sent when a step reports partial progress
type StepProgressMsg struct {
	StepIndex int
	Done      int
	Total     int
}

// NewPublishTUIModel creates a new publish TUI model
func NewPublishTUIModel(title string, stepDescriptions []string) PublishTUIModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	steps := make([]PublishStepItem, len(stepDescriptions))
	for i, desc := range stepDescriptions {
		steps[i] = PublishStepItem{
			StepIndex:   i,
			Description: desc,
			Status:      stepStatusPending,
		}
	}

	return PublishTUIModel{
		title:   title,
		steps:   steps,
		spinner: s,
		styles: publishStyles{
			spinnerStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("205")),
			doneStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
			errorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
			dimStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
			countStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		},
	}
}

// Init initializes the bubbletea model
func (m PublishTUIModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.checkForUpdates())
}

// toMsg converts a channel update into a model message
func toMsg(update ProgressUpdate) tea.Msg {
	switch update.Type {
	case updateStarted:
		return StepUpdateMsg{StepIndex: update.StepIndex, Status: stepStatusRunning}
	case updateCompleted:
		return StepUpdateMsg{StepIndex: update.StepIndex, Status: stepStatusDone}
	case updateFailed:
		return StepUpdateMsg{StepIndex: update.StepIndex, Status: stepStatusError, Error: update.Error}
	case updateProgress:
		return StepProgressMsg{StepIndex: update.StepIndex, Done: update.Done, Total: update.Total}
	}
	return nil
}

// checkForUpdates polls the update channel
func (m PublishTUIModel) checkForUpdates() tea.Cmd {
	if m.updates == nil {
		return nil
	}

	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		select {
		case update, ok := <-m.updates:
			if !ok {
				return tea.Quit()
			}
			return toMsg(update)
		default:
			return nil
		}
	})
}

// Update handles message updates for the bubbletea model
func (m PublishTUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == keyCtrlC || msg.String() == keyQuit {
			m.quitting = true
			return m, tea.Quit
		}
	}

	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, tea.Batch(cmd, m.checkForUpdates())

	case StepUpdateMsg:
		if msg.StepIndex >= 0 && msg.StepIndex < len(m.steps) {
			step := &m.steps[msg.StepIndex]
			step.Status = msg.Status
			if msg.Error != nil {
				step.Error = msg.Error
			}
			switch {
			case msg.Status == stepStatusError:
				m.done = true
			case msg.Status == stepStatusDone && msg.StepIndex == len(m.steps)-1:
				m.done = true
			}
		}
		return m, m.checkForUpdates()

	case StepProgressMsg:
		if msg.StepIndex >= 0 && msg.StepIndex < len(m.steps) && msg.Done >= m.steps[msg.StepIndex].Done {
			m.steps[msg.StepIndex].Done = msg.Done
			m.steps[msg.StepIndex].Total = msg.Total
		}
		return m, m.checkForUpdates()

	case tea.QuitMsg:
		return m, tea.Quit
	}

	return m, nil
}

// View renders the TUI
func (m PublishTUIModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(m.title + "\n")
	b.WriteString("\n")

	for i, step := range m.steps {
		var icon, status string
		switch step.Status {
		case stepStatusPending:
			icon = m.styles.dimStyle.Render("○")
			status = m.styles.dimStyle.Render("pending")
		case stepStatusRunning:
			icon = m.spinner.View()
			status = m.styles.spinnerStyle.Render("running...")
			if step.Total > 0 {
				status += " " + m.styles.countStyle.Render(fmt.Sprintf("(%d/%d)", step.Done, step.Total))
			}
		case stepStatusDone:
			icon = m.styles.doneStyle.Render("✓")
			status = m.styles.doneStyle.Render("done")
			if step.Total > 0 {
				status += " " + m.styles.countStyle.Render(fmt.Sprintf("(%d files)", step.Total))
			}
		case stepStatusError:
			icon = m.styles.errorStyle.Render("✗")
			status = m.styles.errorStyle.Render("failed")
		}

		line := fmt.Sprintf("  %s %d. %s %s", icon, i+1, step.Description, status)
		if step.Status == stepStatusError && step.Error != nil {
			line += " " + m.styles.errorStyle.Render("→ "+step.Error.Error())
		}

		b.WriteString(line)
		if i < len(m.steps)-1 {
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	return b.String()
}

// RunPublishTUI runs the publish TUI with channel-based updates. It returns
// once the update channel is closed.
func RunPublishTUI(title string, stepDescriptions []string, updates <-chan ProgressUpdate, done chan<- bool) error {
	m := NewPublishTUIModel(title, stepDescriptions)
	m.updates = updates

	program := tea.NewProgram(m, tea.WithInput(os.Stdin), tea.WithOutput(os.Stdout))

	_, err := program.Run()

	// Signal completion after the program has finished and restored the terminal
	if done != nil {
		select {
		case done <- true:
		default:
		}
	}

	return err
}
