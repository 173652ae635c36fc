// Package prompt asks the user to confirm a release before anything is changed.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the user dismisses the prompt with esc or ctrl+c.
var ErrCancelled = errors.New("cancelled by user")

var (
	questionStyle = lipgloss.NewStyle().Bold(true)
	helpStyle     = lipgloss.NewStyle().Faint(true)
	yesStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	noStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// ConfirmModel is a yes/no question. Enter picks the default.
// Implements tea.Model with value semantics.
type ConfirmModel struct {
	question  string
	help      string
	def       bool
	done      bool
	answer    bool
	cancelled bool
}

// NewConfirmModel creates a ConfirmModel.
func NewConfirmModel(question, help string, def bool) ConfirmModel {
	return ConfirmModel{question: question, help: help, def: def}
}

// Init returns nil; no commands needed at startup.
func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

// Update handles key messages.
func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || m.done {
		return m, nil
	}
	switch key.Type {
	case tea.KeyEnter:
		m.answer = m.def
	case tea.KeyEsc, tea.KeyCtrlC:
		m.cancelled = true
	case tea.KeyRunes:
		if len(key.Runes) == 0 {
			return m, nil
		}
		switch key.Runes[0] {
		case 'y', 'Y':
			m.answer = true
		case 'n', 'N':
			m.answer = false
		default:
			return m, nil
		}
	default:
		return m, nil
	}
	m.done = true
	return m, tea.Quit
}

// View renders the question, or the answer once given.
func (m ConfirmModel) View() string {
	var b strings.Builder
	b.WriteString(questionStyle.Render(m.question))
	b.WriteByte(' ')
	switch {
	case m.cancelled:
		b.WriteString(noStyle.Render("cancelled"))
		b.WriteByte('\n')
		return b.String()
	case m.done && m.answer:
		b.WriteString(yesStyle.Render("yes"))
		b.WriteByte('\n')
		return b.String()
	case m.done:
		b.WriteString(noStyle.Render("no"))
		b.WriteByte('\n')
		return b.String()
	}
	if m.def {
		b.WriteString("[Y/n]")
	} else {
		b.WriteString("[y/N]")
	}
	if m.help != "" {
		b.WriteByte('\n')
		b.WriteString(helpStyle.Render(m.help))
	}
	return b.String()
}

// Answer reports the user's choice and whether the prompt was dismissed.
func (m ConfirmModel) Answer() (yes bool, cancelled bool) {
	return m.answer, m.cancelled
}

// Confirm runs a ConfirmModel on in and out. It returns ErrCancelled when
// the prompt is dismissed.
func Confirm(ctx context.Context, in io.Reader, out io.Writer, question, help string, def bool) (bool, error) {
	p := tea.NewProgram(NewConfirmModel(question, help, def),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	final, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}
	m, ok := final.(ConfirmModel)
	if !ok {
		return false, fmt.Errorf("unexpected prompt model %T", final)
	}
	yes, cancelled := m.Answer()
	if cancelled {
		return false, ErrCancelled
	}
	return yes, nil
}
