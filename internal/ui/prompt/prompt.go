// Package prompt asks for a query id interactively.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/bidmanager-cli/internal/ui/styles"
)

// ErrCanceled is returned when the user leaves the prompt with Esc or Ctrl+C.
var ErrCanceled = errors.New("prompt canceled")

const title = "Enter the query id or press enter to list queries"

// Model is the bubbletea model of the query id prompt.
type Model struct {
	input    textinput.Model
	done     bool
	canceled bool
}

// New creates a focused prompt.
func New() Model {
	ti := textinput.New()
	ti.Placeholder = "list queries"
	ti.Prompt = "> "
	ti.CharLimit = 20
	ti.Width = 24
	ti.PromptStyle = styles.FocusedStyle
	ti.PlaceholderStyle = styles.BlurredStyle
	ti.Focus()
	return Model{input: ti}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.canceled = true
			return m, tea.Quit
		case tea.KeyRunes:
			key.Runes = digitsOnly(key.Runes)
			if len(key.Runes) == 0 {
				return m, nil
			}
			msg = key
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if m.done || m.canceled {
		return ""
	}
	body := styles.TitleStyle.Render(title) + "\n" + m.input.View() + "\n" +
		styles.HelpStyle.Render("enter to confirm, esc to cancel")
	return styles.PromptBorderStyle.Render(body) + "\n"
}

// Value returns the raw text entered so far.
func (m Model) Value() string {
	return m.input.Value()
}

// Result returns the query id. Zero means the queries should be listed.
func (m Model) Result() (int64, error) {
	if m.canceled {
		return 0, ErrCanceled
	}
	return ParseQueryID(m.input.Value()), nil
}

// ParseQueryID turns user input into a query id. Empty or malformed input
// yields zero.
func ParseQueryID(s string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

func digitsOnly(runes []rune) []rune {
	out := runes[:0:0]
	for _, r := range runes {
		if r >= '0' && r <= '9' {
			out = append(out, r)
		}
	}
	return out
}

// AskQueryID runs the prompt on the given terminal streams.
func AskQueryID(in io.Reader, out io.Writer) (int64, error) {
	p := tea.NewProgram(New(), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return 0, fmt.Errorf("query id prompt failed: %w", err)
	}
	m, ok := final.(Model)
	if !ok {
		return 0, fmt.Errorf("unexpected prompt model %T", final)
	}
	return m.Result()
}
