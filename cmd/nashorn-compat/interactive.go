package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/nashorn-compat/compat"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const (
	prompt     = "nashorn> "
	maxHistory = 200
)

// runInteractive starts the TUI shell on a terminal and a plain line shell
// otherwise.
func runInteractive(engine *compat.ScriptEngine) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return runLines(engine, os.Stdin, os.Stdout)
	}
	_, err := tea.NewProgram(newShellModel(engine)).Run()
	return err
}

// runLines evaluates one script per input line.
func runLines(engine *compat.ScriptEngine, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if text, ok := evalLine(engine, line); ok {
			fmt.Fprintln(out, text)
		} else {
			fmt.Fprintln(out, "Error: "+text)
		}
	}
	return scanner.Err()
}

// evalLine evaluates line and renders its result, or the error message when
// ok is false.
func evalLine(engine *compat.ScriptEngine, line string) (string, bool) {
	v, err := engine.Eval(line)
	if err != nil {
		return err.Error(), false
	}
	return display(v), true
}

type entry struct {
	input  string
	output string
	failed bool
}

type shellModel struct {
	engine  *compat.ScriptEngine
	input   textinput.Model
	entries []entry
	recall  int
}

func newShellModel(engine *compat.ScriptEngine) *shellModel {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(prompt)
	ti.Placeholder = "script"
	ti.Width = 72
	ti.Focus()
	return &shellModel{engine: engine, input: ti}
}

type evalResultMsg struct {
	entry entry
}

func (m *shellModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *shellModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, nil
			}
			m.input.Reset()
			return m, m.evaluate(line)

		case "up":
			if m.recall > 0 {
				m.recall--
				m.input.SetValue(m.entries[m.recall].input)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if m.recall < len(m.entries)-1 {
				m.recall++
				m.input.SetValue(m.entries[m.recall].input)
				m.input.CursorEnd()
			} else {
				m.recall = len(m.entries)
				m.input.Reset()
			}
			return m, nil
		}

	case evalResultMsg:
		m.entries = append(m.entries, msg.entry)
		if len(m.entries) > maxHistory {
			m.entries = m.entries[len(m.entries)-maxHistory:]
		}
		m.recall = len(m.entries)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *shellModel) evaluate(line string) tea.Cmd {
	return func() tea.Msg {
		text, ok := evalLine(m.engine, line)
		return evalResultMsg{entry: entry{input: line, output: text, failed: !ok}}
	}
}

func (m *shellModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Nashorn Shell"))
	b.WriteString(" ")
	b.WriteString(m.engine.Factory().EngineName())
	b.WriteString(" ")
	b.WriteString(m.engine.Factory().EngineVersion())
	b.WriteString("\n\n")

	for _, e := range m.entries {
		b.WriteString(promptStyle.Render(prompt))
		b.WriteString(e.input)
		b.WriteString("\n")
		if e.failed {
			b.WriteString(errorStyle.Render("Error: " + e.output))
		} else {
			b.WriteString(resultStyle.Render(e.output))
		}
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter evaluate • ↑/↓ history • ctrl+c quit"))
	return b.String()
}
