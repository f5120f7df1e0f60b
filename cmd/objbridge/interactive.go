package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/objbridge"
	"github.com/wippyai/objbridge/host"
	"github.com/wippyai/objbridge/managed"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	methodStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectMethod modelState = iota
	stateInputArgs
	stateShowResult
)

type methodInfo struct {
	name   string
	ret    string
	params []string
}

type consoleModel struct {
	err       error
	bridge    *objbridge.Bridge
	className string
	result    string
	methods   []methodInfo
	inputs    []textinput.Model
	selected  int
	focusIdx  int
	state     modelState
}

type loadedMsg struct {
	err     error
	methods []methodInfo
}

type callResultMsg struct {
	err    error
	result string
}

func newConsoleModel(b *objbridge.Bridge, className string) *consoleModel {
	return &consoleModel{bridge: b, className: className, state: stateSelectMethod}
}

func (m *consoleModel) Init() tea.Cmd {
	return m.loadClass
}

func (m *consoleModel) loadClass() tea.Msg {
	vm, err := m.bridge.Runtime()
	if err != nil {
		return loadedMsg{err: err}
	}
	c, err := vm.FindClass(m.className)
	if err != nil {
		return loadedMsg{err: err}
	}

	var methods []methodInfo
	for _, meth := range c.Methods() {
		if !meth.IsStatic() {
			continue
		}
		mi := methodInfo{name: meth.Name(), ret: meth.ReturnType().TypeName()}
		for _, p := range meth.ParameterTypes() {
			mi.params = append(mi.params, p.TypeName())
		}
		methods = append(methods, mi)
	}
	if len(methods) == 0 {
		return loadedMsg{err: fmt.Errorf("%s has no static methods", m.className)}
	}
	return loadedMsg{methods: methods}
}

func (m *consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputArgs || msg.String() == "ctrl+c" {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectMethod && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectMethod && m.selected < len(m.methods)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectMethod:
				if len(m.methods) == 0 {
					return m, nil
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callMethod
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callMethod

			case stateShowResult:
				m.state = stateSelectMethod
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectMethod
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectMethod
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.methods = msg.methods

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *consoleModel) prepareInputs() {
	meth := m.methods[m.selected]
	m.inputs = make([]textinput.Model, len(meth.params))
	for i, p := range meth.params {
		ti := textinput.New()
		ti.Placeholder = p
		ti.Prompt = fmt.Sprintf("arg%d: ", i)
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

// callMethod runs the selected method through the asynchronous path. The
// command's goroutine drives the loop until the callback has run.
func (m *consoleModel) callMethod() tea.Msg {
	meth := m.methods[m.selected]
	args := make([]any, len(m.inputs), len(m.inputs)+1)
	for i, input := range m.inputs {
		if meth.params[i] == "java.lang.String" {
			args[i] = input.Value()
			continue
		}
		args[i] = parseArg(strings.TrimSpace(input.Value()))
	}

	var out callResultMsg
	cb := host.Callback(func(err error, result any) {
		out.err = err
		out.result = formatValue(result)
	})
	if err := m.bridge.CallStaticMethod(m.className, meth.name, append(args, cb)...); err != nil {
		return callResultMsg{err: err}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := m.bridge.Loop().Run(ctx); err != nil {
		return callResultMsg{err: err}
	}
	return out
}

func (m *consoleModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if len(m.methods) == 0 {
		return "Loading class..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("objbridge"))
	b.WriteString(" ")
	b.WriteString(m.className)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectMethod:
		b.WriteString("Select a static method to call:\n\n")
		for i, meth := range m.methods {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + formatMethod(meth)))
			} else {
				b.WriteString("  " + formatMethod(meth))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		meth := m.methods[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", methodStyle.Render(meth.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(meth.params[i]))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		meth := m.methods[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", methodStyle.Render(meth.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func formatMethod(meth methodInfo) string {
	params := make([]string, len(meth.params))
	for i, p := range meth.params {
		params[i] = typeStyle.Render(p)
	}
	ret := ""
	if meth.ret != managed.KindVoid.String() {
		ret = " -> " + typeStyle.Render(meth.ret)
	}
	return methodStyle.Render(meth.name) + "(" + strings.Join(params, ", ") + ")" + ret
}

func runInteractive(b *objbridge.Bridge, className string) error {
	if className == "" {
		return fmt.Errorf("-i needs -list Class")
	}
	p := tea.NewProgram(newConsoleModel(b, className), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
