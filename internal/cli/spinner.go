package cli

import (
	"fmt"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	lipglossv2 "charm.land/lipgloss/v2"

	"github.com/kritsw/teamgraph/internal/client"
)

// callDoneMsg carries the server response of the wrapped call.
type callDoneMsg struct {
	resp *client.Response
	err  error
}

// spinnerModel shows a spinner while a server call runs.
type spinnerModel struct {
	spin     spinner.Model
	label    string
	run      func() (*client.Response, error)
	resp     *client.Response
	err      error
	done     bool
	quitting bool
	theme    Theme
}

func newSpinnerModel(label string, run func() (*client.Response, error)) spinnerModel {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipglossv2.NewStyle().Foreground(lipglossv2.Color(string(defaultTheme.Status)))

	return spinnerModel{
		spin:  sp,
		label: label,
		run:   run,
		theme: defaultTheme,
	}
}

// Init starts the spinner and kicks off the server call.
func (m spinnerModel) Init() tea.Cmd {
	call := func() tea.Msg {
		resp, err := m.run()
		return callDoneMsg{resp: resp, err: err}
	}
	return tea.Batch(m.spin.Tick, call)
}

// Update handles messages and returns the updated model.
func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case callDoneMsg:
		m.resp = msg.resp
		m.err = msg.err
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the spinner line.
func (m spinnerModel) View() tea.View {
	if m.done || m.quitting {
		return tea.NewView("")
	}
	hint := m.theme.hintStyle().Render("Press Ctrl+C to abort")
	return tea.NewView(fmt.Sprintf("%s %s  %s\n", m.spin.View(), m.label, hint))
}

// runWithSpinner runs a server call behind an animated spinner and returns
// its response.
func runWithSpinner(label string, run func() (*client.Response, error)) (*client.Response, error) {
	p := tea.NewProgram(newSpinnerModel(label, run))
	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress UI error: %w", err)
	}

	m, ok := finalModel.(spinnerModel)
	if !ok {
		return nil, fmt.Errorf("unexpected UI state")
	}
	if m.quitting && !m.done {
		return nil, fmt.Errorf("aborted")
	}
	return m.resp, m.err
}
