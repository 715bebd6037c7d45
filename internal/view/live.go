// Package view renders a live terminal view of a running solve.
package view

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

const (
	graphHeight     = 12
	historyCapacity = 200
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// IterMsg carries one solver iteration into the view.
type IterMsg struct {
	Iter     int
	Residual float64
}

// DoneMsg ends the stream; Err is nil on convergence.
type DoneMsg struct {
	Err error
}

// Model displays the convergence of a solve streamed through a channel.
type Model struct {
	caseName string
	mode     string

	msgs      <-chan tea.Msg
	residuals []float64
	iter      int
	done      bool
	err       error
}

// NewModel creates the view; the solver feeds msgs with IterMsg values and
// one final DoneMsg.
func NewModel(caseName, mode string, msgs <-chan tea.Msg) Model {
	return Model{
		caseName:  caseName,
		mode:      mode,
		msgs:      msgs,
		residuals: make([]float64, 0, historyCapacity),
	}
}

// Feed returns a solver iteration callback plus a closer; wire the
// callback into netw.SolveOptions.OnIteration and call the closer with the
// solve result. Sends never block: when the viewer is gone or lagging the
// frame is dropped, so the solver can always run to completion.
func Feed() (ch chan tea.Msg, onIter func(int, float64), finish func(error)) {
	ch = make(chan tea.Msg, 64)
	onIter = func(iter int, res float64) {
		select {
		case ch <- IterMsg{Iter: iter, Residual: res}:
		default:
		}
	}
	finish = func(err error) {
		select {
		case ch <- DoneMsg{Err: err}:
		default:
		}
	}
	return ch, onIter, finish
}

func (m Model) Init() tea.Cmd { return m.wait() }

func (m Model) wait() tea.Cmd {
	return func() tea.Msg { return <-m.msgs }
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case IterMsg:
		m.iter = msg.Iter + 1
		m.residuals = append(m.residuals, msg.Residual)
		if len(m.residuals) > historyCapacity {
			m.residuals = m.residuals[1:]
		}
		return m, m.wait()
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("solving %s (%s)", m.caseName, m.mode)))
	b.WriteString("\n")

	res := math.NaN()
	if len(m.residuals) > 0 {
		res = m.residuals[len(m.residuals)-1]
	}
	b.WriteString(labelStyle.Render("iteration") + valueStyle.Render(fmt.Sprintf("%d", m.iter)) + "\n")
	b.WriteString(labelStyle.Render("residual") + valueStyle.Render(fmt.Sprintf("%.3e", res)) + "\n")

	if len(m.residuals) > 1 {
		logs := make([]float64, len(m.residuals))
		for i, r := range m.residuals {
			if r <= 0 {
				r = 1e-16
			}
			logs[i] = math.Log10(r)
		}
		b.WriteString(graphStyle.Render(asciigraph.Plot(logs, asciigraph.Height(graphHeight))))
		b.WriteString("\n")
	}

	if m.done {
		if m.err == nil {
			b.WriteString(okStyle.Render("converged"))
		} else {
			b.WriteString(failStyle.Render(m.err.Error()))
		}
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("q: quit"))
	return b.String()
}
