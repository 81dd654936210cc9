// Package tui shows a validation run live in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/odonata-labs/aatorus/internal/actions"
	"github.com/odonata-labs/aatorus/internal/potential"
	"github.com/odonata-labs/aatorus/internal/units"
	"github.com/odonata-labs/aatorus/internal/validate"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// SampleMsg delivers one processed sample to the view.
type SampleMsg validate.Sample

// DoneMsg delivers the finished result.
type DoneMsg struct{ Result *validate.Result }

// ErrMsg delivers a run failure.
type ErrMsg struct{ Err error }

// Model is the live progress view of a validation run.
type Model struct {
	total   int
	units   units.Units
	samples []validate.Sample
	result  *validate.Result
	err     error
}

// NewModel creates a view expecting total samples.
func NewModel(total int, u units.Units) Model {
	return Model{total: total, units: u, samples: make([]validate.Sample, 0, total)}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.err == nil && m.result == nil {
				m.err = context.Canceled
			}
			return m, tea.Quit
		}
	case SampleMsg:
		m.samples = append(m.samples, validate.Sample(msg))
		return m, nil
	case DoneMsg:
		m.result = msg.Result
		return m, tea.Quit
	case ErrMsg:
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("validating action-angle round trip"))
	b.WriteString("\n")

	done := len(m.samples)
	const barWidth = 40
	filled := 0
	if m.total > 0 {
		filled = done * barWidth / m.total
	}
	if filled > barWidth {
		filled = barWidth
	}
	b.WriteString(barStyle.Render("[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "]"))
	b.WriteString(fmt.Sprintf(" %d/%d\n", done, m.total))

	if done > 0 {
		last := m.samples[done-1]
		row := func(label, value string) {
			b.WriteString(labelStyle.Render(label))
			b.WriteString(valueStyle.Render(value))
			b.WriteString("\n")
		}
		row("position", fmt.Sprintf("R=%.3f kpc  z=%.3f kpc",
			m.units.ToKpc(last.Point.R), m.units.ToKpc(last.Point.Z)))
		row("recovered J", fmt.Sprintf("Jr=%.5f  Jz=%.5f  Jphi=%.5f",
			m.units.ToAction(last.Recovered.Jr),
			m.units.ToAction(last.Recovered.Jz),
			m.units.ToAction(last.Recovered.Jphi)))
		row("energy", fmt.Sprintf("%.6f", last.Energy))

		if done > 2 {
			jr := make([]float64, done)
			for i, s := range m.samples {
				jr[i] = m.units.ToAction(s.Recovered.Jr)
			}
			chart := asciigraph.Plot(jr,
				asciigraph.Height(6), asciigraph.Width(54),
				asciigraph.Caption("recovered Jr"))
			b.WriteString(graphStyle.Render(chart))
			b.WriteString("\n")
		}
	}
	if m.err != nil {
		b.WriteString(fmt.Sprintf("\nerror: %v\n", m.err))
	}
	b.WriteString(helpStyle.Render("q quit"))
	b.WriteString("\n")
	return b.String()
}

// RunValidation executes validate.Run while streaming progress into a
// bubbletea program. It returns the finished result or the run error.
func RunValidation(ctx context.Context, pot potential.Potential, mapper *actions.TorusMapper, finder *actions.FudgeFinder, target actions.Actions, opts validate.Options, u units.Units) (*validate.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(opts.Samples, u))
	opts.OnSample = func(s validate.Sample) { p.Send(SampleMsg(s)) }

	go func() {
		res, err := validate.Run(ctx, pot, mapper, finder, target, opts)
		if err != nil {
			p.Send(ErrMsg{Err: err})
			return
		}
		p.Send(DoneMsg{Result: res})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m := final.(Model)
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return nil, fmt.Errorf("tui: validation aborted")
	}
	return m.result, nil
}
