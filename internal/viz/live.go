package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/octgrav/internal/dynamo"
	"github.com/san-kum/octgrav/internal/physics"
	"github.com/san-kum/octgrav/internal/sim"
)

const (
	historyCapacity = 300
	frameRate       = time.Second / 30
	thetaFactor     = 1.25
	minTheta        = 0.05
	maxTheta        = 1.5
)

type TickMsg time.Time

// Model steps a simulator once per frame and shows how the run is doing.
type Model struct {
	sim      *sim.Simulator
	system   *physics.NBody
	scenario string

	state        dynamo.State
	initialState dynamo.State
	initialTheta float64
	t, dt        float64
	tick         int

	e0           float64
	driftHistory []float64
	stepTime     time.Duration

	running bool
	err     error
}

func NewModel(s *sim.Simulator, nb *physics.NBody, dt float64, scenario string) Model {
	x0 := nb.DefaultState()
	return Model{
		sim:          s,
		system:       nb,
		scenario:     scenario,
		state:        x0.Clone(),
		initialState: x0.Clone(),
		initialTheta: nb.Theta,
		dt:           dt,
		e0:           nb.Energy(x0),
		driftHistory: make([]float64, 0, historyCapacity),
		running:      true,
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			if m.err == nil {
				m.running = !m.running
			}
		case "+", "=":
			m.scaleTheta(thetaFactor)
		case "-", "_":
			m.scaleTheta(1 / thetaFactor)
		case "r":
			m.reset()
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, tickCmd()
	}
	return m, nil
}

func (m *Model) scaleTheta(factor float64) {
	theta := math.Min(maxTheta, math.Max(minTheta, m.system.Theta*factor))
	_ = m.system.SetParam("theta", theta)
}

func (m *Model) step() {
	start := time.Now()
	next, err := m.sim.Step(m.state, m.t, m.dt)
	m.stepTime = time.Since(start)
	if err != nil {
		m.err = &dynamo.SimulationError{Step: m.tick, Time: m.t, Wrapped: err}
		m.running = false
		return
	}

	m.state = next
	m.t += m.dt
	m.tick++

	drift := 0.0
	if m.e0 != 0 {
		drift = math.Abs(m.system.Energy(m.state)-m.e0) / math.Abs(m.e0)
	}
	m.driftHistory = append(m.driftHistory, drift)
	if len(m.driftHistory) > historyCapacity {
		m.driftHistory = m.driftHistory[1:]
	}
}

func (m *Model) reset() {
	m.state = m.initialState.Clone()
	m.t = 0
	m.tick = 0
	m.err = nil
	m.running = true
	m.driftHistory = m.driftHistory[:0]
	_ = m.system.SetParam("theta", m.initialTheta)
}

// Tick is the number of completed steps since the last reset.
func (m Model) Tick() int { return m.tick }

func (m Model) Running() bool { return m.running }

func (m Model) Err() error { return m.err }

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("OCTGRAV · "+strings.ToUpper(m.scenario)) + "\n")

	switch {
	case m.err != nil:
		s.WriteString(statusFailed.Render("FAILED: "+m.err.Error()) + "\n\n")
	case m.running:
		s.WriteString(statusRunning.Render("RUNNING") + "\n\n")
	default:
		s.WriteString(statusPaused.Render("PAUSED") + "\n\n")
	}

	drift := 0.0
	if n := len(m.driftHistory); n > 0 {
		drift = m.driftHistory[n-1]
	}

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Tick", fmt.Sprintf("%d", m.tick))
	row("Time", fmt.Sprintf("%.3f", m.t))
	row("Bodies", fmt.Sprintf("%d", len(m.system.Bodies())))
	row("Theta", fmt.Sprintf("%.3f", m.system.Theta))
	row("Step", m.stepTime.Round(time.Microsecond).String())
	s.WriteString(labelStyle.Render("Energy drift") + driftStyle(drift).Render(fmt.Sprintf("%.3e", drift)) + "\n")

	stats := m.system.Engine().Tree().Stats()
	diag := m.system.Diagnostics()
	s.WriteString("\nTREE\n")
	row("Nodes", fmt.Sprintf("%d", stats.Nodes))
	row("Depth", fmt.Sprintf("%d", stats.MaxDepth))
	row("Bucketed", fmt.Sprintf("%d", diag.Bucketed))
	row("Rejected", fmt.Sprintf("%d", diag.Rejected))
	row("Expansions", fmt.Sprintf("%d", diag.Expansions))

	panel := panelStyle.Render(s.String())

	if len(m.driftHistory) < 2 {
		return panel + "\n" + helpStyle.Render("SPACE:pause  +/-:theta  R:reset  Q:quit")
	}

	chart := asciigraph.Plot(m.driftHistory,
		asciigraph.Height(8),
		asciigraph.Width(50),
		asciigraph.Caption("relative energy drift"))
	return lipgloss.JoinHorizontal(lipgloss.Top, panel, graphStyle.Render(chart)) +
		"\n" + helpStyle.Render("SPACE:pause  +/-:theta  R:reset  Q:quit")
}
