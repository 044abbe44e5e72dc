package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/cgsim/internal/sim"
)

const historyCapacity = 600

// Task is the part of a background run the live view drives.
type Task interface {
	Progress() (done, total int64)
	Cancel()
	Wait() error
}

// FrameFeed is a sim.Reporter that forwards frames to a live view. Frames
// are dropped while the view is behind.
type FrameFeed chan sim.Frame

func NewFrameFeed() FrameFeed { return make(FrameFeed, 64) }

func (f FrameFeed) Report(fr sim.Frame) error {
	select {
	case f <- fr:
	default:
	}
	return nil
}

type (
	FrameMsg sim.Frame
	DoneMsg  struct{ Err error }
	TickMsg  time.Time
)

// Live follows a running simulation.
type Live struct {
	title     string
	task      Task
	feed      <-chan sim.Frame
	last      sim.Frame
	frames    int
	potential []float64
	temps     []float64
	status    string
	err       error
	showHelp  bool
	width     int
}

func NewLive(title string, task Task, feed <-chan sim.Frame) Live {
	return Live{
		title:     title,
		task:      task,
		feed:      feed,
		potential: make([]float64, 0, historyCapacity),
		temps:     make([]float64, 0, historyCapacity),
		status:    "running",
		width:     80,
	}
}

// Err is the error the run ended with.
func (m Live) Err() error { return m.err }

func (m Live) Init() tea.Cmd {
	return tea.Batch(m.waitFrame(), m.waitDone(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/4, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Live) waitFrame() tea.Cmd {
	return func() tea.Msg {
		f, ok := <-m.feed
		if !ok {
			return nil
		}
		return FrameMsg(f)
	}
}

func (m Live) waitDone() tea.Cmd {
	return func() tea.Msg { return DoneMsg{Err: m.task.Wait()} }
}

func (m Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.status == "running" {
				m.status = "cancelling"
				m.task.Cancel()
			}
		case "t":
			NextTheme()
		case "?":
			m.showHelp = !m.showHelp
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case FrameMsg:
		m.observe(sim.Frame(msg))
		return m, m.waitFrame()
	case TickMsg:
		if m.status == "running" || m.status == "cancelling" {
			return m, tick()
		}
	case DoneMsg:
		m.err = msg.Err
		switch {
		case msg.Err == nil:
			m.status = "completed"
		case m.status == "cancelling":
			m.status = "cancelled"
		default:
			m.status = "failed"
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m *Live) observe(f sim.Frame) {
	m.last = f
	m.frames++
	m.potential = appendBounded(m.potential, f.PotentialEnergy)
	m.temps = appendBounded(m.temps, f.Temperature)
}

func appendBounded(s []float64, v float64) []float64 {
	if len(s) == historyCapacity {
		copy(s, s[1:])
		s = s[:len(s)-1]
	}
	return append(s, v)
}

func (m Live) View() string {
	var s strings.Builder
	s.WriteString(titleStyle().Render(m.title) + "  " + statusStyle(m.status).Render(m.status) + "\n\n")

	done, total := m.task.Progress()
	frac := 0.0
	if total > 0 {
		frac = float64(done) / float64(total)
	}
	s.WriteString(ProgressBar(frac, 40) + fmt.Sprintf(" %5.1f%%  %d/%d steps\n\n", 100*frac, done, total))

	row := func(label, value string) {
		s.WriteString(labelStyle().Render(label) + valueStyle().Render(value) + "\n")
	}
	row("Step", fmt.Sprintf("%d", m.last.Step))
	row("Time", fmt.Sprintf("%.3f ns", m.last.Time/1000))
	row("Potential", fmt.Sprintf("%.2f kJ/mol", m.last.PotentialEnergy))
	row("Temperature", fmt.Sprintf("%.1f K", m.last.Temperature))
	row("Density", fmt.Sprintf("%.4f g/mL", m.last.Density))
	row("Speed", fmt.Sprintf("%.1f ns/day", m.last.Speed))
	row("ETA", eta(m.last.Elapsed, done, total))

	if len(m.potential) > 1 {
		chart := asciigraph.Plot(m.potential,
			asciigraph.Height(6), asciigraph.Width(min(60, max(m.width-20, 20))),
			asciigraph.Caption("Potential energy (kJ/mol)"))
		s.WriteString("\n" + chart + "\n")
	}
	if len(m.temps) > 0 {
		s.WriteString("\n" + labelStyle().Render("Temperature") + Sparkline(m.temps, 40) + "\n")
	}
	if m.err != nil && m.status == "failed" {
		s.WriteString("\n" + statusStyle("failed").Render(m.err.Error()) + "\n")
	}

	s.WriteString("\n" + Separator(60) + "\n")
	if m.showHelp {
		s.WriteString(hintStyle().Render("q: cancel run and quit   t: cycle theme   ?: hide help") + "\n")
	} else {
		s.WriteString(hintStyle().Render("q: quit   ?: help") + "\n")
	}
	return s.String()
}

func eta(elapsed time.Duration, done, total int64) string {
	if done <= 0 || elapsed <= 0 || done >= total {
		return "-"
	}
	left := time.Duration(float64(elapsed) * float64(total-done) / float64(done))
	return left.Round(time.Second).String()
}
