package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/cgsim/internal/dynamo"
	"github.com/san-kum/cgsim/internal/structure"
)

// Viewer is an interactive view of a packed box.
type Viewer struct {
	title  string
	box    dynamo.Box
	cfg    *structure.Configuration
	chains int
	camera *Camera
	canvas *Canvas
	bonds  bool
}

func NewViewer(title string, box dynamo.Box, cfg *structure.Configuration) Viewer {
	chains := map[string]bool{}
	for _, b := range cfg.Beads {
		chains[b.Chain] = true
	}
	return Viewer{
		title:  title,
		box:    box,
		cfg:    cfg,
		chains: len(chains),
		camera: NewCamera(),
		canvas: NewCanvas(60, 24),
		bonds:  true,
	}
}

func (m Viewer) Init() tea.Cmd { return nil }

func (m Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "x":
			m.camera.RotateX(0.1)
		case "X":
			m.camera.RotateX(-0.1)
		case "y":
			m.camera.RotateY(0.1)
		case "Y":
			m.camera.RotateY(-0.1)
		case "z":
			m.camera.RotateZ(0.1)
		case "Z":
			m.camera.RotateZ(-0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		case "b":
			m.bonds = !m.bonds
		case "t":
			NextTheme()
		}
	case tea.WindowSizeMsg:
		w, h := max(msg.Width-6, 20), max(msg.Height-8, 8)
		m.canvas = NewCanvas(w, h)
	}
	return m, nil
}

func (m Viewer) View() string {
	RenderBox(m.canvas, m.camera, m.box, m.cfg, m.bonds)
	var s strings.Builder
	s.WriteString(titleStyle().Render(m.title) + "\n")
	s.WriteString(valueStyle().Render(fmt.Sprintf("%d beads, %d chains, box %s", m.cfg.Len(), m.chains, m.box)) + "\n")
	s.WriteString(panelStyle().Render(strings.TrimRight(m.canvas.String(), "\n")) + "\n")
	s.WriteString(hintStyle().Render("x/y/z rotate  +/- zoom  b bonds  t theme  q quit") + "\n")
	return s.String()
}
