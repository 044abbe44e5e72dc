package viz

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/cgsim/internal/dynamo"
	"github.com/san-kum/cgsim/internal/sim"
	"github.com/san-kum/cgsim/internal/structure"
)

type fakeTask struct {
	done, total int64
	cancelled   bool
}

func (t *fakeTask) Progress() (int64, int64) { return t.done, t.total }
func (t *fakeTask) Cancel()                  { t.cancelled = true }
func (t *fakeTask) Wait() error              { return nil }

func TestLiveFrames(t *testing.T) {
	task := &fakeTask{done: 40000, total: 400000}
	var m tea.Model = NewLive("h1_prota", task, nil)
	for i, pe := range []float64{-500, -520, -530} {
		m, _ = m.Update(FrameMsg(sim.Frame{
			Step: int64(20000 * (i + 1)), Time: 100 * float64(i+1),
			PotentialEnergy: pe, Temperature: 300, Speed: 250, Elapsed: 10 * time.Second,
		}))
	}
	view := m.View()
	for _, want := range []string{"h1_prota", "running", "60000", "-530.00 kJ/mol", "250.0 ns/day", "10.0%", "1m30s"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestLiveCancelAndDone(t *testing.T) {
	task := &fakeTask{total: 100}
	var m tea.Model = NewLive("run", task, nil)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !task.cancelled {
		t.Fatal("q did not cancel the run")
	}
	if !strings.Contains(m.View(), "cancelling") {
		t.Error("status not cancelling")
	}

	m, cmd := m.Update(DoneMsg{Err: errors.New("context canceled")})
	if cmd == nil {
		t.Fatal("done did not quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("done command is not quit")
	}
	if !strings.Contains(m.View(), "cancelled") {
		t.Error("status not cancelled")
	}
	if m.(Live).Err() == nil {
		t.Error("run error lost")
	}
}

func TestLiveFailure(t *testing.T) {
	var m tea.Model = NewLive("run", &fakeTask{}, nil)
	m, _ = m.Update(DoneMsg{Err: errors.New("worker exited")})
	view := m.View()
	if !strings.Contains(view, "failed") || !strings.Contains(view, "worker exited") {
		t.Errorf("failure not shown:\n%s", view)
	}
}

func TestFrameFeedDropsWhenFull(t *testing.T) {
	feed := make(FrameFeed, 1)
	for i := 0; i < 3; i++ {
		if err := feed.Report(sim.Frame{Step: int64(i)}); err != nil {
			t.Fatal(err)
		}
	}
	if got := <-feed; got.Step != 0 {
		t.Errorf("got step %d, want the first frame", got.Step)
	}
}

func TestRenderBox(t *testing.T) {
	c := NewCanvas(40, 20)
	box := dynamo.Cube(14)
	RenderBox(c, NewCamera(), box, nil, false)
	edges := c.Lit()
	if edges == 0 {
		t.Fatal("box edges not drawn")
	}

	cfg := &structure.Configuration{}
	for i := 0; i < 10; i++ {
		cfg.Beads = append(cfg.Beads, structure.Bead{Chain: "A", Pos: dynamo.Vec3{7 + 0.38*float64(i), 7, 7}})
	}
	RenderBox(c, NewCamera(), box, cfg, true)
	if c.Lit() <= edges {
		t.Error("beads not drawn")
	}
	if strings.Count(c.String(), "\n") != 20 {
		t.Error("canvas rows")
	}
}

func TestAppendBounded(t *testing.T) {
	var s []float64
	for i := 0; i < historyCapacity+5; i++ {
		s = appendBounded(s, float64(i))
	}
	if len(s) != historyCapacity || s[0] != 5 {
		t.Errorf("len %d, first %g", len(s), s[0])
	}
}

func TestPlotFrames(t *testing.T) {
	frames := []sim.Frame{
		{Step: 100, PotentialEnergy: -10, Temperature: 290},
		{Step: 200, PotentialEnergy: -12, Temperature: 305},
		{Step: 300, PotentialEnergy: -11, Temperature: 300},
	}
	out, err := PlotFrames(frames, "temperature", 30, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Temperature (K), steps 100-300") {
		t.Errorf("caption missing:\n%s", out)
	}
	if _, err := PlotFrames(frames, "pressure", 30, 5); err == nil {
		t.Error("unknown field accepted")
	}
	if _, err := PlotFrames(nil, "potential", 30, 5); err == nil {
		t.Error("empty log accepted")
	}
	if len(PlotFields()) != 5 {
		t.Errorf("fields = %v", PlotFields())
	}
}

func TestThemes(t *testing.T) {
	defer SetTheme(CurrentTheme.Name)
	if !SetTheme("retro") || CurrentTheme.Name != "retro" {
		t.Fatal("SetTheme")
	}
	NextTheme()
	if CurrentTheme.Name != "minimal" {
		t.Errorf("next theme = %s", CurrentTheme.Name)
	}
	if SetTheme("nope") {
		t.Error("unknown theme accepted")
	}
}
