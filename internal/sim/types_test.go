package sim

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/san-kum/cgsim/internal/logging"
)

func TestFrameIsValid(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		valid bool
	}{
		{"zero", Frame{}, true},
		{"normal", Frame{PotentialEnergy: -1200, KineticEnergy: 300}, true},
		{"NaN potential", Frame{PotentialEnergy: math.NaN()}, false},
		{"+Inf kinetic", Frame{KineticEnergy: math.Inf(1)}, false},
		{"-Inf potential", Frame{PotentialEnergy: math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.frame.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestStateDataReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewStateDataWriter(&buf)
	frames := []Frame{
		{Step: 20000, Time: 100, PotentialEnergy: -5123.5, Temperature: 299.1, Volume: 2744, Density: 0.021, Speed: 310, Elapsed: 3 * time.Second},
		{Step: 40000, Time: 200, PotentialEnergy: -5200.25, Temperature: 301.4, Volume: 2744, Density: 0.021, Speed: 305, Elapsed: 6 * time.Second},
	}
	for _, f := range frames {
		if err := r.Report(f); err != nil {
			t.Fatal(err)
		}
		// rows are visible before Close
		if got := strings.Count(buf.String(), "\n"); got != int(f.Step/20000)+1 {
			t.Errorf("after step %d: %d lines written", f.Step, got)
		}
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if !strings.HasPrefix(lines[0], "Step,Time (ps),Potential Energy") {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "20000,100,-5123.5,299.1,2744,0.021,310,3" {
		t.Errorf("row = %q", lines[1])
	}

	got, err := ReadStateData(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1] != frames[1] {
		t.Errorf("ReadStateData = %+v", got)
	}
}

func TestReadStateDataErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"short row", "1,2,3\n"},
		{"bad step", "x,0,0,0,0,0,0,0\n"},
		{"bad value", "10,0,abc,0,0,0,0,0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadStateData(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error")
			}
		})
	}

	frames, err := ReadStateData(strings.NewReader(""))
	if err != nil || len(frames) != 0 {
		t.Errorf("empty log: %v, %v", frames, err)
	}
}

func TestLogReporter(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := LogReporter{Logger: logging.NewFromCore(core)}
	if err := r.Report(Frame{Step: 40, PotentialEnergy: -3}); err != nil {
		t.Fatal(err)
	}
	entries := logs.FilterMessage("frame").All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	if step := entries[0].ContextMap()["step"]; step != int64(40) {
		t.Errorf("step field = %v", step)
	}

	if err := (LogReporter{}).Report(Frame{}); err != nil {
		t.Errorf("nil logger: %v", err)
	}
}
