package viz

import (
	"fmt"
	"sort"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/cgsim/internal/sim"
)

type field struct {
	caption string
	value   func(sim.Frame) float64
}

var fields = map[string]field{
	"potential":   {"Potential energy (kJ/mol)", func(f sim.Frame) float64 { return f.PotentialEnergy }},
	"temperature": {"Temperature (K)", func(f sim.Frame) float64 { return f.Temperature }},
	"density":     {"Density (g/mL)", func(f sim.Frame) float64 { return f.Density }},
	"volume":      {"Box volume (nm^3)", func(f sim.Frame) float64 { return f.Volume }},
	"speed":       {"Speed (ns/day)", func(f sim.Frame) float64 { return f.Speed }},
}

// PlotFields lists the names PlotFrames accepts.
func PlotFields() []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PlotFrames draws one column of a scalar log against the frame index.
func PlotFrames(frames []sim.Frame, name string, width, height int) (string, error) {
	fd, ok := fields[name]
	if !ok {
		return "", fmt.Errorf("unknown field %q", name)
	}
	if len(frames) == 0 {
		return "", fmt.Errorf("no frames to plot")
	}
	data := make([]float64, len(frames))
	for i, f := range frames {
		data[i] = fd.value(f)
	}
	caption := fmt.Sprintf("%s, steps %d-%d", fd.caption, frames[0].Step, frames[len(frames)-1].Step)
	return asciigraph.Plot(data,
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.Caption(caption)), nil
}
