package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/cgsim/internal/logging"
	"github.com/san-kum/cgsim/internal/sim"
)

func scrape(t *testing.T, e *Exporter) string {
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	e.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestExporterReport(t *testing.T) {
	e := NewExporter("run-1", logging.NewNop())
	require.NoError(t, e.Report(sim.Frame{Step: 20000, Time: 100, PotentialEnergy: -512.5, Temperature: 301}))
	require.NoError(t, e.Report(sim.Frame{Step: 40000, Time: 200, PotentialEnergy: -600, Temperature: 299, Speed: 250}))

	out := scrape(t, e)
	assert.Contains(t, out, `cgsim_sim_step{run="run-1"} 40000`)
	assert.Contains(t, out, `cgsim_sim_potential_energy_kj_per_mol{run="run-1"} -600`)
	assert.Contains(t, out, `cgsim_sim_frames_total{run="run-1"} 2`)
	assert.Contains(t, out, `cgsim_sim_temperature_kelvin{run="run-1"} 299`)
	assert.Contains(t, out, `cgsim_sim_speed_ns_per_day{run="run-1"} 250`)
}

func TestExportersAreIndependent(t *testing.T) {
	a := NewExporter("a", nil)
	b := NewExporter("b", nil)
	require.NoError(t, a.Report(sim.Frame{Step: 5}))
	assert.Contains(t, scrape(t, b), `cgsim_sim_step{run="b"} 0`)
	assert.NotContains(t, scrape(t, b), `run="a"`)
}
