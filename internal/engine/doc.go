// Package engine is the boundary to the external molecular dynamics engine.
//
// The pipeline never integrates equations of motion itself. It binds an
// assembled system, initial positions and an integrator to an Engine and
// drives the returned Context:
//
//	ctx, err := eng.Bind(c, engine.BindSpec{System: sys, Positions: start, ...})
//	ctx.MinimizeEnergy(c, 0, 0)
//	ctx.SetVelocitiesToTemperature(c, 300, seed)
//	ctx.Step(c, 400000000, 20000, onFrame)
//
// # Platforms
//
// ParsePlatform maps a configuration string to one of the platforms an
// engine may offer: CUDA, OpenCL, CPU or Reference. Unknown names are
// rejected rather than replaced by a fallback.
//
// # Worker protocol
//
// ExecEngine runs the engine as a child process and talks to it over
// stdin/stdout, one JSON object per line. Requests carry an "op" field
// (bind, minimize, velocities, reporters, step, close). The worker answers
// every request with either {"event":"ok"} or {"event":"error","message":...}.
// While stepping it streams {"event":"frame","frame":{...}} at each report
// interval and finishes with {"event":"done"}.
package engine
