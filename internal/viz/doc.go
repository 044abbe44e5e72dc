// Package viz renders simulation progress and structures in the terminal.
//
//   - [Live]: Bubble Tea model following a running simulation
//   - [Viewer]: rotatable braille rendering of a packed box
//   - [PlotFrames]: asciigraph plots of a stored scalar log
//
// # Key Bindings
//
// Live:
//
//	Q     - Cancel the run and quit
//	T     - Cycle color themes
//	?     - Show help overlay
//
// Viewer:
//
//	X/Y/Z - Rotate (shift reverses)
//	+/-   - Zoom
//	B     - Toggle chain bonds
//	T     - Cycle color themes
package viz
