// Package viz provides a terminal dashboard for a running gravity
// simulation, built on Bubble Tea.
//
// The dashboard does not draw bodies. It shows the tick counter, energy
// drift with a sparkline, and the shape of the octree after each rebuild.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	+/-   - Scale theta up or down
//	R     - Reset to the initial state
//	Q     - Quit
package viz
