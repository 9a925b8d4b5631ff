// Package viz renders a running cloth in the terminal.
//
// The package implements an interactive TUI using the Bubble Tea framework:
//
//   - [App]: preset menu and parameter editor that launches a live view
//   - [Model]: live view that advances the simulation by wall-clock time
//   - [Canvas]: braille dot canvas
//   - [Camera] and [Wireframe]: orbit projection of springs and field arrows
//
// # Key Bindings
//
//	Space - Pause/Resume
//	.     - Single frame while paused
//	R     - Rebuild from the current config
//	Tab   - Cycle tunable parameters, Up/Down to change them
//	F/S   - Toggle field arrows / shear springs
//	x y z - Rotate the camera, shifted to reverse
//	T     - Cycle color themes
//	?     - Show help overlay
package viz
