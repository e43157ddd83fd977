// Package viz draws the cloud in a terminal.
//
// [TermRenderer] is an engine renderer that projects particles onto a
// braille [Canvas], keeping the nearest particle's color per cell. [Model]
// is the Bubble Tea program that ticks the engine and shows a status panel
// with an expansion graph; [Picker] is the start menu.
//
// # Key Bindings
//
//	1-6   - switch shape
//	C     - next color swatch
//	M     - particle colors / theme color
//	T     - cycle themes
//	+/-   - zoom
//	Space - pause
//	G     - toggle GIF recording
//	?     - help
package viz
