// Package particles owns the fixed-size particle state the renderer draws.
//
// A [Buffer] holds struct-of-arrays current/target positions and colors for
// N particles, allocated once:
//
//   - [Buffer.Tick]: blends current values toward the expanded targets
//   - [Buffer.SwitchShape]: regenerates targets atomically and enters
//     fast-transition mode
//   - [Buffer.SetColor]: recolors untagged shapes immediately
//   - [Modulate]: per-shape breathing applied to the expansion factor
//
// # Thread Safety
//
// Buffer is NOT thread-safe. The engine serializes ticks and commands under
// its own mutex.
package particles
