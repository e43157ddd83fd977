// Package analysis characterizes recorded gesture telemetry.
//
// The mapper is meant to turn noisy landmarks into slow, smooth motion. The
// tools here measure how well it does:
//
//   - [PowerSpectrum]: magnitude spectrum of a detrended series
//   - [Analyze]: dominant frequency, high-band energy ratio and mean step
//     of one series
//
// # Jitter Score
//
// The high-band ratio is the share of spectral energy above a cutoff. A
// well-damped applied yaw keeps it near zero even when the raw input
// shakes:
//
//	rep := analysis.Analyze(tel.Times, tel.Get("yaw"), 3)
//	if rep.HighBandRatio > 0.1 {
//	    // visible shake
//	}
package analysis
