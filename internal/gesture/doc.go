// Package gesture maps hand landmark results to a smoothed pose.
//
// The recognizer delivers 0–2 hands of 21 landmarks each on its own
// goroutine through [Mapper.Update]. The scheduler reads one [Snapshot] per
// frame through [Mapper.Step]. Smoothing happens twice: raw values ease into
// targets on each callback, targets ease into the applied pose on each step.
// Without hands, or when input stops arriving, targets settle back to [Rest].
package gesture
