package analysis

import (
	"math"

	"github.com/san-kum/morphcloud/internal/storage"
)

// Report summarizes one telemetry series.
type Report struct {
	Samples       int
	SampleRate    float64 // Hz, from the mean time step
	DominantHz    float64
	HighBandRatio float64 // energy above the cutoff over total energy
	MeanStep      float64 // mean |x[i+1]-x[i]|
	Min, Max      float64
}

// Analyze computes a Report for values sampled at times. cutoffHz splits
// deliberate motion from jitter.
func Analyze(times, values []float64, cutoffHz float64) Report {
	n := min(len(times), len(values))
	rep := Report{Samples: n}
	if n < 4 {
		return rep
	}
	times, values = times[:n], values[:n]

	span := times[n-1] - times[0]
	if span <= 0 {
		return rep
	}
	rep.SampleRate = float64(n-1) / span

	rep.Min, rep.Max = values[0], values[0]
	for i, v := range values {
		rep.Min = math.Min(rep.Min, v)
		rep.Max = math.Max(rep.Max, v)
		if i > 0 {
			rep.MeanStep += math.Abs(v - values[i-1])
		}
	}
	rep.MeanStep /= float64(n - 1)

	ps := PowerSpectrum(values)
	binHz := rep.SampleRate / float64(n)

	var total, high, peak float64
	for k := 1; k < len(ps); k++ {
		e := ps[k] * ps[k]
		total += e
		if float64(k)*binHz > cutoffHz {
			high += e
		}
		if ps[k] > peak {
			peak = ps[k]
			rep.DominantHz = float64(k) * binHz
		}
	}
	if total > 0 {
		rep.HighBandRatio = high / total
	}
	return rep
}

// SmoothedColumns are the telemetry series worth analyzing by default.
var SmoothedColumns = []string{"raw_expansion", "target_expansion", "expansion", "yaw", "pitch"}

// AnalyzeTelemetry reports on each named column present in tel. With no
// columns given it uses SmoothedColumns.
func AnalyzeTelemetry(tel *storage.Telemetry, cutoffHz float64, columns ...string) map[string]Report {
	if len(columns) == 0 {
		columns = SmoothedColumns
	}
	out := make(map[string]Report, len(columns))
	for _, name := range columns {
		series := tel.Get(name)
		if series == nil {
			continue
		}
		out[name] = Analyze(tel.Times, series, cutoffHz)
	}
	return out
}
