package trial

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the spread of measured trial times.
type Summary struct {
	N      int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Summarize returns zero values for an empty slice.
func Summarize(times []float64) Summary {
	if len(times) == 0 {
		return Summary{}
	}
	s := Summary{
		N:   len(times),
		Min: floats.Min(times),
		Max: floats.Max(times),
	}
	if len(times) == 1 {
		s.Mean = times[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(times, nil)
	return s
}
