package field

import "math"

// Statistics summarizes the values of a field, for quick inspection.
type Statistics struct {
	Num  int
	Min  float64
	Max  float64
	Mean float64
}

func computeStatistics(values []float64) Statistics {
	stats := Statistics{Min: math.Inf(1), Max: math.Inf(-1)}
	sum := 0.0
	for _, v := range values {
		stats.Num++
		sum += v
		if v < stats.Min {
			stats.Min = v
		}
		if v > stats.Max {
			stats.Max = v
		}
	}
	if stats.Num > 0 {
		stats.Mean = sum / float64(stats.Num)
	} else {
		stats.Min, stats.Max = 0, 0
	}
	return stats
}

// Statistics summarizes the node values of the scalar field.
func (f *Scalar3) Statistics() Statistics {
	return computeStatistics(f.values)
}

// MagnitudeStatistics summarizes the vector norms over all nodes.
func (f *Vector3) MagnitudeStatistics() Statistics {
	return f.Magnitudes().Statistics()
}
