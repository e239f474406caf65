package core

import "math"

// -----------------------------------------------------------------------------

// CalculateMeanStd computes mean and standard deviation.
func CalculateMeanStd(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, v := range data {
		sum += v
	}
	mean := sum / float64(len(data))

	if len(data) == 1 {
		return mean, 0
	}

	// Population std (N denominator)
	varianceSum := 0.0
	for _, v := range data {
		varianceSum += (v - mean) * (v - mean)
	}
	std := math.Sqrt(varianceSum / float64(len(data)))
	return mean, std
}

// -----------------------------------------------------------------------------

// CalculateMinMax returns the extremes of data, or zeros when empty.
func CalculateMinMax(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}
	lo, hi := data[0], data[0]
	for _, v := range data[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// -----------------------------------------------------------------------------

// CalculatePercentChange returns (last-first)/first in percent, 0 when first
// is zero.
func CalculatePercentChange(first, last float64) float64 {
	if first == 0 {
		return 0
	}
	return (last - first) / first * 100
}
