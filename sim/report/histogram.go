package report

// DefaultMaxCount is the number of unit-width histogram bins, centred on
// 0, 1, ..., DefaultMaxCount-1.
const DefaultMaxCount = 30

// CountHistogram returns the normalized histogram of per-trial counts over
// unit bins centred on 0..maxCount-1. Counts outside the range are dropped
// before normalizing, so the result sums to 1 unless every count is out of
// range, in which case it is all zeros.
func CountHistogram(counts []int, maxCount int) []float64 {
	hist := make([]float64, maxCount)
	inRange := 0
	for _, n := range counts {
		if n >= 0 && n < maxCount {
			hist[n]++
			inRange++
		}
	}
	if inRange == 0 {
		return hist
	}
	for i := range hist {
		hist[i] /= float64(inRange)
	}
	return hist
}
