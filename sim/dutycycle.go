package sim

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SampleDutyCycles returns, per detector, whether it was on for each of n events.
//
// An n×4 matrix of uniform variates is multiplied by the correlation factor,
// each column is min-max rescaled to [0, 1], and a detector is on when its
// rescaled value is at most its duty cycle. A column with zero spread
// (n = 1) rescales to 0. n = 0 returns four empty slices.
func SampleDutyCycles(rng *rand.Rand, n int, factor *CorrelationFactor, duty [NumDetectors]float64) [NumDetectors][]bool {
	var on [NumDetectors][]bool
	for d := range on {
		on[d] = make([]bool, n)
	}
	if n == 0 {
		return on
	}

	rnd := make([]float64, n*NumDetectors)
	for i := range rnd {
		rnd[i] = rng.Float64()
	}
	series := factor.Apply(mat.NewDense(n, NumDetectors, rnd))

	col := make([]float64, n)
	for d := 0; d < NumDetectors; d++ {
		mat.Col(col, d, series)
		lo, hi := floats.Min(col), floats.Max(col)
		span := hi - lo
		for i, v := range col {
			scaled := 0.
			if span > 0 {
				scaled = (v - lo) / span
			}
			on[d][i] = scaled <= duty[d]
		}
	}
	return on
}
