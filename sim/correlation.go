package sim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// NumDetectors is the size of the interferometer network.
const NumDetectors = 4

// correlationTolerance bounds asymmetry and diagonal drift of a correlation matrix.
const correlationTolerance = 1e-12

// CorrelationMatrix holds pairwise duty-cycle correlations in detector order.
type CorrelationMatrix [NumDetectors][NumDetectors]float64

// DefaultCorrelationMatrix returns the H/L/V/K correlations: the two LIGO sites
// are strongly correlated (0.8), every other pair weakly (0.2).
func DefaultCorrelationMatrix() CorrelationMatrix {
	return CorrelationMatrix{
		{1., 0.8, 0.2, 0.2},
		{0.8, 1., 0.2, 0.2},
		{0.2, 0.2, 1., 0.2},
		{0.2, 0.2, 0.2, 1.},
	}
}

// IdentityCorrelationMatrix returns uncorrelated detectors.
func IdentityCorrelationMatrix() CorrelationMatrix {
	var m CorrelationMatrix
	for i := range m {
		m[i][i] = 1
	}
	return m
}

// Validate checks symmetry, unit diagonal and entries in [-1, 1].
// Positive-definiteness is checked by NewCorrelationFactor.
func (m CorrelationMatrix) Validate() error {
	for i := 0; i < NumDetectors; i++ {
		if math.Abs(m[i][i]-1) > correlationTolerance {
			return fmt.Errorf("correlation matrix diagonal [%d][%d] = %g, want 1", i, i, m[i][i])
		}
		for j := 0; j < NumDetectors; j++ {
			v := m[i][j]
			if math.IsNaN(v) || v < -1 || v > 1 {
				return fmt.Errorf("correlation matrix entry [%d][%d] = %g outside [-1, 1]", i, j, v)
			}
			if math.Abs(v-m[j][i]) > correlationTolerance {
				return fmt.Errorf("correlation matrix is not symmetric at [%d][%d]", i, j)
			}
		}
	}
	return nil
}

func (m CorrelationMatrix) sym() *mat.SymDense {
	data := make([]float64, 0, NumDetectors*NumDetectors)
	for i := range m {
		data = append(data, m[i][:]...)
	}
	return mat.NewSymDense(NumDetectors, data)
}

// CorrelationFactor is the upper-triangular Cholesky factor U of a correlation
// matrix C, with UᵀU = C. Read-only after construction; safe to share.
type CorrelationFactor struct {
	upper *mat.TriDense
}

// NewCorrelationFactor validates m and factorizes it.
// Returns an error if m is not a positive-definite correlation matrix.
func NewCorrelationFactor(m CorrelationMatrix) (*CorrelationFactor, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(m.sym()); !ok {
		return nil, fmt.Errorf("correlation matrix is not positive definite")
	}
	var u mat.TriDense
	chol.UTo(&u)
	return &CorrelationFactor{upper: &u}, nil
}

// Upper returns a copy of the factor.
func (f *CorrelationFactor) Upper() *mat.Dense {
	return mat.DenseCopyOf(f.upper)
}

// Apply returns rnd·U. rnd must have NumDetectors columns.
func (f *CorrelationFactor) Apply(rnd mat.Matrix) *mat.Dense {
	var series mat.Dense
	series.Mul(rnd, f.upper)
	return &series
}
