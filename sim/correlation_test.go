package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewCorrelationFactor_ReconstructsMatrix(t *testing.T) {
	// GIVEN the default H/L/V/K correlations
	c := DefaultCorrelationMatrix()

	// WHEN factorized
	f, err := NewCorrelationFactor(c)
	require.NoError(t, err)
	u := f.Upper()

	// THEN U is upper triangular and UᵀU reproduces C
	for i := 0; i < NumDetectors; i++ {
		for j := 0; j < i; j++ {
			assert.Equal(t, 0., u.At(i, j), "U[%d][%d]", i, j)
		}
	}
	var got mat.Dense
	got.Mul(u.T(), u)
	for i := 0; i < NumDetectors; i++ {
		for j := 0; j < NumDetectors; j++ {
			assert.InDelta(t, c[i][j], got.At(i, j), 1e-12, "C[%d][%d]", i, j)
		}
	}

	// AND the first column passes H through unchanged
	assert.InDelta(t, 1, u.At(0, 0), 1e-12)
}

func TestNewCorrelationFactor_Identity(t *testing.T) {
	f, err := NewCorrelationFactor(IdentityCorrelationMatrix())
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(f.Upper(), mat.NewDiagDense(NumDetectors, []float64{1, 1, 1, 1}), 1e-15))
}

func TestNewCorrelationFactor_Rejects(t *testing.T) {
	notPD := CorrelationMatrix{
		{1, -0.5, -0.5, -0.5},
		{-0.5, 1, -0.5, -0.5},
		{-0.5, -0.5, 1, -0.5},
		{-0.5, -0.5, -0.5, 1},
	}
	asymmetric := DefaultCorrelationMatrix()
	asymmetric[2][3] = 0.4
	badDiagonal := DefaultCorrelationMatrix()
	badDiagonal[1][1] = 0.9
	outOfRange := IdentityCorrelationMatrix()
	outOfRange[0][1], outOfRange[1][0] = 1.2, 1.2

	tests := []struct {
		name string
		m    CorrelationMatrix
	}{
		{"not positive definite", notPD},
		{"asymmetric", asymmetric},
		{"diagonal not one", badDiagonal},
		{"entry above one", outOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCorrelationFactor(tt.m)
			assert.Error(t, err)
		})
	}
}

func TestCorrelationFactor_Apply(t *testing.T) {
	f, err := NewCorrelationFactor(DefaultCorrelationMatrix())
	require.NoError(t, err)

	// a unit row selects the matching row of U
	rnd := mat.NewDense(1, NumDetectors, []float64{1, 0, 0, 0})
	series := f.Apply(rnd)
	r, c := series.Dims()
	assert.Equal(t, 1, r)
	assert.Equal(t, NumDetectors, c)
	assert.InDeltaSlice(t, []float64{1, 0.8, 0.2, 0.2}, mat.Row(nil, 0, series), 1e-12)
}
