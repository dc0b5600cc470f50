package sim

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestNewKilonovaModel_BaselineAndEarlyCutoff(t *testing.T) {
	k, err := NewKilonovaModel(newTestTemplate(t), "f160w", DefaultKilonovaCalibration())
	require.NoError(t, err)

	tests := []struct {
		delay float64
		want  float64
	}{
		{0, 0},     // nearest 0.5 d, before the cutoff
		{1.4, 0},   // nearest 1.5 d, still before the cutoff
		{3.2, 0.6}, // 17.6 - 17.0
		{4.0, 0.6}, // tie between 3 d and 5 d goes to the earlier row
		{4.1, 1.5},
		{12, 3.0},
		{500, 9.0}, // past the end of the template
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, k.TemplateOffset(tt.delay), 1e-12, "delay %g", tt.delay)
	}
}

func TestNewKilonovaModel_Errors(t *testing.T) {
	_, err := NewKilonovaModel(newTestTemplate(t), "f814w", DefaultKilonovaCalibration())
	assert.Error(t, err)

	_, err = NewKilonovaModel(nil, "f160w", DefaultKilonovaCalibration())
	assert.Error(t, err)
}

func TestSampleAbsoluteMagnitudes_Bounds(t *testing.T) {
	// GIVEN no extinction
	cal := DefaultKilonovaCalibration()
	cal.ExtinctionScale = 0
	k, err := NewKilonovaModel(newTestTemplate(t), "f160w", cal)
	require.NoError(t, err)

	mags := k.SampleAbsoluteMagnitudes(rand.New(rand.NewSource(3)), 5000)
	require.Len(t, mags, 5000)

	// THEN every magnitude lies between the reference and reference + scatter + template depth
	spread := math.Abs(cal.MaxMag - cal.MinMag)
	assert.GreaterOrEqual(t, floats.Min(mags), cal.ReferenceAbsMag)
	assert.Less(t, floats.Max(mags), cal.ReferenceAbsMag+spread+9.0)
}

func TestSampleAbsoluteMagnitudes_LateDelaysReset(t *testing.T) {
	// GIVEN no scatter and no extinction, magnitudes are reference + template offset
	cal := DefaultKilonovaCalibration()
	cal.ExtinctionScale = 0
	cal.MinMag = cal.MaxMag
	k, err := NewKilonovaModel(newTestTemplate(t), "f160w", cal)
	require.NoError(t, err)

	mags := k.SampleAbsoluteMagnitudes(rand.New(rand.NewSource(8)), 10000)

	// THEN delays past 90 d (about three quarters of a year) sit at peak brightness
	atPeak := 0
	for _, m := range mags {
		if m == cal.ReferenceAbsMag {
			atPeak++
		}
	}
	assert.Greater(t, float64(atPeak)/float64(len(mags)), 0.7)
}

func TestSampleAbsoluteMagnitudes_ExtinctionDims(t *testing.T) {
	cal := DefaultKilonovaCalibration()
	noDust := cal
	noDust.ExtinctionScale = 0
	dusty, err := NewKilonovaModel(newTestTemplate(t), "f160w", cal)
	require.NoError(t, err)
	clean, err := NewKilonovaModel(newTestTemplate(t), "f160w", noDust)
	require.NoError(t, err)

	a := dusty.SampleAbsoluteMagnitudes(rand.New(rand.NewSource(4)), 2000)
	b := clean.SampleAbsoluteMagnitudes(rand.New(rand.NewSource(4)), 2000)

	// same seed, same delays and scatter: extinction only ever adds magnitudes
	for i := range a {
		require.GreaterOrEqual(t, a[i], b[i])
	}
	assert.Greater(t, floats.Sum(a), floats.Sum(b))
}

func TestDistanceModulus(t *testing.T) {
	assert.InDelta(t, 0, DistanceModulus(1e-5), 1e-12)
	assert.InDelta(t, 25, DistanceModulus(1), 1e-12)
	assert.InDelta(t, 33.0103, DistanceModulus(40), 1e-4)
}
