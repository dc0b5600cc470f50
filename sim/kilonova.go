package sim

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/davecoulter/KNmodel/sim/kilonova"
)

// KilonovaModel turns delays and extinction draws into absolute magnitudes
// using one template filter. Read-only after construction.
type KilonovaModel struct {
	template *kilonova.Template
	cal      KilonovaCalibration
	// offsets[i] is the template magnitude of row i minus the column minimum,
	// zero for rows earlier than the calibration's EarlyPhaseCutoff.
	offsets []float64
}

// NewKilonovaModel precomputes the baseline-subtracted light curve of filter.
func NewKilonovaModel(t *kilonova.Template, filter string, cal KilonovaCalibration) (*KilonovaModel, error) {
	if t == nil || t.Len() == 0 {
		return nil, fmt.Errorf("kilonova template is empty")
	}
	mags, err := t.Column(filter)
	if err != nil {
		return nil, err
	}
	baseline := floats.Min(mags)
	phases := t.Phases()
	offsets := make([]float64, len(mags))
	for i, m := range mags {
		if phases[i] < cal.EarlyPhaseCutoff {
			continue
		}
		offsets[i] = m - baseline
	}
	return &KilonovaModel{template: t, cal: cal, offsets: offsets}, nil
}

// TemplateOffset returns the light-curve contribution at the given delay
// (nearest template phase, no interpolation).
func (k *KilonovaModel) TemplateOffset(delayDays float64) float64 {
	return k.offsets[k.template.Nearest(delayDays)]
}

// SampleAbsoluteMagnitudes draws n absolute magnitudes: n delays, then n
// extinctions, then n intrinsic-scatter variates.
func (k *KilonovaModel) SampleAbsoluteMagnitudes(rng *rand.Rand, n int) []float64 {
	cal := k.cal
	delay := make([]float64, n)
	for i := range delay {
		delay[i] = rng.Float64() * cal.DelayWindowDays
		if delay[i] > cal.MaxDelayDays {
			delay[i] = 0
		}
	}
	extinctionH := make([]float64, n)
	for i := range extinctionH {
		av := rng.ExpFloat64() * cal.ExtinctionScale
		extinctionH[i] = av / cal.ExtinctionRatio
	}
	spread := math.Abs(cal.MaxMag - cal.MinMag)
	absMag := make([]float64, n)
	for i := range absMag {
		absMag[i] = rng.Float64()*spread + cal.ReferenceAbsMag + k.TemplateOffset(delay[i]) + extinctionH[i]
	}
	return absMag
}

// DistanceModulus returns 5·log10(d / 10 pc) for a distance in Mpc.
func DistanceModulus(distanceMpc float64) float64 {
	return 5*math.Log10(distanceMpc) + 25
}
