package sim

import (
	"fmt"
	"math"
	"math/rand"
)

// SampleRate draws a merger rate density from the log-normal prior:
// 10^Normal(meanLog, sigLog).
func SampleRate(rng *rand.Rand, meanLog, sigLog float64) float64 {
	return math.Pow(10, rng.NormFloat64()*sigLog+meanLog)
}

// EventCount converts a rate into a number of events in the given volume and
// duration, rounding half to even.
func EventCount(rate, volume, duration float64) int {
	n := math.RoundToEven(rate * volume * duration)
	if n <= 0 || math.IsNaN(n) {
		return 0
	}
	return int(n)
}

// MassModel draws one neutron-star component mass in solar masses.
type MassModel interface {
	// Sample returns a non-negative mass.
	Sample(rng *rand.Rand) float64
}

// GalacticPopulation is a normal distribution left-truncated at zero.
type GalacticPopulation struct {
	Mean, Sigma float64
}

func (g GalacticPopulation) Sample(rng *rand.Rand) float64 {
	// Mean > 0 is validated, so acceptance is at least one half.
	for {
		m := rng.NormFloat64()*g.Sigma + g.Mean
		if m >= 0 {
			return m
		}
	}
}

// FlatPopulation is uniform in [Min, Max).
type FlatPopulation struct {
	Min, Max float64
}

func (f FlatPopulation) Sample(rng *rand.Rand) float64 {
	return f.Min + rng.Float64()*(f.Max-f.Min)
}

// NewMassModel creates a MassModel from a MassConfig.
func NewMassModel(cfg MassConfig) (MassModel, error) {
	switch cfg.Distribution {
	case MassGalactic:
		return GalacticPopulation{Mean: cfg.Key1, Sigma: cfg.Key2}, nil
	case MassFlat:
		return FlatPopulation{Min: cfg.Key1, Max: cfg.Key2}, nil
	default:
		return nil, fmt.Errorf("unknown mass distribution %q", cfg.Distribution)
	}
}

// SampleMasses draws n primary masses followed by n secondary masses.
func SampleMasses(rng *rand.Rand, model MassModel, n int) (mass1, mass2 []float64) {
	mass1 = make([]float64, n)
	mass2 = make([]float64, n)
	for i := range mass1 {
		mass1[i] = model.Sample(rng)
	}
	for i := range mass2 {
		mass2[i] = model.Sample(rng)
	}
	return mass1, mass2
}
