// Package horizon provides detector range functions: the distance, in Mpc,
// out to which an interferometer detects a compact binary of given component
// masses. Every provider here satisfies sim.RangeProvider and is safe for
// concurrent use.
package horizon

import "math"

// ChirpMass returns the chirp mass of a binary in the units of m1 and m2.
func ChirpMass(m1, m2 float64) float64 {
	total := m1 + m2
	if total <= 0 {
		return 0
	}
	return math.Pow(m1*m2, 3./5.) / math.Pow(total, 1./5.)
}

// canonicalChirpMass is the chirp mass of a 1.4+1.4 Msun binary.
var canonicalChirpMass = ChirpMass(1.4, 1.4)

// ChirpScaling scales a canonical BNS range by (Mc / Mc_1.4)^(5/6), the
// leading-order dependence of the inspiral range on chirp mass.
type ChirpScaling struct {
	ReferenceMpc float64 // range of a 1.4+1.4 Msun binary
}

func (c ChirpScaling) HorizonRange(m1, m2 float64) float64 {
	return c.ReferenceMpc * math.Pow(ChirpMass(m1, m2)/canonicalChirpMass, 5./6.)
}

// Constant returns the same range for every binary.
type Constant float64

func (c Constant) HorizonRange(_, _ float64) float64 { return float64(c) }

// Infinite is a detector that sees every event.
var Infinite = Constant(math.Inf(1))
