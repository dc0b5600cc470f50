package sim

import (
	"math"
	"math/rand"
)

// MinSeparationMpc is added in quadrature to every distance so no event sits
// at the origin.
const MinSeparationMpc = 0.05

// Position is a point in the simulation box, in Mpc.
type Position struct {
	X, Y, Z float64
}

// Distance returns the distance from the observer including MinSeparationMpc.
func (p Position) Distance() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z + MinSeparationMpc*MinSeparationMpc)
}

// SamplePositions draws n points uniform in [-boxSize/2, boxSize/2]^3:
// all x coordinates, then all y, then all z.
func SamplePositions(rng *rand.Rand, n int, boxSize float64) []Position {
	half := boxSize / 2
	pos := make([]Position, n)
	for i := range pos {
		pos[i].X = rng.Float64()*boxSize - half
	}
	for i := range pos {
		pos[i].Y = rng.Float64()*boxSize - half
	}
	for i := range pos {
		pos[i].Z = rng.Float64()*boxSize - half
	}
	return pos
}
