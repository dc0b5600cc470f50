package report

import (
	"errors"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// ErrDegenerateSample is returned for samples a KDE cannot be built from:
// fewer than two points or zero variance.
var ErrDegenerateSample = errors.New("degenerate sample")

// KDE is a one-dimensional Gaussian kernel density estimate with Scott's
// bandwidth rule, h = σ·n^(-1/5), σ the sample standard deviation.
type KDE struct {
	points    []float64
	bandwidth float64
}

// NewKDE builds a KDE from a sample. The sample is copied.
func NewKDE(sample []float64) (*KDE, error) {
	if len(sample) < 2 {
		return nil, ErrDegenerateSample
	}
	std := stat.StdDev(sample, nil)
	if std == 0 || math.IsNaN(std) {
		return nil, ErrDegenerateSample
	}
	return &KDE{
		points:    append([]float64(nil), sample...),
		bandwidth: std * math.Pow(float64(len(sample)), -1./5.),
	}, nil
}

// Bandwidth returns the kernel width.
func (k *KDE) Bandwidth() float64 { return k.bandwidth }

// Density evaluates the estimate at x.
func (k *KDE) Density(x float64) float64 {
	norm := 1 / (float64(len(k.points)) * k.bandwidth * math.Sqrt(2*math.Pi))
	sum := 0.
	for _, p := range k.points {
		u := (x - p) / k.bandwidth
		sum += math.Exp(-0.5 * u * u)
	}
	return norm * sum
}

// Evaluate returns the density at every grid point.
func (k *KDE) Evaluate(grid []float64) []float64 {
	out := make([]float64, len(grid))
	for i, x := range grid {
		out[i] = k.Density(x)
	}
	return out
}

// Grid returns n evenly spaced points spanning [lo, hi].
func Grid(lo, hi float64, n int) []float64 {
	return floats.Span(make([]float64, n), lo, hi)
}

// DistanceGrid is the 0.1 Mpc grid over [0, 400) Mpc used for distance densities.
func DistanceGrid() []float64 { return Grid(0, 399.9, 4000) }

// MagnitudeGrid is the 0.1 mag grid over [15, 23) used for magnitude densities.
func MagnitudeGrid() []float64 { return Grid(15, 22.9, 80) }

// BinProbability is the integrated density over (Low, High].
type BinProbability struct {
	Low         float64 `yaml:"low"`
	High        float64 `yaml:"high"`
	Probability float64 `yaml:"probability"`
}

// DefaultDistanceBins are the nearby, intermediate and far distance shells in Mpc.
var DefaultDistanceBins = [][2]float64{{0, 40}, {40, 100}, {100, 160}}

// BinProbabilities integrates the density over each bin with the trapezoid
// rule on the grid points inside it. A point belongs to a bin when
// low < x <= high; the first bin also takes x == low.
func (k *KDE) BinProbabilities(bins [][2]float64, grid []float64) []BinProbability {
	density := k.Evaluate(grid)
	out := make([]BinProbability, len(bins))
	for b, edges := range bins {
		var xs, ys []float64
		for i, x := range grid {
			inside := x > edges[0] && x <= edges[1]
			if b == 0 && x == edges[0] {
				inside = true
			}
			if inside {
				xs = append(xs, x)
				ys = append(ys, density[i])
			}
		}
		out[b] = BinProbability{Low: edges[0], High: edges[1]}
		if len(xs) >= 2 {
			out[b].Probability = integrate.Trapezoidal(xs, ys)
		}
	}
	return out
}

// densityOrNil builds a KDE over sample and evaluates it on grid, logging
// and returning nil for degenerate samples.
func densityOrNil(name string, sample, grid []float64) []float64 {
	kde, err := NewKDE(sample)
	if err != nil {
		logrus.Warnf("Could not build %s KDE from %d samples: %v", name, len(sample), err)
		return nil
	}
	return kde.Evaluate(grid)
}
