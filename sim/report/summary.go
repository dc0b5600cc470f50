// Package report turns a folded simulation result into the numbers and charts
// used to compare detection categories: count statistics, Gaussian kernel
// density estimates of distance and magnitude, distance-bin probabilities and
// count histograms.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/davecoulter/KNmodel/sim"
)

// CategorySummary holds the statistics of one coincidence category.
type CategorySummary struct {
	Category      string  `yaml:"category"`
	TotalCount    int     `yaml:"total_count"`
	MeanCount     float64 `yaml:"mean_count"`
	MedianCount   float64 `yaml:"median_count"`
	StdCount      float64 `yaml:"std_count"`
	P90Count      float64 `yaml:"p90_count"`
	NonZeroTrials int     `yaml:"nonzero_trials"`
	// Sample means are NaN-free: they are zero when the category has no samples.
	MeanDistanceMpc float64 `yaml:"mean_distance_mpc"`
	MeanTotalMass   float64 `yaml:"mean_total_mass"`
	MeanApparentMag float64 `yaml:"mean_apparent_mag"`
	// DistanceBins is nil when the distance KDE is degenerate.
	DistanceBins []BinProbability `yaml:"distance_bins,omitempty"`
}

// Summary is the report of one run.
type Summary struct {
	Trials     int                                `yaml:"trials"`
	Categories [sim.NumCategories]CategorySummary `yaml:"categories"`
}

// Summarize computes per-category statistics of a folded result.
func Summarize(res *sim.AggregateResult) Summary {
	s := Summary{Trials: res.Trials}
	for i, c := range sim.Categories {
		series := res.Category(c)
		counts := make([]float64, len(series.Counts))
		cs := CategorySummary{Category: c.String()}
		for j, n := range series.Counts {
			counts[j] = float64(n)
			cs.TotalCount += n
			if n > 0 {
				cs.NonZeroTrials++
			}
		}
		if len(counts) > 0 {
			cs.MeanCount, cs.StdCount = stat.PopMeanStdDev(counts, nil)
			sort.Float64s(counts)
			cs.MedianCount = stat.Quantile(0.5, stat.Empirical, counts, nil)
			cs.P90Count = stat.Quantile(0.9, stat.Empirical, counts, nil)
		}
		if len(series.Samples) > 0 {
			cs.MeanDistanceMpc = stat.Mean(res.Distances(c), nil)
			cs.MeanTotalMass = stat.Mean(res.Masses(c), nil)
			cs.MeanApparentMag = stat.Mean(res.Magnitudes(c), nil)
		}
		if kde, err := NewKDE(res.Distances(c)); err == nil {
			cs.DistanceBins = kde.BinProbabilities(DefaultDistanceBins, DistanceGrid())
		}
		s.Categories[i] = cs
	}
	return s
}

// WriteYAML writes the summary as YAML.
func (s Summary) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	return enc.Close()
}

// WriteText writes a fixed-width table of the count statistics.
func (s Summary) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "=== Detection summary (%d trials) ===\n", s.Trials); err != nil {
		return err
	}
	fmt.Fprintf(w, "%-11s %8s %8s %8s %8s %10s %10s\n", "category", "total", "mean", "median", "std", "<D> Mpc", "<mag>")
	for _, cs := range s.Categories {
		fmt.Fprintf(w, "%-11s %8d %8.3f %8.1f %8.3f %10s %10s\n",
			cs.Category, cs.TotalCount, cs.MeanCount, cs.MedianCount, cs.StdCount,
			orDash(cs.MeanDistanceMpc, cs.TotalCount, "%.1f"), orDash(cs.MeanApparentMag, cs.TotalCount, "%.2f"))
	}
	for _, cs := range s.Categories {
		if cs.DistanceBins == nil {
			continue
		}
		fmt.Fprintf(w, "%s P(D):", cs.Category)
		for _, b := range cs.DistanceBins {
			fmt.Fprintf(w, " [%g, %g] %.4f", b.Low, b.High, b.Probability)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func orDash(v float64, n int, format string) string {
	if n == 0 || math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf(format, v)
}
