package sim

import "fmt"

// CategorySeries holds one category across all trials.
type CategorySeries struct {
	// Counts has one entry per trial, including zeros, indexed by trial.
	Counts []int
	// Samples pools the good events of every trial with a positive count.
	Samples []Sample
}

// AggregateResult is the fold of every TrialResult of a run.
type AggregateResult struct {
	Trials     int
	Categories [NumCategories]CategorySeries
}

// NewAggregateResult returns an empty result for the given number of trials.
func NewAggregateResult(trials int) *AggregateResult {
	a := &AggregateResult{Trials: trials}
	for i := range a.Categories {
		a.Categories[i].Counts = make([]int, trials)
	}
	return a
}

// Category returns the series of c.
func (a *AggregateResult) Category(c Category) *CategorySeries {
	return &a.Categories[c.Index()]
}

// Add folds one trial in. Counts land at the trial's index, so folding order
// only affects the order of pooled samples.
func (a *AggregateResult) Add(r *TrialResult) {
	for i, cr := range r.Categories {
		series := &a.Categories[i]
		if r.Trial >= 0 && r.Trial < len(series.Counts) {
			series.Counts[r.Trial] = cr.Good
		}
		if cr.Good > 0 {
			series.Samples = append(series.Samples, cr.Samples...)
		}
	}
}

// Distances returns the pooled distances of c.
func (a *AggregateResult) Distances(c Category) []float64 {
	return project(a.Category(c).Samples, func(s Sample) float64 { return s.DistanceMpc })
}

// Masses returns the pooled total masses of c.
func (a *AggregateResult) Masses(c Category) []float64 {
	return project(a.Category(c).Samples, func(s Sample) float64 { return s.TotalMass })
}

// Magnitudes returns the pooled apparent magnitudes of c.
func (a *AggregateResult) Magnitudes(c Category) []float64 {
	return project(a.Category(c).Samples, func(s Sample) float64 { return s.ApparentMag })
}

func project(samples []Sample, f func(Sample) float64) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = f(s)
	}
	return out
}

// Validate checks the structural invariants of a folded result: every series
// has one count per trial and pooled samples match the summed counts.
func (a *AggregateResult) Validate() error {
	for _, c := range Categories {
		series := a.Category(c)
		if len(series.Counts) != a.Trials {
			return fmt.Errorf("%s: %d counts for %d trials", c, len(series.Counts), a.Trials)
		}
		total := 0
		for _, n := range series.Counts {
			if n < 0 {
				return fmt.Errorf("%s: negative count %d", c, n)
			}
			total += n
		}
		if total != len(series.Samples) {
			return fmt.Errorf("%s: %d pooled samples for %d counted events", c, len(series.Samples), total)
		}
	}
	return nil
}
