package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalTrials int                    `yaml:"total_trials"`
	EmptyTrials int                    `yaml:"empty_trials"` // trials with zero events
	TotalEvents int                    `yaml:"total_events"`
	MeanEvents  float64                `yaml:"mean_events"`
	MaxEvents   int                    `yaml:"max_events"`
	GWTotals    [NumCategories]int     `yaml:"gw_totals"`
	GoodTotals  [NumCategories]int     `yaml:"good_totals"`
	Efficiency  [NumCategories]float64 `yaml:"efficiency"` // good/gw; 0 when gw is 0
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{}
	if st == nil {
		return summary
	}

	summary.TotalTrials = len(st.Trials)
	for _, r := range st.Trials {
		if r.Events == 0 {
			summary.EmptyTrials++
		}
		summary.TotalEvents += r.Events
		if r.Events > summary.MaxEvents {
			summary.MaxEvents = r.Events
		}
		for c := 0; c < NumCategories; c++ {
			summary.GWTotals[c] += r.GW[c]
			summary.GoodTotals[c] += r.Good[c]
		}
	}

	if summary.TotalTrials > 0 {
		summary.MeanEvents = float64(summary.TotalEvents) / float64(summary.TotalTrials)
	}
	for c := 0; c < NumCategories; c++ {
		if summary.GWTotals[c] > 0 {
			summary.Efficiency[c] = float64(summary.GoodTotals[c]) / float64(summary.GWTotals[c])
		}
	}

	return summary
}
