package sim

import "fmt"

// Category is a GW coincidence category: the number of detectors that were on
// and had the event within their horizon range.
type Category int

const (
	TwoDetector   Category = 2
	ThreeDetector Category = 3
	FourDetector  Category = 4
)

// NumCategories is the number of coincidence categories.
const NumCategories = 3

// Categories lists the coincidence categories in order.
var Categories = [NumCategories]Category{TwoDetector, ThreeDetector, FourDetector}

// Index returns the position of c in Categories.
func (c Category) Index() int { return int(c) - int(TwoDetector) }

func (c Category) String() string { return fmt.Sprintf("%d-detector", int(c)) }

// categoryOf maps an on-and-observed detector count to its category.
func categoryOf(k int) (Category, bool) {
	if k < int(TwoDetector) || k > int(FourDetector) {
		return 0, false
	}
	return Category(k), true
}

// Sample is the observable record of one jointly detected event.
type Sample struct {
	DistanceMpc float64
	TotalMass   float64
	ApparentMag float64
}

// CategoryResult is the outcome of one category within one trial.
type CategoryResult struct {
	GW      int      // events with exactly this many on-and-observed detectors
	Good    int      // of those, sun-visible and EM-detectable
	Samples []Sample // one per good event
}

// TrialResult is the outcome of one trial.
type TrialResult struct {
	Trial      int
	Events     int
	Unassigned int // events seen by fewer than two detectors
	Categories [NumCategories]CategoryResult
}

// Category returns the result for c.
func (r *TrialResult) Category(c Category) CategoryResult {
	return r.Categories[c.Index()]
}

// Counts returns the good counts (n2, n3, n4).
func (r *TrialResult) Counts() [NumCategories]int {
	var n [NumCategories]int
	for i, c := range r.Categories {
		n[i] = c.Good
	}
	return n
}

// InvariantError reports a category with more EM-detected events than GW
// coincidences. It indicates a classification defect and aborts the run.
type InvariantError struct {
	Trial    int
	Category Category
	GW       int
	Good     int
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("trial %d: %s GW events (%d) less than EM follow-up events (%d)",
		e.Trial, e.Category, e.GW, e.Good)
}

// trialEvents is the per-event state of one trial, index-aligned.
type trialEvents struct {
	distance    []float64
	totalMass   []float64
	apparentMag []float64
	on          [NumDetectors][]bool
	ranges      [NumDetectors][]float64
	sunVisible  []bool
}

// ObservingDetectors returns how many detectors were on with the event inside
// their horizon range.
func ObservingDetectors(event int, distance float64, on [NumDetectors][]bool, ranges [NumDetectors][]float64) int {
	k := 0
	for d := 0; d < NumDetectors; d++ {
		if on[d][event] && distance <= ranges[d][event] {
			k++
		}
	}
	return k
}

// classify assigns every event to exactly one of {none, 2, 3, 4} and keeps the
// samples of sun-visible, EM-detectable events.
func classify(trial int, ev *trialEvents, limitingMag float64) (TrialResult, error) {
	res := TrialResult{Trial: trial, Events: len(ev.distance)}
	for i, dist := range ev.distance {
		cat, ok := categoryOf(ObservingDetectors(i, dist, ev.on, ev.ranges))
		if !ok {
			res.Unassigned++
			continue
		}
		cr := &res.Categories[cat.Index()]
		cr.GW++
		if ev.sunVisible[i] && ev.apparentMag[i] < limitingMag {
			cr.Good++
			cr.Samples = append(cr.Samples, Sample{
				DistanceMpc: dist,
				TotalMass:   ev.totalMass[i],
				ApparentMag: ev.apparentMag[i],
			})
		}
	}
	for _, c := range Categories {
		cr := res.Categories[c.Index()]
		if err := checkFollowUp(trial, c, cr.GW, cr.Good); err != nil {
			return TrialResult{}, err
		}
	}
	return res, nil
}

// checkFollowUp enforces good <= gw for one category.
func checkFollowUp(trial int, c Category, gw, good int) error {
	if good > gw {
		return &InvariantError{Trial: trial, Category: c, GW: gw, Good: good}
	}
	return nil
}
