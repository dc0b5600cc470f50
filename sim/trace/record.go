// Package trace provides per-trial recording for coincidence-classification analysis.
// It stores pure data types and has no dependencies on sim/.
package trace

// NumCategories is the number of coincidence categories (2, 3 and 4 detectors).
const NumCategories = 3

// TrialRecord captures the classification outcome of a single trial.
// GW and Good are indexed by category: 0 = 2 detectors, 1 = 3, 2 = 4.
type TrialRecord struct {
	Trial  int                `yaml:"trial"`
	Events int                `yaml:"events"`
	GW     [NumCategories]int `yaml:"gw"`   // on-and-observed coincidences
	Good   [NumCategories]int `yaml:"good"` // of those, sun-visible and EM-detectable
}
