package sim

import (
	"fmt"
	"sort"
)

// RangeProvider returns the horizon range of a detector, in Mpc, for a binary
// with component masses m1 and m2 (solar masses). Implementations must be pure
// and safe for concurrent use.
type RangeProvider interface {
	HorizonRange(m1, m2 float64) float64
}

// RangeFunc adapts a plain function to RangeProvider.
type RangeFunc func(m1, m2 float64) float64

func (f RangeFunc) HorizonRange(m1, m2 float64) float64 { return f(m1, m2) }

// Detector is one member of the network.
type Detector struct {
	Name      string
	DutyCycle float64
	RangeKey  string
}

// DetectorNetwork binds the four detectors to their range providers.
// Detectors that share a RangeKey share one range evaluation per event.
type DetectorNetwork struct {
	detectors [NumDetectors]Detector
	providers map[string]RangeProvider
	keys      []string // distinct range keys, sorted
}

// NewDetectorNetwork checks that every detector's RangeKey has a provider.
func NewDetectorNetwork(cfg NetworkConfig, providers map[string]RangeProvider) (*DetectorNetwork, error) {
	if len(cfg.Detectors) != NumDetectors {
		return nil, fmt.Errorf("network needs exactly %d detectors, got %d", NumDetectors, len(cfg.Detectors))
	}
	net := &DetectorNetwork{providers: make(map[string]RangeProvider)}
	for i, d := range cfg.Detectors {
		p, ok := providers[d.RangeKey]
		if !ok || p == nil {
			return nil, fmt.Errorf("detector %s: no range provider for key %q", d.Name, d.RangeKey)
		}
		net.detectors[i] = Detector(d)
		if _, seen := net.providers[d.RangeKey]; !seen {
			net.providers[d.RangeKey] = p
			net.keys = append(net.keys, d.RangeKey)
		}
	}
	sort.Strings(net.keys)
	return net, nil
}

// Detectors returns the detectors in network order.
func (n *DetectorNetwork) Detectors() [NumDetectors]Detector {
	return n.detectors
}

// EvaluateRanges calls each distinct range provider once per event and
// returns the horizon ranges keyed by RangeKey, index-aligned with m1/m2.
func (n *DetectorNetwork) EvaluateRanges(m1, m2 []float64) map[string][]float64 {
	out := make(map[string][]float64, len(n.keys))
	for _, key := range n.keys {
		p := n.providers[key]
		ranges := make([]float64, len(m1))
		for i := range m1 {
			ranges[i] = p.HorizonRange(m1[i], m2[i])
		}
		out[key] = ranges
	}
	return out
}

// DetectorRanges expands per-key ranges into per-detector series.
func (n *DetectorNetwork) DetectorRanges(byKey map[string][]float64) [NumDetectors][]float64 {
	var ranges [NumDetectors][]float64
	for i, d := range n.detectors {
		ranges[i] = byKey[d.RangeKey]
	}
	return ranges
}
