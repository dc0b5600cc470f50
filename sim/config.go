package sim

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid simulation config")

// Mass distribution names accepted by MassConfig.Distribution.
const (
	MassGalactic = "mw"
	MassFlat     = "flat"
)

// MassConfig selects the component mass model.
// Key1/Key2 are (mean, sigma) for "mw" and (min, max) for "flat".
type MassConfig struct {
	Distribution string
	Key1         float64
	Key2         float64
}

// PopulationConfig groups the merger-rate prior and the mass model.
type PopulationConfig struct {
	MeanLogRate float64 // log10 of the BNS rate density (Mpc^-3 yr^-1)
	SigLogRate  float64 // std dev of log10 rate (>= 0)
	Mass        MassConfig
}

// DetectorConfig describes one interferometer of the network.
type DetectorConfig struct {
	Name      string  // e.g. "H"
	DutyCycle float64 // fraction of time on, in (0, 1]
	RangeKey  string  // key into the range provider map; detectors may share one
}

// NetworkConfig groups the four detectors and their duty-cycle correlation.
type NetworkConfig struct {
	Detectors   []DetectorConfig
	Correlation CorrelationMatrix
}

// KilonovaCalibration holds the constants of the kilonova magnitude model.
// Defaults are anchored to an AT2017gfo-like H-band light curve.
type KilonovaCalibration struct {
	ReferenceAbsMag  float64 // absolute magnitude of the reference event
	MinMag           float64 // faint end of the intrinsic scatter
	MaxMag           float64 // bright end of the intrinsic scatter
	DelayWindowDays  float64 // delays are drawn uniformly in [0, DelayWindowDays)
	MaxDelayDays     float64 // delays beyond this are reset to 0
	ExtinctionScale  float64 // A_V = ExtinctionScale * Exp(1)
	ExtinctionRatio  float64 // A_H = A_V / ExtinctionRatio
	EarlyPhaseCutoff float64 // template rows earlier than this contribute 0
}

// KilonovaConfig groups electromagnetic follow-up parameters.
type KilonovaConfig struct {
	Filter      string  // template column used for the light curve
	LimitingMag float64 // survey limiting apparent magnitude
	SunLoss     float64 // fraction of events lost to the sun, in [0, 1]
	Calibration KilonovaCalibration
}

// ObservingWindow describes the GW run and the follow-up cycle whose overlap
// (plus engineering time) sets the effective observing duration.
type ObservingWindow struct {
	RunStart        time.Time
	RunEnd          time.Time
	CycleStart      time.Time
	CycleEnd        time.Time
	EngineeringTime time.Duration
}

// RunConfig groups Monte-Carlo execution parameters.
type RunConfig struct {
	Trials  int   // number of independent trials (> 0)
	Workers int   // worker pool size; 1 = serial, 0 = one per CPU
	Seed    int64 // master seed
}

// SimulationConfig is the immutable input of a Simulator.
type SimulationConfig struct {
	BoxSize    float64 // side of the cubic volume in Mpc (> 0)
	Population PopulationConfig
	Network    NetworkConfig
	Kilonova   KilonovaConfig
	Window     ObservingWindow
	Run        RunConfig
}

// julianYear is the year used to express the observing duration.
const julianYear = 365.25 * 24 * time.Hour

// FractionalDuration returns the overlap of the run and the cycle plus the
// engineering time, in Julian years. Disjoint windows contribute no overlap.
func (w ObservingWindow) FractionalDuration() float64 {
	latestStart := w.RunStart
	if w.CycleStart.After(latestStart) {
		latestStart = w.CycleStart
	}
	earliestEnd := w.RunEnd
	if w.CycleEnd.Before(earliestEnd) {
		earliestEnd = w.CycleEnd
	}
	overlap := earliestEnd.Sub(latestStart)
	if overlap < 0 {
		overlap = 0
	}
	return float64(overlap+w.EngineeringTime) / float64(julianYear)
}

// Volume returns the simulated volume in Mpc^3.
func (c *SimulationConfig) Volume() float64 {
	return c.BoxSize * c.BoxSize * c.BoxSize
}

// DutyCycles returns the configured duty cycles in detector order.
func (c *SimulationConfig) DutyCycles() [NumDetectors]float64 {
	var duty [NumDetectors]float64
	for i, d := range c.Network.Detectors {
		if i < NumDetectors {
			duty[i] = d.DutyCycle
		}
	}
	return duty
}

// DefaultKilonovaCalibration returns the AT2017gfo-anchored constants.
func DefaultKilonovaCalibration() KilonovaCalibration {
	ref := -16.9
	return KilonovaCalibration{
		ReferenceAbsMag:  ref,
		MinMag:           -14.7,
		MaxMag:           ref - 2.,
		DelayWindowDays:  365.25,
		MaxDelayDays:     90,
		ExtinctionScale:  0.4,
		ExtinctionRatio:  6.1,
		EarlyPhaseCutoff: 2.5,
	}
}

// DefaultDetectors returns the H, L, V, K network. H and L share the "ligo"
// range provider.
func DefaultDetectors() []DetectorConfig {
	return []DetectorConfig{
		{Name: "H", DutyCycle: 0.7, RangeKey: "ligo"},
		{Name: "L", DutyCycle: 0.7, RangeKey: "ligo"},
		{Name: "V", DutyCycle: 0.6, RangeKey: "virgo"},
		{Name: "K", DutyCycle: 0.4, RangeKey: "kagra"},
	}
}

// DefaultObservingWindow returns the 2022 run against the 2021-10 follow-up cycle
// with two weeks of engineering time.
func DefaultObservingWindow() ObservingWindow {
	return ObservingWindow{
		RunStart:        time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		RunEnd:          time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		CycleStart:      time.Date(2021, 10, 1, 0, 0, 0, 0, time.UTC),
		CycleEnd:        time.Date(2022, 10, 1, 0, 0, 0, 0, time.UTC),
		EngineeringTime: 2 * 7 * 24 * time.Hour,
	}
}

// DefaultSimulationConfig returns the reference configuration.
func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		BoxSize: 500.,
		Population: PopulationConfig{
			MeanLogRate: -5.95,
			SigLogRate:  0.55,
			Mass:        MassConfig{Distribution: MassGalactic, Key1: 1.4, Key2: 0.09},
		},
		Network: NetworkConfig{
			Detectors:   DefaultDetectors(),
			Correlation: DefaultCorrelationMatrix(),
		},
		Kilonova: KilonovaConfig{
			Filter:      "f160w",
			LimitingMag: 22.,
			SunLoss:     0.5,
			Calibration: DefaultKilonovaCalibration(),
		},
		Window: DefaultObservingWindow(),
		Run:    RunConfig{Trials: 10000, Workers: 1, Seed: 42},
	}
}

// Validate checks every field that must hold before a trial runs.
func (c *SimulationConfig) Validate() error {
	if err := positiveFinite("box_size", c.BoxSize); err != nil {
		return err
	}
	if c.Run.Trials <= 0 {
		return invalidf("trials must be positive, got %d", c.Run.Trials)
	}
	if c.Run.Workers < 0 {
		return invalidf("workers must be non-negative, got %d", c.Run.Workers)
	}
	if err := c.Population.validate(); err != nil {
		return err
	}
	if err := c.Network.validate(); err != nil {
		return err
	}
	if err := c.Kilonova.validate(); err != nil {
		return err
	}
	if c.Window.RunEnd.Before(c.Window.RunStart) || c.Window.CycleEnd.Before(c.Window.CycleStart) {
		return invalidf("observing window ends before it starts")
	}
	if c.Window.EngineeringTime < 0 {
		return invalidf("engineering time must be non-negative, got %s", c.Window.EngineeringTime)
	}
	if c.Window.FractionalDuration() <= 0 {
		return invalidf("observing window has zero effective duration")
	}
	return nil
}

func (p *PopulationConfig) validate() error {
	if math.IsNaN(p.MeanLogRate) || math.IsInf(p.MeanLogRate, 0) {
		return invalidf("mean_lograte must be finite, got %f", p.MeanLogRate)
	}
	if math.IsNaN(p.SigLogRate) || math.IsInf(p.SigLogRate, 0) || p.SigLogRate < 0 {
		return invalidf("sig_lograte must be finite and non-negative, got %f", p.SigLogRate)
	}
	if err := positiveFinite("masskey1", p.Mass.Key1); err != nil {
		return err
	}
	if err := positiveFinite("masskey2", p.Mass.Key2); err != nil {
		return err
	}
	switch p.Mass.Distribution {
	case MassGalactic:
	case MassFlat:
		if p.Mass.Key2 <= p.Mass.Key1 {
			return invalidf("flat mass distribution needs masskey2 > masskey1, got [%g, %g]", p.Mass.Key1, p.Mass.Key2)
		}
	default:
		return invalidf("unknown mass distribution %q; valid: %s, %s", p.Mass.Distribution, MassGalactic, MassFlat)
	}
	return nil
}

func (n *NetworkConfig) validate() error {
	if len(n.Detectors) != NumDetectors {
		return invalidf("network needs exactly %d detectors, got %d", NumDetectors, len(n.Detectors))
	}
	for i, d := range n.Detectors {
		if d.Name == "" {
			return invalidf("detector[%d]: name is required", i)
		}
		if d.RangeKey == "" {
			return invalidf("detector %s: range key is required", d.Name)
		}
		if math.IsNaN(d.DutyCycle) || d.DutyCycle <= 0 || d.DutyCycle > 1 {
			return invalidf("detector %s: duty cycle must be in (0, 1], got %f", d.Name, d.DutyCycle)
		}
	}
	if err := n.Correlation.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (k *KilonovaConfig) validate() error {
	if k.Filter == "" {
		return invalidf("kilonova filter is required")
	}
	if math.IsNaN(k.LimitingMag) || math.IsInf(k.LimitingMag, 0) {
		return invalidf("limiting magnitude must be finite, got %f", k.LimitingMag)
	}
	if math.IsNaN(k.SunLoss) || k.SunLoss < 0 || k.SunLoss > 1 {
		return invalidf("sun_loss must be in [0, 1], got %f", k.SunLoss)
	}
	cal := k.Calibration
	if err := positiveFinite("delay window", cal.DelayWindowDays); err != nil {
		return err
	}
	if cal.MaxDelayDays < 0 {
		return invalidf("max delay must be non-negative, got %f", cal.MaxDelayDays)
	}
	if cal.ExtinctionScale < 0 {
		return invalidf("extinction scale must be non-negative, got %f", cal.ExtinctionScale)
	}
	if err := positiveFinite("extinction ratio", cal.ExtinctionRatio); err != nil {
		return err
	}
	return nil
}

func positiveFinite(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return invalidf("%s must be a finite number, got %f", name, val)
	}
	if val <= 0 {
		return invalidf("%s must be positive, got %f", name, val)
	}
	return nil
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
