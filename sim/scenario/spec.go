// Package scenario loads simulation scenarios from YAML and turns them into a
// ready-to-run sim.Simulator: configuration, detector range providers and the
// kilonova template.
package scenario

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/davecoulter/KNmodel/sim"
	"github.com/davecoulter/KNmodel/sim/horizon"
	"github.com/davecoulter/KNmodel/sim/kilonova"
	"github.com/davecoulter/KNmodel/sim/trace"
)

// Range provider types accepted by RangeSpec.Type.
const (
	RangeChirp    = "chirp"
	RangeASD      = "asd"
	RangeConstant = "constant"
	RangeInfinite = "infinite"
)

var validRangeTypes = map[string]bool{
	RangeChirp: true, RangeASD: true, RangeConstant: true, RangeInfinite: true,
}

// DefaultTemplatePath is the photometric table of an AT2017gfo-like kilonova at 40 Mpc.
const DefaultTemplatePath = "kilonova_phottable_40Mpc.txt"

// ScenarioSpec is the top-level scenario file.
type ScenarioSpec struct {
	Version     string                `yaml:"version,omitempty"`
	BoxSize     float64               `yaml:"box_size"`
	Population  PopulationSpec        `yaml:"population"`
	Detectors   []DetectorSpec        `yaml:"detectors"`
	Correlation sim.CorrelationMatrix `yaml:"correlation"`
	Ranges      map[string]RangeSpec  `yaml:"ranges"`
	Kilonova    KilonovaSpec          `yaml:"kilonova"`
	Window      WindowSpec            `yaml:"window"`
	Run         RunSpec               `yaml:"run"`
	Trace       string                `yaml:"trace,omitempty"`

	baseDir string // directory relative file paths resolve against
}

// PopulationSpec is the merger-rate prior and mass model.
type PopulationSpec struct {
	MeanLogRate float64 `yaml:"mean_lograte"`
	SigLogRate  float64 `yaml:"sig_lograte"`
	MassDistrib string  `yaml:"mass_distrib"`
	MassKey1    float64 `yaml:"masskey1"`
	MassKey2    float64 `yaml:"masskey2"`
}

// DetectorSpec is one interferometer.
type DetectorSpec struct {
	Name      string  `yaml:"name"`
	DutyCycle float64 `yaml:"duty_cycle"`
	Range     string  `yaml:"range"`
}

// RangeSpec selects and parameterizes a range provider.
type RangeSpec struct {
	Type         string  `yaml:"type"`
	ReferenceMpc float64 `yaml:"reference_mpc,omitempty"` // chirp
	File         string  `yaml:"file,omitempty"`          // asd
	SNRThreshold float64 `yaml:"snr_threshold,omitempty"` // asd
	LowFrequency float64 `yaml:"low_frequency,omitempty"` // asd
	Mpc          float64 `yaml:"mpc,omitempty"`           // constant
}

// KilonovaSpec is the EM follow-up model.
type KilonovaSpec struct {
	Template    string          `yaml:"template"`
	PhaseColumn string          `yaml:"phase_column"`
	Filter      string          `yaml:"filter"`
	LimitingMag float64         `yaml:"limiting_mag"`
	SunLoss     float64         `yaml:"sun_loss"`
	Calibration CalibrationSpec `yaml:"calibration"`
}

// CalibrationSpec mirrors sim.KilonovaCalibration.
type CalibrationSpec struct {
	ReferenceAbsMag  float64 `yaml:"reference_abs_mag"`
	MinMag           float64 `yaml:"min_mag"`
	MaxMag           float64 `yaml:"max_mag"`
	DelayWindowDays  float64 `yaml:"delay_window_days"`
	MaxDelayDays     float64 `yaml:"max_delay_days"`
	ExtinctionScale  float64 `yaml:"extinction_scale"`
	ExtinctionRatio  float64 `yaml:"extinction_ratio"`
	EarlyPhaseCutoff float64 `yaml:"early_phase_cutoff"`
}

// WindowSpec is the GW run and the follow-up cycle.
type WindowSpec struct {
	RunStart        time.Time `yaml:"run_start"`
	RunEnd          time.Time `yaml:"run_end"`
	CycleStart      time.Time `yaml:"cycle_start"`
	CycleEnd        time.Time `yaml:"cycle_end"`
	EngineeringDays float64   `yaml:"engineering_days"`
}

// RunSpec is the Monte-Carlo execution.
type RunSpec struct {
	Trials  int   `yaml:"trials"`
	Workers int   `yaml:"workers"`
	Seed    int64 `yaml:"seed"`
}

// DefaultScenario returns the reference scenario: the default simulation
// configuration with O4-like chirp-scaled ranges.
func DefaultScenario() *ScenarioSpec {
	cfg := sim.DefaultSimulationConfig()
	s := &ScenarioSpec{
		Version: "1",
		BoxSize: cfg.BoxSize,
		Population: PopulationSpec{
			MeanLogRate: cfg.Population.MeanLogRate,
			SigLogRate:  cfg.Population.SigLogRate,
			MassDistrib: cfg.Population.Mass.Distribution,
			MassKey1:    cfg.Population.Mass.Key1,
			MassKey2:    cfg.Population.Mass.Key2,
		},
		Correlation: cfg.Network.Correlation,
		Ranges: map[string]RangeSpec{
			"ligo":  {Type: RangeChirp, ReferenceMpc: 190},
			"virgo": {Type: RangeChirp, ReferenceMpc: 120},
			"kagra": {Type: RangeChirp, ReferenceMpc: 80},
		},
		Kilonova: KilonovaSpec{
			Template:    DefaultTemplatePath,
			PhaseColumn: kilonova.DefaultPhaseColumn,
			Filter:      cfg.Kilonova.Filter,
			LimitingMag: cfg.Kilonova.LimitingMag,
			SunLoss:     cfg.Kilonova.SunLoss,
			Calibration: CalibrationSpec(cfg.Kilonova.Calibration),
		},
		Window: WindowSpec{
			RunStart:        cfg.Window.RunStart,
			RunEnd:          cfg.Window.RunEnd,
			CycleStart:      cfg.Window.CycleStart,
			CycleEnd:        cfg.Window.CycleEnd,
			EngineeringDays: cfg.Window.EngineeringTime.Hours() / 24,
		},
		Run: RunSpec(cfg.Run),
	}
	for _, d := range cfg.Network.Detectors {
		s.Detectors = append(s.Detectors, DetectorSpec{Name: d.Name, DutyCycle: d.DutyCycle, Range: d.RangeKey})
	}
	return s
}

// Load reads a scenario file over DefaultScenario, so omitted fields keep
// their defaults. Unknown fields are rejected. Relative file paths inside the
// scenario resolve against the file's directory.
func Load(path string) (*ScenarioSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	spec, err := Parse(data)
	if err != nil {
		return nil, err
	}
	spec.baseDir = filepath.Dir(path)
	return spec, nil
}

// Parse decodes scenario YAML over DefaultScenario.
func Parse(data []byte) (*ScenarioSpec, error) {
	spec := DefaultScenario()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(spec); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return spec, nil
}

// SetBaseDir sets the directory relative file paths resolve against.
func (s *ScenarioSpec) SetBaseDir(dir string) { s.baseDir = dir }

func (s *ScenarioSpec) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || s.baseDir == "" {
		return path
	}
	return filepath.Join(s.baseDir, path)
}

// Validate checks the scenario-level fields and then the derived configuration.
func (s *ScenarioSpec) Validate() error {
	if s.Version != "" && s.Version != "1" {
		return fmt.Errorf("unsupported scenario version %q", s.Version)
	}
	if !trace.IsValidTraceLevel(s.Trace) {
		return fmt.Errorf("unknown trace level %q; valid: none, trials", s.Trace)
	}
	for _, key := range s.rangeKeys() {
		r := s.Ranges[key]
		if !validRangeTypes[r.Type] {
			return fmt.Errorf("range %q: unknown type %q; valid: chirp, asd, constant, infinite", key, r.Type)
		}
		switch r.Type {
		case RangeChirp:
			if r.ReferenceMpc <= 0 {
				return fmt.Errorf("range %q: reference_mpc must be positive, got %f", key, r.ReferenceMpc)
			}
		case RangeASD:
			if r.File == "" {
				return fmt.Errorf("range %q: asd needs a file", key)
			}
		case RangeConstant:
			if r.Mpc < 0 {
				return fmt.Errorf("range %q: mpc must be non-negative, got %f", key, r.Mpc)
			}
		}
	}
	for _, d := range s.Detectors {
		if _, ok := s.Ranges[d.Range]; !ok {
			return fmt.Errorf("detector %s: undefined range %q", d.Name, d.Range)
		}
	}
	if s.Kilonova.Template == "" {
		return fmt.Errorf("kilonova template path is required")
	}
	cfg := s.ToConfig()
	return cfg.Validate()
}

func (s *ScenarioSpec) rangeKeys() []string {
	keys := make([]string, 0, len(s.Ranges))
	for k := range s.Ranges {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ToConfig converts the scenario to a simulation configuration.
func (s *ScenarioSpec) ToConfig() sim.SimulationConfig {
	detectors := make([]sim.DetectorConfig, len(s.Detectors))
	for i, d := range s.Detectors {
		detectors[i] = sim.DetectorConfig{Name: d.Name, DutyCycle: d.DutyCycle, RangeKey: d.Range}
	}
	return sim.SimulationConfig{
		BoxSize: s.BoxSize,
		Population: sim.PopulationConfig{
			MeanLogRate: s.Population.MeanLogRate,
			SigLogRate:  s.Population.SigLogRate,
			Mass: sim.MassConfig{
				Distribution: s.Population.MassDistrib,
				Key1:         s.Population.MassKey1,
				Key2:         s.Population.MassKey2,
			},
		},
		Network: sim.NetworkConfig{Detectors: detectors, Correlation: s.Correlation},
		Kilonova: sim.KilonovaConfig{
			Filter:      s.Kilonova.Filter,
			LimitingMag: s.Kilonova.LimitingMag,
			SunLoss:     s.Kilonova.SunLoss,
			Calibration: sim.KilonovaCalibration(s.Kilonova.Calibration),
		},
		Window: sim.ObservingWindow{
			RunStart:        s.Window.RunStart,
			RunEnd:          s.Window.RunEnd,
			CycleStart:      s.Window.CycleStart,
			CycleEnd:        s.Window.CycleEnd,
			EngineeringTime: time.Duration(s.Window.EngineeringDays * 24 * float64(time.Hour)),
		},
		Run: sim.RunConfig(s.Run),
	}
}

// BuildProviders creates one range provider per entry of Ranges.
// ASD files are read here.
func (s *ScenarioSpec) BuildProviders() (map[string]sim.RangeProvider, error) {
	providers := make(map[string]sim.RangeProvider, len(s.Ranges))
	for _, key := range s.rangeKeys() {
		r := s.Ranges[key]
		switch r.Type {
		case RangeChirp:
			providers[key] = horizon.ChirpScaling{ReferenceMpc: r.ReferenceMpc}
		case RangeConstant:
			providers[key] = horizon.Constant(r.Mpc)
		case RangeInfinite:
			providers[key] = horizon.Infinite
		case RangeASD:
			asd, err := horizon.LoadASD(s.resolve(r.File))
			if err != nil {
				return nil, fmt.Errorf("range %q: %w", key, err)
			}
			if r.SNRThreshold > 0 {
				asd.SNRThreshold = r.SNRThreshold
			}
			if r.LowFrequency > 0 {
				asd.LowFrequency = r.LowFrequency
			}
			providers[key] = asd
		default:
			return nil, fmt.Errorf("range %q: unknown type %q", key, r.Type)
		}
	}
	return providers, nil
}

// LoadTemplate reads the kilonova template.
func (s *ScenarioSpec) LoadTemplate() (*kilonova.Template, error) {
	return kilonova.Load(s.resolve(s.Kilonova.Template), s.Kilonova.PhaseColumn)
}

// Build validates the scenario and returns a simulator with tracing enabled
// when requested.
func (s *ScenarioSpec) Build() (*sim.Simulator, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	providers, err := s.BuildProviders()
	if err != nil {
		return nil, err
	}
	tmpl, err := s.LoadTemplate()
	if err != nil {
		return nil, err
	}
	simulator, err := sim.NewSimulator(s.ToConfig(), providers, tmpl)
	if err != nil {
		return nil, err
	}
	if tc := (trace.TraceConfig{Level: trace.TraceLevel(s.Trace)}); tc.Enabled() {
		simulator.EnableTrace(tc)
	}
	return simulator, nil
}
