// sim/simulator.go
package sim

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/davecoulter/KNmodel/sim/kilonova"
	"github.com/davecoulter/KNmodel/sim/trace"
)

// Simulator runs independent Monte-Carlo trials of the BNS population.
// Everything it holds is read-only once NewSimulator returns, so trials may
// run concurrently.
type Simulator struct {
	cfg      SimulationConfig
	network  *DetectorNetwork
	factor   *CorrelationFactor
	mass     MassModel
	kilonova *KilonovaModel
	duty     [NumDetectors]float64
	volume   float64
	duration float64 // fractional duration in years
	key      SimulationKey
	trace    *trace.SimulationTrace
}

// NewSimulator validates the configuration and builds every shared input:
// the correlation factor, the detector network and the kilonova model.
// All configuration, range-provider and template errors surface here.
func NewSimulator(cfg SimulationConfig, providers map[string]RangeProvider, tmpl *kilonova.Template) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	factor, err := NewCorrelationFactor(cfg.Network.Correlation)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	network, err := NewDetectorNetwork(cfg.Network, providers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	mass, err := NewMassModel(cfg.Population.Mass)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	kn, err := NewKilonovaModel(tmpl, cfg.Kilonova.Filter, cfg.Kilonova.Calibration)
	if err != nil {
		return nil, fmt.Errorf("building kilonova model: %w", err)
	}
	return &Simulator{
		cfg:      cfg,
		network:  network,
		factor:   factor,
		mass:     mass,
		kilonova: kn,
		duty:     cfg.DutyCycles(),
		volume:   cfg.Volume(),
		duration: cfg.Window.FractionalDuration(),
		key:      NewSimulationKey(cfg.Run.Seed),
	}, nil
}

// EnableTrace records one trace.TrialRecord per trial during Run.
func (s *Simulator) EnableTrace(tc trace.TraceConfig) {
	s.trace = trace.NewSimulationTrace(tc)
}

// Trace returns the recorded trace, or nil when tracing is off.
func (s *Simulator) Trace() *trace.SimulationTrace {
	return s.trace
}

// Config returns the configuration the simulator was built with.
func (s *Simulator) Config() SimulationConfig {
	return s.cfg
}

// FractionalDuration returns the effective observing time in years.
func (s *Simulator) FractionalDuration() float64 {
	return s.duration
}

// ExpectedEvents returns the event count implied by a rate density.
func (s *Simulator) ExpectedEvents(rate float64) int {
	return EventCount(rate, s.volume, s.duration)
}

// RunTrial runs trial i. The result depends only on the master seed and i.
func (s *Simulator) RunTrial(i int) (TrialResult, error) {
	rng := NewPartitionedRNG(s.key.ForTrial(i))

	popRNG := rng.ForSubsystem(SubsystemPopulation)
	rate := SampleRate(popRNG, s.cfg.Population.MeanLogRate, s.cfg.Population.SigLogRate)
	n := s.ExpectedEvents(rate)
	if n == 0 {
		return TrialResult{Trial: i}, nil
	}

	mass1, mass2 := SampleMasses(popRNG, s.mass, n)
	ranges := s.network.DetectorRanges(s.network.EvaluateRanges(mass1, mass2))

	absMag := s.kilonova.SampleAbsoluteMagnitudes(rng.ForSubsystem(SubsystemKilonova), n)
	positions := SamplePositions(rng.ForSubsystem(SubsystemSpatial), n, s.cfg.BoxSize)
	on := SampleDutyCycles(rng.ForSubsystem(SubsystemDutyCycle), n, s.factor, s.duty)

	visRNG := rng.ForSubsystem(SubsystemVisibility)
	ev := &trialEvents{
		distance:    make([]float64, n),
		totalMass:   make([]float64, n),
		apparentMag: make([]float64, n),
		on:          on,
		ranges:      ranges,
		sunVisible:  make([]bool, n),
	}
	for j := 0; j < n; j++ {
		d := positions[j].Distance()
		ev.distance[j] = d
		ev.totalMass[j] = mass1[j] + mass2[j]
		ev.apparentMag[j] = absMag[j] + DistanceModulus(d)
		ev.sunVisible[j] = visRNG.Float64() >= s.cfg.Kilonova.SunLoss
	}

	return classify(i, ev, s.cfg.Kilonova.LimitingMag)
}

// workers returns the pool size; 0 means one worker per CPU.
func (s *Simulator) workers() int {
	if s.cfg.Run.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return s.cfg.Run.Workers
}

// Run executes every trial on a bounded worker pool and folds the results in
// trial order, so the output is identical for any pool size. The first error
// (an InvariantError or a cancelled context) aborts the run.
func (s *Simulator) Run(ctx context.Context) (*AggregateResult, error) {
	trials := s.cfg.Run.Trials
	workers := s.workers()
	logrus.Infof("Starting %d trials on %d workers: box=%.1f Mpc, duration=%.4f yr, seed=%d",
		trials, workers, s.cfg.BoxSize, s.duration, s.cfg.Run.Seed)
	startTime := time.Now()

	results := make([]TrialResult, trials)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < trials; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := s.RunTrial(i)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("running trials: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("running trials: %w", err)
	}

	agg := NewAggregateResult(trials)
	for i := range results {
		r := &results[i]
		agg.Add(r)
		if s.trace != nil {
			s.trace.RecordTrial(trace.TrialRecord{
				Trial:  r.Trial,
				Events: r.Events,
				GW:     gwCounts(r),
				Good:   r.Counts(),
			})
		}
		logrus.Debugf("[trial %06d] events=%d counts=%v", r.Trial, r.Events, r.Counts())
	}
	logrus.Infof("Finished %d trials in %s", trials, time.Since(startTime).Round(time.Millisecond))
	return agg, nil
}

func gwCounts(r *TrialResult) [NumCategories]int {
	var n [NumCategories]int
	for i, c := range r.Categories {
		n[i] = c.GW
	}
	return n
}
