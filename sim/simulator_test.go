package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davecoulter/KNmodel/sim/trace"
)

func TestNewSimulator_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.BoxSize = 0
	_, err := NewSimulator(cfg, testProviders(190, 120, 25), newTestTemplate(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestNewSimulator_MissingRangeProvider(t *testing.T) {
	providers := testProviders(190, 120, 25)
	delete(providers, "virgo")
	_, err := NewSimulator(testConfig(), providers, newTestTemplate(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestNewSimulator_UnknownFilter(t *testing.T) {
	cfg := testConfig()
	cfg.Kilonova.Filter = "f814w"
	_, err := NewSimulator(cfg, testProviders(190, 120, 25), newTestTemplate(t))
	assert.Error(t, err)
}

func TestSimulator_SameSeed_Identical(t *testing.T) {
	// GIVEN the flat 1.0-2.0 Msun population in a 10 Mpc box, 100 trials
	cfg := DefaultSimulationConfig()
	cfg.BoxSize = 10
	cfg.Population.Mass = MassConfig{Distribution: MassFlat, Key1: 1.0, Key2: 2.0}
	cfg.Run.Trials = 100

	// WHEN run twice with the same seed
	a, err := newTestSimulator(t, cfg, testProviders(190, 120, 25)).Run(context.Background())
	require.NoError(t, err)
	b, err := newTestSimulator(t, cfg, testProviders(190, 120, 25)).Run(context.Background())
	require.NoError(t, err)

	// THEN the results are identical
	assert.Equal(t, a, b)
	assert.NoError(t, a.Validate())
}

func TestSimulator_WorkerCount_DoesNotChangeResult(t *testing.T) {
	// GIVEN a run with several events per trial
	cfg := testConfig()
	cfg.Run.Workers = 1
	serial, err := newTestSimulator(t, cfg, testProviders(190, 120, 25)).Run(context.Background())
	require.NoError(t, err)

	// WHEN the same run uses a pool of 4
	cfg.Run.Workers = 4
	parallel, err := newTestSimulator(t, cfg, testProviders(190, 120, 25)).Run(context.Background())
	require.NoError(t, err)

	// THEN counts and pooled samples are bit-identical
	assert.Equal(t, serial, parallel)
}

func TestSimulator_DifferentSeeds_Differ(t *testing.T) {
	cfg := testConfig()
	a, err := newTestSimulator(t, cfg, testProviders(190, 120, 25)).Run(context.Background())
	require.NoError(t, err)
	cfg.Run.Seed = 43
	b, err := newTestSimulator(t, cfg, testProviders(190, 120, 25)).Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSimulator_RunTrial_IndependentOfOrder(t *testing.T) {
	s := newTestSimulator(t, testConfig(), testProviders(190, 120, 25))
	first, err := s.RunTrial(5)
	require.NoError(t, err)
	_, err = s.RunTrial(3)
	require.NoError(t, err)
	again, err := s.RunTrial(5)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestSimulator_EveryEventClassifiedOnce(t *testing.T) {
	cfg := testConfig()
	s := newTestSimulator(t, cfg, testProviders(190, 120, 25))
	events := 0
	for i := 0; i < cfg.Run.Trials; i++ {
		r, err := s.RunTrial(i)
		require.NoError(t, err)
		total := r.Unassigned
		for _, c := range Categories {
			cr := r.Category(c)
			total += cr.GW
			assert.LessOrEqual(t, cr.Good, cr.GW)
			assert.Len(t, cr.Samples, cr.Good)
		}
		assert.Equal(t, r.Events, total, "trial %d", i)
		events += r.Events
	}
	require.Greater(t, events, 0, "configuration should produce events")
}

func TestSimulator_AllOnInfiniteRange_AllFourDetector(t *testing.T) {
	// GIVEN every detector always on with infinite range, no sun loss and a
	// limiting magnitude nothing can miss
	cfg := testConfig()
	for i := range cfg.Network.Detectors {
		cfg.Network.Detectors[i].DutyCycle = 1
	}
	cfg.Kilonova.SunLoss = 0
	cfg.Kilonova.LimitingMag = 100
	s := newTestSimulator(t, cfg, infiniteProviders())

	// THEN every event is a detected four-detector coincidence
	for i := 0; i < cfg.Run.Trials; i++ {
		r, err := s.RunTrial(i)
		require.NoError(t, err)
		assert.Equal(t, [NumCategories]int{0, 0, r.Events}, r.Counts(), "trial %d", i)
		assert.Equal(t, r.Events, r.Category(FourDetector).GW)
		assert.Zero(t, r.Unassigned)
	}

	agg, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, agg.Distances(TwoDetector))
	assert.Empty(t, agg.Distances(ThreeDetector))
	assert.NotEmpty(t, agg.Distances(FourDetector))
}

func TestSimulator_FullSunLoss_NoFollowUp(t *testing.T) {
	cfg := testConfig()
	cfg.Kilonova.SunLoss = 1
	s := newTestSimulator(t, cfg, testProviders(190, 120, 25))
	s.EnableTrace(trace.TraceConfig{Level: trace.TraceLevelTrials})

	agg, err := s.Run(context.Background())
	require.NoError(t, err)
	for _, c := range Categories {
		for _, n := range agg.Category(c).Counts {
			assert.Zero(t, n)
		}
		assert.Empty(t, agg.Category(c).Samples)
	}

	// GW coincidences still happen, they just cannot be followed up
	summary := trace.Summarize(s.Trace())
	assert.Greater(t, summary.GWTotals[0]+summary.GWTotals[1]+summary.GWTotals[2], 0)
	assert.Equal(t, [trace.NumCategories]int{}, summary.GoodTotals)
}

func TestSimulator_NegligibleRate_NoEvents(t *testing.T) {
	cfg := testConfig()
	cfg.Population.MeanLogRate = -12
	cfg.Population.SigLogRate = 0.1
	s := newTestSimulator(t, cfg, testProviders(190, 120, 25))
	s.EnableTrace(trace.TraceConfig{Level: trace.TraceLevelTrials})

	agg, err := s.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, agg.Validate())

	// zero-event trials still contribute a zero count to every series
	for _, c := range Categories {
		assert.Len(t, agg.Category(c).Counts, cfg.Run.Trials)
		assert.Empty(t, agg.Category(c).Samples)
	}
	assert.Equal(t, cfg.Run.Trials, trace.Summarize(s.Trace()).EmptyTrials)
}

func TestSimulator_Trace_OneRecordPerTrialInOrder(t *testing.T) {
	cfg := testConfig()
	cfg.Run.Workers = 3
	s := newTestSimulator(t, cfg, testProviders(190, 120, 25))
	s.EnableTrace(trace.TraceConfig{Level: trace.TraceLevelTrials})

	agg, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, s.Trace().Trials, cfg.Run.Trials)
	for i, rec := range s.Trace().Trials {
		assert.Equal(t, i, rec.Trial)
		for c := range Categories {
			assert.Equal(t, agg.Categories[c].Counts[i], rec.Good[c])
			assert.LessOrEqual(t, rec.Good[c], rec.GW[c])
		}
	}
}

func TestSimulator_Run_CancelledContext(t *testing.T) {
	s := newTestSimulator(t, testConfig(), testProviders(190, 120, 25))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSimulator_FractionalDurationAndExpectedEvents(t *testing.T) {
	s := newTestSimulator(t, testConfig(), testProviders(190, 120, 25))
	assert.InDelta(t, 287/365.25, s.FractionalDuration(), 1e-12)
	// 1e-6 * 300^3 * 0.7858 = 21.2
	assert.Equal(t, 21, s.ExpectedEvents(1e-6))
	assert.Equal(t, 0, s.ExpectedEvents(0))
}
