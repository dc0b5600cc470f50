package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulationKey_ForTrial_DependsOnlyOnIndex(t *testing.T) {
	// GIVEN one master key
	key := NewSimulationKey(42)

	// WHEN trial keys are derived in two different orders
	forward := make([]SimulationKey, 10)
	for i := 0; i < 10; i++ {
		forward[i] = key.ForTrial(i)
	}
	backward := make([]SimulationKey, 10)
	for i := 9; i >= 0; i-- {
		backward[i] = key.ForTrial(i)
	}

	// THEN every index maps to the same key and no two indices collide
	assert.Equal(t, forward, backward)
	seen := make(map[SimulationKey]int)
	for i, k := range forward {
		prev, dup := seen[k]
		assert.False(t, dup, "trials %d and %d share key %d", prev, i, k)
		seen[k] = i
	}
}

func TestSimulationKey_ForTrial_DiffersAcrossSeeds(t *testing.T) {
	a := NewSimulationKey(1).ForTrial(7)
	b := NewSimulationKey(2).ForTrial(7)
	assert.NotEqual(t, a, b)
}

func TestPartitionedRNG_SameTrialSameStreams(t *testing.T) {
	// GIVEN two generators for the same trial of the same run
	key := NewSimulationKey(42).ForTrial(3)
	a := NewPartitionedRNG(key)
	b := NewPartitionedRNG(key)

	// THEN every subsystem yields the same sequence
	for _, name := range []string{SubsystemPopulation, SubsystemDutyCycle, SubsystemSpatial, SubsystemKilonova, SubsystemVisibility} {
		for i := 0; i < 3; i++ {
			assert.Equal(t, a.ForSubsystem(name).Float64(), b.ForSubsystem(name).Float64(), "%s draw %d", name, i)
		}
	}
	assert.Equal(t, key, a.Key())
}

func TestPartitionedRNG_ExtraDrawsDoNotShiftOtherSubsystems(t *testing.T) {
	// GIVEN one trial that draws heavily from the population stream
	busy := NewPartitionedRNG(NewSimulationKey(42))
	for i := 0; i < 1000; i++ {
		busy.ForSubsystem(SubsystemPopulation).NormFloat64()
	}
	fresh := NewPartitionedRNG(NewSimulationKey(42))

	// THEN positions and kilonova draws are unchanged
	for i := 0; i < 5; i++ {
		assert.Equal(t, fresh.ForSubsystem(SubsystemSpatial).Float64(), busy.ForSubsystem(SubsystemSpatial).Float64())
		assert.Equal(t, fresh.ForSubsystem(SubsystemKilonova).Float64(), busy.ForSubsystem(SubsystemKilonova).Float64())
	}
}

func TestPartitionedRNG_SubsystemsAreDistinctStreams(t *testing.T) {
	rng := NewPartitionedRNG(NewSimulationKey(42))
	assert.NotEqual(t, rng.ForSubsystem(SubsystemSpatial).Int63(), rng.ForSubsystem(SubsystemDutyCycle).Int63())
}

func TestPartitionedRNG_CachesInstanceLazily(t *testing.T) {
	rng := NewPartitionedRNG(NewSimulationKey(42))
	require.Empty(t, rng.subsystems)

	first := rng.ForSubsystem(SubsystemVisibility)
	assert.Same(t, first, rng.ForSubsystem(SubsystemVisibility))
	assert.Len(t, rng.subsystems, 1)
}

func TestPartitionedRNG_ExtremeSeeds(t *testing.T) {
	for _, seed := range []int64{0, -1, math.MinInt64, math.MaxInt64} {
		v := NewPartitionedRNG(NewSimulationKey(seed).ForTrial(0)).ForSubsystem(SubsystemPopulation).Float64()
		assert.GreaterOrEqual(t, v, 0.)
		assert.Less(t, v, 1.)
	}
}

func TestSubsystemNames_HashWithoutCollision(t *testing.T) {
	names := []string{
		SubsystemPopulation, SubsystemDutyCycle, SubsystemSpatial, SubsystemKilonova, SubsystemVisibility,
		SubsystemTrial(0), SubsystemTrial(1), SubsystemTrial(10), SubsystemTrial(100),
	}
	hashes := make(map[int64]string)
	for _, name := range names {
		h := fnv1a64(name)
		existing, dup := hashes[h]
		assert.False(t, dup, "%q and %q both hash to %d", name, existing, h)
		hashes[h] = name
	}
	assert.Equal(t, "trial_12", SubsystemTrial(12))
}

func BenchmarkRunTrialRNG(b *testing.B) {
	key := NewSimulationKey(42)
	for i := 0; i < b.N; i++ {
		rng := NewPartitionedRNG(key.ForTrial(i))
		rng.ForSubsystem(SubsystemPopulation).Float64()
		rng.ForSubsystem(SubsystemSpatial).Float64()
	}
}
