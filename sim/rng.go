package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// SimulationKey is the master seed of a run. Equal keys and equal
// configurations give identical results whatever the worker count.
type SimulationKey int64

// NewSimulationKey wraps a seed.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// ForTrial derives the key of trial i. The derivation depends only on the
// master seed and the trial index, never on the order trials execute in.
func (k SimulationKey) ForTrial(i int) SimulationKey {
	return SimulationKey(int64(k) ^ fnv1a64(SubsystemTrial(i)))
}

const (
	// SubsystemPopulation draws the merger rate and the component masses.
	SubsystemPopulation = "population"

	// SubsystemDutyCycle draws the uniform matrix behind detector on/off states.
	SubsystemDutyCycle = "dutycycle"

	// SubsystemSpatial draws event positions inside the simulation box.
	SubsystemSpatial = "spatial"

	// SubsystemKilonova draws delays, extinction and intrinsic brightness.
	SubsystemKilonova = "kilonova"

	// SubsystemVisibility draws the per-event sun-loss variate.
	SubsystemVisibility = "visibility"
)

// SubsystemTrial names the stream of trial id.
func SubsystemTrial(id int) string {
	return fmt.Sprintf("trial_%d", id)
}

// PartitionedRNG hands out one generator per subsystem of a trial, seeded
// with key XOR fnv1a64(name). Adding a draw to the kilonova model does not
// perturb masses or positions. Not safe for concurrent use; every trial
// owns its own.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG returns a PartitionedRNG with no streams created yet.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns the stream for name, creating it on first use.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(int64(p.key) ^ fnv1a64(name)))
	p.subsystems[name] = rng
	return rng
}

// Key returns the trial key.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
