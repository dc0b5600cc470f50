// Package sim is a Monte-Carlo simulator of joint gravitational-wave and
// kilonova detections of binary neutron star mergers.
//
// # Reading Guide
//
// Start with these files to understand one trial:
//   - population.go: merger rate draw, event count and component masses
//   - dutycycle.go: correlated on/off state of the four detectors
//   - kilonova.go: absolute magnitude from a light-curve template
//   - classify.go: 2/3/4-detector coincidences and EM follow-up
//   - simulator.go: the per-trial pipeline and the parallel trial loop
//
// # Randomness
//
// Every trial derives its own key from the master seed and its index
// (SimulationKey.ForTrial), then one stream per subsystem (PartitionedRNG).
// A trial's result therefore depends only on the seed and its index, and a
// run folds trials in index order, so any worker count gives the same output.
//
// # Sub-packages
//   - sim/horizon/: detector range providers (chirp scaling, ASD integral)
//   - sim/kilonova/: photometric template loading and nearest-phase lookup
//   - sim/scenario/: YAML scenarios and simulator construction
//   - sim/report/: count statistics, KDEs and HTML charts
//   - sim/store/: SQLite run archive
//   - sim/trace/: per-trial classification records
package sim
