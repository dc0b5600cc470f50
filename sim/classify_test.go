package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eventsWith builds a trial where detector d is on for event i when on[i][d]
// is true, every detector has a 100 Mpc range and every event is sun-visible.
func eventsWith(distance, mag []float64, on [][NumDetectors]bool) *trialEvents {
	n := len(distance)
	ev := &trialEvents{
		distance:    distance,
		totalMass:   make([]float64, n),
		apparentMag: mag,
		sunVisible:  make([]bool, n),
	}
	for d := 0; d < NumDetectors; d++ {
		ev.on[d] = make([]bool, n)
		ev.ranges[d] = make([]float64, n)
		for i := 0; i < n; i++ {
			ev.on[d][i] = on[i][d]
			ev.ranges[d][i] = 100
		}
	}
	for i := range ev.sunVisible {
		ev.totalMass[i] = 2.8
		ev.sunVisible[i] = true
	}
	return ev
}

func TestObservingDetectors(t *testing.T) {
	ev := eventsWith(
		[]float64{50, 150},
		[]float64{20, 20},
		[][NumDetectors]bool{{true, true, false, true}, {true, true, true, true}},
	)
	assert.Equal(t, 3, ObservingDetectors(0, ev.distance[0], ev.on, ev.ranges))
	// beyond every range
	assert.Equal(t, 0, ObservingDetectors(1, ev.distance[1], ev.on, ev.ranges))
	// exactly at the range counts
	assert.Equal(t, 4, ObservingDetectors(1, 100, ev.on, ev.ranges))
}

func TestClassify_EveryEventInOneCategory(t *testing.T) {
	// GIVEN events seen by 0, 1, 2, 3, 4 and 2 detectors
	ev := eventsWith(
		[]float64{10, 20, 30, 40, 50, 60},
		[]float64{18, 18, 18, 18, 18, 25},
		[][NumDetectors]bool{
			{false, false, false, false},
			{true, false, false, false},
			{true, true, false, false},
			{true, true, true, false},
			{true, true, true, true},
			{false, false, true, true},
		},
	)

	// WHEN classified against a 22 mag survey
	res, err := classify(3, ev, 22)
	require.NoError(t, err)

	// THEN each event lands in exactly one bucket
	assert.Equal(t, 3, res.Trial)
	assert.Equal(t, 6, res.Events)
	assert.Equal(t, 2, res.Unassigned)
	assert.Equal(t, 2, res.Category(TwoDetector).GW)
	assert.Equal(t, 1, res.Category(ThreeDetector).GW)
	assert.Equal(t, 1, res.Category(FourDetector).GW)
	gw := res.Unassigned
	for _, c := range Categories {
		gw += res.Category(c).GW
	}
	assert.Equal(t, res.Events, gw)

	// AND the faint two-detector event is not EM-detected
	assert.Equal(t, [NumCategories]int{1, 1, 1}, res.Counts())
	require.Len(t, res.Category(TwoDetector).Samples, 1)
	assert.Equal(t, Sample{DistanceMpc: 30, TotalMass: 2.8, ApparentMag: 18}, res.Category(TwoDetector).Samples[0])
}

func TestClassify_SunAndLimitingMagnitude(t *testing.T) {
	allOn := [NumDetectors]bool{true, true, true, true}
	ev := eventsWith(
		[]float64{10, 20, 30},
		[]float64{18, 22, 18},
		[][NumDetectors]bool{allOn, allOn, allOn},
	)
	ev.sunVisible[2] = false

	res, err := classify(0, ev, 22)
	require.NoError(t, err)

	// 22 mag is not brighter than the 22 mag limit; the third event is behind the sun
	four := res.Category(FourDetector)
	assert.Equal(t, 3, four.GW)
	assert.Equal(t, 1, four.Good)
	require.Len(t, four.Samples, 1)
	assert.Equal(t, 10., four.Samples[0].DistanceMpc)
}

func TestClassify_InfiniteRange(t *testing.T) {
	ev := eventsWith([]float64{1e4}, []float64{18}, [][NumDetectors]bool{{true, true, true, false}})
	for d := range ev.ranges {
		ev.ranges[d][0] = math.Inf(1)
	}
	res, err := classify(0, ev, 22)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Category(ThreeDetector).Good)
}

func TestCheckFollowUp_InvariantError(t *testing.T) {
	assert.NoError(t, checkFollowUp(0, TwoDetector, 3, 3))

	err := checkFollowUp(12, ThreeDetector, 1, 2)
	require.Error(t, err)
	var inv *InvariantError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, 12, inv.Trial)
	assert.Equal(t, ThreeDetector, inv.Category)
	assert.Contains(t, err.Error(), "3-detector GW events (1) less than EM follow-up events (2)")
}

func TestCategory_IndexAndString(t *testing.T) {
	for i, c := range Categories {
		assert.Equal(t, i, c.Index())
	}
	assert.Equal(t, "4-detector", FourDetector.String())
}
