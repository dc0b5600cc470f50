package sim

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davecoulter/KNmodel/sim/horizon"
	"github.com/davecoulter/KNmodel/sim/kilonova"
)

// testTemplate is a coarse AT2017gfo-like light curve in two filters.
const testTemplate = `# ofphase f160w f625w
0.5  17.00 16.50
1.5  17.20 16.90
3.0  17.60 17.50
5.0  18.50 18.90
10.0 20.00 21.00
20.0 22.00 23.50
90.0 26.00 28.00
`

func newTestTemplate(t *testing.T) *kilonova.Template {
	t.Helper()
	tmpl, err := kilonova.Parse(strings.NewReader(testTemplate), kilonova.DefaultPhaseColumn)
	require.NoError(t, err)
	return tmpl
}

// testProviders scales a canonical BNS range per network key.
func testProviders(ligo, virgo, kagra float64) map[string]RangeProvider {
	return map[string]RangeProvider{
		"ligo":  horizon.ChirpScaling{ReferenceMpc: ligo},
		"virgo": horizon.ChirpScaling{ReferenceMpc: virgo},
		"kagra": horizon.ChirpScaling{ReferenceMpc: kagra},
	}
}

// infiniteProviders makes every detector see every event.
func infiniteProviders() map[string]RangeProvider {
	return map[string]RangeProvider{
		"ligo":  horizon.Infinite,
		"virgo": horizon.Infinite,
		"kagra": horizon.Infinite,
	}
}

// testConfig is the default configuration shrunk to a quick run with a few
// events per trial.
func testConfig() SimulationConfig {
	cfg := DefaultSimulationConfig()
	cfg.BoxSize = 300
	cfg.Population.MeanLogRate = -6
	cfg.Population.SigLogRate = 0.3
	cfg.Run.Trials = 40
	return cfg
}

func newTestSimulator(t *testing.T, cfg SimulationConfig, providers map[string]RangeProvider) *Simulator {
	t.Helper()
	s, err := NewSimulator(cfg, providers, newTestTemplate(t))
	require.NoError(t, err)
	return s
}
