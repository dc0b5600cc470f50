package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/davecoulter/KNmodel/sim/report"
	"github.com/davecoulter/KNmodel/sim/scenario"
	"github.com/davecoulter/KNmodel/sim/store"
	"github.com/davecoulter/KNmodel/sim/trace"
)

// runCmd executes the simulation using a scenario file and CLI overrides
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the Monte-Carlo simulation",
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := loadScenario(viper.GetViper())
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runScenario(ctx, spec, outputsFrom(viper.GetViper()), cmd.OutOrStdout())
	},
}

// runOutputs selects where a finished run is written besides the text summary.
type runOutputs struct {
	SummaryPath string // YAML summary
	HTMLPath    string // go-echarts report page
	DBPath      string // SQLite run archive
}

func outputsFrom(v *viper.Viper) runOutputs {
	return runOutputs{
		SummaryPath: v.GetString("summary"),
		HTMLPath:    v.GetString("html"),
		DBPath:      v.GetString("db"),
	}
}

// loadScenario reads --scenario (or the defaults) and applies every flag,
// config key or environment variable that was explicitly set.
func loadScenario(v *viper.Viper) (*scenario.ScenarioSpec, error) {
	spec := scenario.DefaultScenario()
	if path := v.GetString("scenario"); path != "" {
		var err error
		if spec, err = scenario.Load(path); err != nil {
			return nil, err
		}
	}
	if err := applyOverrides(spec, v); err != nil {
		return nil, err
	}
	return spec, nil
}

// applyOverrides copies explicitly set keys onto the scenario.
func applyOverrides(spec *scenario.ScenarioSpec, v *viper.Viper) error {
	floatKeys := map[string]*float64{
		"box-size":     &spec.BoxSize,
		"mean-lograte": &spec.Population.MeanLogRate,
		"sig-lograte":  &spec.Population.SigLogRate,
		"masskey1":     &spec.Population.MassKey1,
		"masskey2":     &spec.Population.MassKey2,
		"sun-loss":     &spec.Kilonova.SunLoss,
		"limiting-mag": &spec.Kilonova.LimitingMag,
	}
	for key, dst := range floatKeys {
		if v.IsSet(key) {
			*dst = v.GetFloat64(key)
		}
	}
	if v.IsSet("mass-distrib") {
		spec.Population.MassDistrib = v.GetString("mass-distrib")
	}
	if v.IsSet("ntry") {
		spec.Run.Trials = v.GetInt("ntry")
	}
	if v.IsSet("workers") {
		spec.Run.Workers = v.GetInt("workers")
	}
	if v.IsSet("seed") {
		spec.Run.Seed = v.GetInt64("seed")
	}
	if v.IsSet("template") {
		spec.Kilonova.Template = v.GetString("template")
	}
	if v.IsSet("filter") {
		spec.Kilonova.Filter = v.GetString("filter")
	}
	if v.IsSet("trace") {
		spec.Trace = v.GetString("trace")
	}

	for _, name := range []string{"h", "l", "v", "k"} {
		key := name + "-dutycycle"
		if !v.IsSet(key) {
			continue
		}
		found := false
		for i := range spec.Detectors {
			if strings.EqualFold(spec.Detectors[i].Name, name) {
				spec.Detectors[i].DutyCycle = v.GetFloat64(key)
				found = true
			}
		}
		if !found {
			return fmt.Errorf("--%s: scenario has no detector %s", key, strings.ToUpper(name))
		}
	}

	for _, rk := range []string{"ligo", "virgo", "kagra"} {
		rangeKey, asdKey := rk+"-range", rk+"-asd"
		if v.IsSet(rangeKey) && v.IsSet(asdKey) {
			return fmt.Errorf("--%s and --%s are mutually exclusive", rangeKey, asdKey)
		}
		if v.IsSet(rangeKey) {
			spec.Ranges[rk] = scenario.RangeSpec{Type: scenario.RangeChirp, ReferenceMpc: v.GetFloat64(rangeKey)}
		}
		if v.IsSet(asdKey) {
			spec.Ranges[rk] = scenario.RangeSpec{Type: scenario.RangeASD, File: v.GetString(asdKey)}
		}
	}
	return nil
}

// runScenario builds and runs the simulator, prints the summary to w and
// writes the requested outputs.
func runScenario(ctx context.Context, spec *scenario.ScenarioSpec, out runOutputs, w io.Writer) error {
	s, err := spec.Build()
	if err != nil {
		return err
	}
	res, err := s.Run(ctx)
	if err != nil {
		return err
	}
	if err := res.Validate(); err != nil {
		return fmt.Errorf("inconsistent result: %w", err)
	}

	summary := report.Summarize(res)
	if err := summary.WriteText(w); err != nil {
		return err
	}
	if st := s.Trace(); st != nil {
		fmt.Fprintln(w, "=== Trace summary ===")
		if err := yaml.NewEncoder(w).Encode(trace.Summarize(st)); err != nil {
			return fmt.Errorf("encoding trace summary: %w", err)
		}
	}

	if out.SummaryPath != "" {
		if err := writeFileWith(out.SummaryPath, summary.WriteYAML); err != nil {
			return err
		}
		logrus.Infof("Summary written to %s", out.SummaryPath)
	}
	if out.HTMLPath != "" {
		cfg := report.DefaultChartConfig()
		cfg.Title = fmt.Sprintf("Masses %s; %g -- %g", spec.Population.MassDistrib, spec.Population.MassKey1, spec.Population.MassKey2)
		if err := writeFileWith(out.HTMLPath, func(f io.Writer) error { return report.RenderHTML(f, res, cfg) }); err != nil {
			return err
		}
		logrus.Infof("Report written to %s", out.HTMLPath)
	}
	if out.DBPath != "" {
		db, err := store.Open(out.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		id, err := db.SaveRun(saveCtx, s.Config(), res)
		if err != nil {
			return err
		}
		logrus.Infof("Run stored in %s with id %d", out.DBPath, id)
	}
	return nil
}

func writeFileWith(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func init() {
	f := runCmd.Flags()
	f.String("scenario", "", "Scenario YAML file (defaults apply to omitted fields)")

	// population
	f.String("mass-distrib", "mw", "Mass distribution: mw (Galactic normal) or flat")
	f.Float64("masskey1", 1.4, "Mean (mw) or lower bound (flat) of the component mass, Msun")
	f.Float64("masskey2", 0.09, "Sigma (mw) or upper bound (flat) of the component mass, Msun")
	f.Float64("mean-lograte", -5.95, "Mean of log10 BNS rate density (Mpc^-3 yr^-1)")
	f.Float64("sig-lograte", 0.55, "Std dev of log10 BNS rate density")
	f.Float64("box-size", 500, "Side of the simulated cube, Mpc")

	// network
	f.Float64("h-dutycycle", 0.7, "LIGO Hanford duty cycle")
	f.Float64("l-dutycycle", 0.7, "LIGO Livingston duty cycle")
	f.Float64("v-dutycycle", 0.6, "Virgo duty cycle")
	f.Float64("k-dutycycle", 0.4, "KAGRA duty cycle")
	f.Float64("ligo-range", 190, "LIGO BNS range for 1.4+1.4 Msun, scaled by chirp mass, Mpc")
	f.Float64("virgo-range", 120, "Virgo BNS range for 1.4+1.4 Msun, scaled by chirp mass, Mpc")
	f.Float64("kagra-range", 80, "KAGRA BNS range for 1.4+1.4 Msun, scaled by chirp mass, Mpc")
	f.String("ligo-asd", "", "LIGO two-column ASD file; replaces --ligo-range")
	f.String("virgo-asd", "", "Virgo two-column ASD file; replaces --virgo-range")
	f.String("kagra-asd", "", "KAGRA two-column ASD file; replaces --kagra-range")

	// kilonova
	f.String("template", scenario.DefaultTemplatePath, "Kilonova photometric template")
	f.String("filter", "f160w", "Template filter column")
	f.Float64("limiting-mag", 22, "Follow-up limiting apparent magnitude")
	f.Float64("sun-loss", 0.5, "Fraction of events lost to the sun")

	// execution and outputs
	f.Int("ntry", 10000, "Number of Monte-Carlo trials")
	f.Int("workers", 1, "Worker pool size (0 = one per CPU)")
	f.Int64("seed", 42, "Master random seed")
	f.String("trace", "none", "Trace level (none, trials)")
	f.String("summary", "", "Write the YAML summary to this file")
	f.String("html", "", "Write the HTML report to this file")
	f.String("db", "", "Store the run in this SQLite database")

	_ = viper.BindPFlags(f)
	rootCmd.AddCommand(runCmd)
}
