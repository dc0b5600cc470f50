package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/davecoulter/KNmodel/sim/kilonova"
)

// templateCmd inspects a kilonova template
var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Describe a kilonova photometric template",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		phaseColumn, _ := cmd.Flags().GetString("phase-column")
		t, err := kilonova.Load(path, phaseColumn)
		if err != nil {
			return err
		}
		return describeTemplate(t, cmd.OutOrStdout())
	},
}

// describeTemplate prints the phase coverage and the peak of every filter.
func describeTemplate(t *kilonova.Template, w io.Writer) error {
	lo, hi := t.PhaseRange()
	fmt.Fprintf(w, "rows: %d, phase %.2f to %.2f d\n", t.Len(), lo, hi)
	fmt.Fprintf(w, "%-10s %10s %10s %10s\n", "filter", "peak mag", "at phase", "faintest")
	phases := t.Phases()
	for _, name := range t.Filters() {
		col, err := t.Column(name)
		if err != nil {
			return err
		}
		peak := floats.MinIdx(col)
		fmt.Fprintf(w, "%-10s %10.2f %10.2f %10.2f\n", name, col[peak], phases[peak], floats.Max(col))
	}
	return nil
}

func init() {
	templateCmd.Flags().String("file", "", "Template file")
	templateCmd.Flags().String("phase-column", kilonova.DefaultPhaseColumn, "Name of the phase column")
	_ = templateCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(templateCmd)
}
