package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"coagen/internal/composition"
	"coagen/internal/simulation"

	"github.com/spf13/cobra"
)

var (
	calcPolicy string
	calcJSON   bool
)

var calcCmd = &cobra.Command{
	Use:   "calc MOISTURE",
	Short: "Derive composition percentages from moisture",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(args[0]), "%"), 64)
		if err != nil {
			return fmt.Errorf("moisture %q is not a number", args[0])
		}
		name := cfg.Policy
		if calcPolicy != "" {
			name = calcPolicy
		}
		p, err := composition.ForName(name)
		if err != nil {
			return err
		}
		c, err := p.Compute(m)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if calcJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"policy": p.Name(), "moisture": m, "components": c})
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Policy\t%s\n", p.Name())
		fmt.Fprintf(tw, "Moisture\t%.2f%%\n", m)
		fmt.Fprintf(tw, "Gum content\t%.2f%%\n", c.GumContent)
		fmt.Fprintf(tw, "Protein\t%.2f%%\n", c.Protein)
		fmt.Fprintf(tw, "Ash\t%.2f%%\n", c.Ash)
		fmt.Fprintf(tw, "AIR\t%.2f%%\n", c.AIR)
		fmt.Fprintf(tw, "Fat\t%.2f%%\n", c.Fat)
		fmt.Fprintf(tw, "Total\t%.2f%%\n", m+c.Sum())
		return tw.Flush()
	},
}

var (
	simIn    simulation.Input
	simChems []string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Estimate viscosity and reaction time for a mixing run",
	Example: `  coagen simulate --weight 100 --mesh 200 --mixer Medium --rpm 1200 --water 500 \
    --viscometer 3600 --chem borax=2.5`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		chems, err := parseChemicals(simChems)
		if err != nil {
			return err
		}
		in := simIn
		in.Chemicals = chems
		res, err := simulation.Run(in)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Viscosity: %.2f cP\n", res.Viscosity)
		fmt.Fprintf(out, "Reaction time: %.2f min\n", res.ReactionTime)
		return nil
	},
}

func init() {
	calcCmd.Flags().StringVar(&calcPolicy, "policy", "", "Composition policy: fixed-baseline or randomized (default from config)")
	calcCmd.Flags().BoolVar(&calcJSON, "json", false, "Print JSON")

	f := simulateCmd.Flags()
	f.Float64Var(&simIn.PowderWeight, "weight", 0, "Powder weight (g)")
	f.StringVar(&simIn.PowderMesh, "mesh", "200", "Powder mesh: 80, 100 or 200")
	f.Float64Var(&simIn.Moisture, "moisture", 0, "Powder moisture (%)")
	f.Float64Var(&simIn.RPM, "rpm", 0, "Mixer speed (rpm)")
	f.StringVar(&simIn.MixerSize, "mixer", "Medium", "Mixer size: Small, Medium or Large")
	f.Float64Var(&simIn.Water, "water", 0, "Water (ml)")
	f.Float64Var(&simIn.SplitDaal, "split-daal", 0, "Split daal (g)")
	f.StringVar(&simIn.Method, "method", "", "Preparation method")
	f.Float64Var(&simIn.Viscometer, "viscometer", 0, "Viscometer reading (cP)")
	f.StringArrayVar(&simChems, "chem", nil, "Chemical as NAME=GRAMS (repeatable)")
}

// parseChemicals turns NAME=GRAMS pairs into chemicals.
func parseChemicals(pairs []string) ([]simulation.Chemical, error) {
	var out []simulation.Chemical
	for _, p := range pairs {
		name, w, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid --chem %q: want NAME=GRAMS", p)
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(w), 64)
		if err != nil || weight < 0 {
			return nil, fmt.Errorf("invalid --chem %q: weight must be a non-negative number", p)
		}
		out = append(out, simulation.Chemical{Name: strings.TrimSpace(name), Weight: weight})
	}
	return out, nil
}
