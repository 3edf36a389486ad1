package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"coagen/internal/fill"
	"coagen/internal/validation"

	"github.com/spf13/cobra"
)

var (
	fillOutput string
	fillSets   []string
	fillMode   string
	fillList   bool
)

var fillCmd = &cobra.Command{
	Use:   "fill TEMPLATE",
	Short: "Fill placeholders in a .docx template",
	Long: `Replace {{NAME}} tokens in TEMPLATE with the values given by --set and
write the result to --output. Use --list to print the placeholder names the
template contains.`,
	Example: `  coagen fill "COA 101.docx" -o out.docx --set BATCH_NO=GG-24-07 --set DATE="March 2024"
  coagen fill "COA 101.docx" --list`,
	Args: cobra.ExactArgs(1),
	RunE: runFill,
}

func init() {
	fillCmd.Flags().StringVarP(&fillOutput, "output", "o", "", "Output path (default: <template>-filled.docx)")
	fillCmd.Flags().StringArrayVarP(&fillSets, "set", "s", nil, "Placeholder value as KEY=VALUE (repeatable)")
	fillCmd.Flags().StringVar(&fillMode, "mode", "", "Substitution mode: preserve or plain (default from config)")
	fillCmd.Flags().BoolVar(&fillList, "list", false, "List the template's placeholders and exit")
}

// parseSets turns KEY=VALUE pairs into a field map. Later pairs win.
func parseSets(sets []string) (fill.Fields, error) {
	fields := fill.Fields{}
	for _, s := range sets {
		k, v, ok := strings.Cut(s, "=")
		k = strings.TrimSpace(k)
		if !ok || !validation.FieldNamePattern.MatchString(k) {
			return nil, fmt.Errorf("invalid --set %q: want KEY=VALUE with KEY of letters, digits, _ . -", s)
		}
		fields[k] = v
	}
	return fields, nil
}

func defaultOutput(tpl string) string {
	ext := filepath.Ext(tpl)
	return strings.TrimSuffix(tpl, ext) + "-filled.docx"
}

func runFill(cmd *cobra.Command, args []string) error {
	tplPath := args[0]
	mode := cfg.Mode
	if fillMode != "" {
		mode = fillMode
	}
	m, err := fill.ParseMode(mode)
	if err != nil {
		return err
	}
	filler := fill.New(fill.Config{Mode: m, Logger: logger.Named("fill")})

	if fillList {
		doc, err := fill.Open(tplPath)
		if err != nil {
			return err
		}
		for _, name := range filler.Tokens(doc) {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	}

	fields, err := parseSets(fillSets)
	if err != nil {
		return err
	}
	out := fillOutput
	if out == "" {
		out = defaultOutput(tplPath)
	}

	rep, err := filler.Generate(context.Background(), tplPath, out, fields)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d replacements)\n", out, rep.Total())
	if len(rep.Unmatched) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Unfilled placeholders: %s\n", strings.Join(rep.Unmatched, ", "))
	}
	return nil
}
