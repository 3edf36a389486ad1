package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"coagen/internal/coa"
	"coagen/internal/sheet"
	"coagen/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	batchTemplates string
	batchOut       string
	batchPolicy    string
	batchZip       bool
	batchReport    bool
	batchNoHistory bool
)

var batchCmd = &cobra.Command{
	Use:   "batch FILE.xlsx",
	Short: "Generate one certificate per spreadsheet row",
	Long: `Read records from the first sheet of FILE.xlsx (columns Code, Date,
Batch No, Moisture, pH, 200 Mesh, Viscosity 2H, Viscosity 24H) and fill
"COA <Code>.docx" for each. Rows whose template is missing or whose values
are unusable are reported and skipped. Interrupting stops between rows.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchTemplates, "templates", "", "Template directory (default from config)")
	batchCmd.Flags().StringVar(&batchOut, "out", "", "Output directory (default from config)")
	batchCmd.Flags().StringVar(&batchPolicy, "policy", "", "Composition policy: fixed-baseline or randomized")
	batchCmd.Flags().BoolVar(&batchZip, "zip", false, "Also write "+coa.ArchiveName+" to the output directory")
	batchCmd.Flags().BoolVar(&batchReport, "report", false, "Also write "+sheet.ReportName+" to the output directory")
	batchCmd.Flags().BoolVar(&batchNoHistory, "no-history", false, "Do not record the batch in the history database")
}

// cliNotifier prints batch progress and records it in the store.
type cliNotifier struct {
	w      io.Writer
	st     *store.Store
	policy string
}

func (n cliNotifier) Generated(batchID string, res coa.Result) {
	fmt.Fprintf(n.w, "row %d: %s\n", res.Row, res.FileName)
	if n.st != nil {
		if err := n.st.RecordGeneration(context.Background(), batchID, "cli", n.policy, res); err != nil {
			logger.Warn("record generation", zap.Error(err))
		}
	}
}

func (n cliNotifier) Skipped(batchID string, s coa.Skip) {
	fmt.Fprintf(n.w, "row %d: skipped (%s)\n", s.Row, s.Reason)
	if n.st != nil {
		if err := n.st.RecordSkip(context.Background(), batchID, s); err != nil {
			logger.Warn("record skip", zap.Error(err))
		}
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	if batchTemplates != "" {
		cfg.TemplateDir = batchTemplates
	}
	if batchOut != "" {
		cfg.OutputDir = batchOut
	}
	if batchPolicy != "" {
		cfg.Policy = batchPolicy
	}
	gen, err := newGenerator()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	rows, skips, err := sheet.ReadRecords(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(args[0]), err)
	}

	var st *store.Store
	if !batchNoHistory {
		st, err = store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := coa.NewBatchResult()
	if st != nil {
		if err := st.CreateBatch(ctx, res.ID, filepath.Base(args[0]), "cli"); err != nil {
			return err
		}
	}
	n := cliNotifier{w: cmd.OutOrStdout(), st: st, policy: gen.Policy().Name()}
	for _, s := range skips {
		n.Skipped(res.ID, s)
	}
	res.AddSkips(skips...)
	gen.RunBatch(ctx, res, rows, n)
	if st != nil {
		if err := st.FinishBatch(context.Background(), res); err != nil {
			logger.Warn("finish batch", zap.Error(err))
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d generated, %d skipped\n", len(res.Generated), len(res.Skipped))
	if res.Cancelled {
		fmt.Fprintln(out, "batch interrupted")
	}
	if batchZip && len(res.Generated) > 0 {
		path, err := coa.SaveArchive(cfg.OutputDir, res.Paths())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "archive: %s\n", path)
	}
	if batchReport {
		path := filepath.Join(cfg.OutputDir, sheet.ReportName)
		if err := writeReportFile(path, res); err != nil {
			return err
		}
		fmt.Fprintf(out, "report: %s\n", path)
	}
	return nil
}

func writeReportFile(path string, res *coa.BatchResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := sheet.WriteReport(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
