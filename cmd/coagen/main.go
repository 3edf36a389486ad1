// Command coagen fills certificate-of-analysis templates from the command
// line and serves the certificate API.
package main

import (
	"fmt"
	"os"

	"coagen/internal/coa"
	"coagen/internal/composition"
	"coagen/internal/config"
	"coagen/internal/fill"
	"coagen/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose    bool
	configPath string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "coagen",
	Short: "Certificate of analysis generator",
	Long: `coagen fills {{PLACEHOLDER}} tokens in .docx certificate templates while
keeping the formatting of the text around them.

It derives the composition figures (gum content, protein, ash, AIR, fat) from
the measured moisture, generates certificates one at a time or from an XLSX
batch, and can serve the same operations over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.LogMode, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (COAGEN_* variables override it)")

	rootCmd.AddCommand(fillCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(calcCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(hashKeyCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newGenerator builds the certificate generator from the loaded config.
func newGenerator() (*coa.Generator, error) {
	policy, err := composition.ForName(cfg.Policy)
	if err != nil {
		return nil, err
	}
	mode, err := fill.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	return coa.NewGenerator(coa.Config{
		TemplateDir: cfg.TemplateDir,
		OutputDir:   cfg.OutputDir,
		Policy:      policy,
		Filler:      fill.New(fill.Config{Mode: mode, Logger: logger.Named("fill")}),
		Logger:      logger.Named("coa"),
	}), nil
}
