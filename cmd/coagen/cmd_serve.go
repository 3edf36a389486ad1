package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"coagen/internal/audit"
	"coagen/internal/auth"
	"coagen/internal/preview"
	"coagen/internal/server"
	"coagen/internal/store"
	"coagen/internal/websocket"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the certificate API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key KEY",
	Short: "Print the bcrypt hash of an API key for the api_keys config",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashKey(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :9000)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}
	gen, err := newGenerator()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub(logger)
	auditLog := audit.New(st.DB(), hub, logger)
	if cfg.AuditRetentionDays > 0 {
		n, err := auditLog.Cleanup(ctx, cfg.AuditRetentionDays)
		if err != nil {
			logger.Warn("audit cleanup", zap.Error(err))
		} else if n > 0 {
			logger.Info("audit entries removed", zap.Int64("count", n), zap.Int("retention_days", cfg.AuditRetentionDays))
		}
	}

	keys := auth.NewKeyring(cfg.APIKeys)
	if !keys.Enabled() {
		logger.Warn("no api_keys configured; the API accepts unauthenticated requests")
	}

	app := &server.App{
		Store:          st,
		Hub:            hub,
		Audit:          auditLog,
		Generator:      gen,
		Renderer:       preview.New(logger),
		Keyring:        keys,
		Logger:         logger,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		RateLimit:      cfg.RateLimit,
	}
	logger.Info("starting coagen",
		zap.String("addr", cfg.Addr),
		zap.String("template_dir", cfg.TemplateDir),
		zap.String("output_dir", cfg.OutputDir),
		zap.String("policy", gen.Policy().Name()),
		zap.String("mode", gen.Filler().Mode().String()),
	)
	return app.Serve(ctx, cfg.Addr)
}
