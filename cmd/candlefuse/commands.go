package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"candlefuse/config"
	"candlefuse/internal/app"
	"candlefuse/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	var configDir string

	root := &cobra.Command{
		Use:           "candlefuse",
		Short:         "Fuse candles, funding and open interest into per-asset datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configDir, "config", "", "directory containing config.yaml")

	root.AddCommand(
		newDocumentCmd(&configDir),
		&cobra.Command{
			Use:   "run",
			Short: "Run one batch over every configured asset",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd.Context(), configDir, func(ctx context.Context, a *app.App) error {
					_, err := a.RunBatch(ctx)
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "schedule",
			Short: "Refresh the cached analysis document periodically",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd.Context(), configDir, func(ctx context.Context, a *app.App) error {
					a.Schedule(ctx)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "snapshot",
			Short: "Print the live market snapshots as JSON",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd.Context(), configDir, func(ctx context.Context, a *app.App) error {
					return writeJSON(cmd.OutOrStdout(), a.Snapshots(ctx))
				})
			},
		},
	)
	return root
}

// newDocumentCmd prints the cached analysis document, regenerating it when stale or forced.
func newDocumentCmd(configDir *string) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "document",
		Short: "Print the cached analysis document, refreshing it when stale",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), *configDir, func(ctx context.Context, a *app.App) error {
				doc, err := a.Document(ctx, force)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), doc)
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "regenerate even when the cached document is fresh")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withApp loads config, builds the logger and app, and cancels on SIGINT/SIGTERM.
func withApp(parent context.Context, configDir string, fn func(ctx context.Context, a *app.App) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// viper config
	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		return err
	}
	defer log.Sync()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to build pipeline", zap.Error(err))
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("failed to close resources", zap.Error(err))
		}
	}()

	if err := fn(ctx, a); err != nil {
		log.Error("command failed", zap.Error(err))
		return err
	}
	return nil
}
