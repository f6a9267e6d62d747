package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"smoke_controller/internal/app"
	"smoke_controller/internal/config"
	"smoke_controller/internal/logger"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(ctx).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(ctx context.Context) *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:          "smoke-controller",
		Short:        "Keeps a smoker at its target temperature by driving the blower fan",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(ctx, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default configs/config.yml)")
	return cmd
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.Get(cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	log.Infow("smoke_controller_starting", "port", cfg.Port, "probes", len(cfg.Probes), "fan_driver", cfg.Fan.Driver)
	if err := a.Run(ctx); err != nil {
		log.Errorw("smoke_controller_failed", "err", err)
		return err
	}
	log.Infow("smoke_controller_stopped")
	return nil
}
