package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"Symbiotic/internal/di"
	"Symbiotic/internal/usecase"
	"Symbiotic/pkg/config"
	"Symbiotic/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "symbiotic",
		Short:         "Market, portfolio and system health dashboard backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (YAML); env overrides apply")
	root.AddCommand(newServeCmd(&configPath), newSnapshotCmd(&configPath))
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP/WebSocket dashboard API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithEnv(*configPath)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			app, cleanup, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			defer cleanup()
			return app.Run(cmd.Context())
		},
	}
}

func newSnapshotCmd(configPath *string) *cobra.Command {
	var (
		userID      string
		correlation bool
		timeout     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Build one dashboard snapshot and print it as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithEnv(*configPath)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			l, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: "console", Output: "stderr"})
			if err != nil {
				return err
			}
			uc, cleanup, err := di.InitializeDashboard(cfg, l)
			if err != nil {
				return fmt.Errorf("dashboard initialization failed: %w", err)
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			p := usecase.DefaultParams(userID)
			p.WithCorrelation = correlation
			snap, err := uc.Refresh(ctx, p)
			if err != nil {
				return fmt.Errorf("refresh: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id whose holdings to include")
	cmd.Flags().BoolVar(&correlation, "correlation", false, "include the correlation matrix")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall timeout")
	return cmd
}
