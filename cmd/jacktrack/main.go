package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/jacktrack/internal/adapters/location"
	"github.com/okian/jacktrack/internal/adapters/repository"
	"github.com/okian/jacktrack/internal/config"
)

var (
	flagConfig string
	flagDemo   bool
	flagAddr   string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jacktrack",
		Short: "JackTrack - golf ball tracking, navigation and scorecard service",
		Long: `JackTrack discovers golf balls fitted with BLE tags, navigates to a
selected ball using the device's GPS fix and keeps the round's scorecard.

Real Bluetooth scanning requires sudo or CAP_NET_ADMIN.
Use --demo for simulated balls and GPS on the bundled sample course.`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", os.Getenv(config.EnvConfigFile), "YAML config file")
	rootCmd.Flags().BoolVar(&flagDemo, "demo", false, "Run with simulated balls and GPS (no hardware required)")
	rootCmd.Flags().StringVar(&flagAddr, "addr", "", "HTTP listen address, overrides config")

	rootCmd.AddCommand(newPortsCmd(), newExportCmd())
	return rootCmd
}

func loadConfig(ctx context.Context, cmd *cobra.Command) (*config.Config, error) {
	return config.LoadWith(ctx, flagConfig, func(c *config.Config) {
		if cmd.Flags().Changed("demo") {
			c.Demo = flagDemo
		}
		if flagAddr != "" {
			c.Addr = flagAddr
		}
	})
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx, cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return serve(ctx, cfg)
}

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports that may carry an NMEA GPS receiver",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ports, err := location.Ports()
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no serial ports found")
				return nil
			}
			for _, p := range ports {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write saved rounds from the SQLite database to stdout as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if dbPath == "" {
				// Exporting needs no course, so skip that requirement.
				cfg, err := config.LoadWith(ctx, flagConfig, func(c *config.Config) { c.Demo = true })
				if err != nil {
					return err
				}
				dbPath = cfg.DatabasePath
			}
			if dbPath == "" {
				return fmt.Errorf("no database: set --db or database_path")
			}
			store, err := repository.OpenSQLite(ctx, dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			_, err = repository.ExportCSV(ctx, store, cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path, overrides database_path")
	return cmd
}
