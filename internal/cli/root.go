package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/canchaya/canchaya/internal/app"
	"github.com/canchaya/canchaya/internal/config"
	"github.com/canchaya/canchaya/pkg/notify"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	cfgFile   string
	ephemeral bool
)

var rootCmd = &cobra.Command{
	Use:   "canchaya",
	Short: "CanchaYA - alerts, notifications and formatting for sports facility bookings",
	Long: `CanchaYA manages administrator alert rules over facility metrics, dispatches
in-app notifications, geocodes venue addresses and exports reports.
Run 'canchaya serve' for the HTTP API or use the subcommands directly.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.canchaya/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep state in memory for this run only")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if ephemeral {
		cfg.Storage.Driver = "memory"
	}
	return cfg, nil
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	return app.NewLogger(cfg.Logging, os.Stderr)
}

// initApp loads config and wires every service. Toasts are echoed to the
// command's output.
func initApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(cmd.Context(), cfg, newLogger(cfg), notify.NewConsolePresenter(cmd.OutOrStdout()))
}
