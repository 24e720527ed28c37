// Package cmd holds the exporter's command tree.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JorritSalverda/jarvis-homewizard-exporter/common/logging"
	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/config"
	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/failure"
)

const serviceName = "jarvis-homewizard-exporter"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   serviceName,
	Short: "Export HomeWizard energy meter readings to NATS",
	Long: `jarvis-homewizard-exporter reads one snapshot from a HomeWizard meter's
local API, maps it to measurements using the mounted mapping document and
publishes the resulting envelope to NATS. It runs once and exits.

Without a subcommand it behaves like "run".`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runExport,
}

// exitError carries a process exit status out of a command.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func exitWith(code int) error {
	if code == failure.ExitOK {
		return nil
	}
	return &exitError{code: code}
}

// Execute runs the command tree and returns the process exit status.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return execute(ctx, rootCmd)
}

func execute(ctx context.Context, root *cobra.Command) int {
	err := root.ExecuteContext(ctx)
	if err == nil {
		return failure.ExitOK
	}

	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}

	// Flag and argument errors
	fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
	return failure.ExitConfig
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "optional exporter config file (env vars override it)")
}

// loadConfig reads and validates configuration. Failures are ConfigErrors.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, failure.Config("load_config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, failure.Config("load_config", err)
	}
	return cfg, nil
}

// newLogger builds the process logger; without a config it falls back to info/json.
func newLogger(w io.Writer, cfg *config.Config) *logging.Logger {
	level, format := "info", "json"
	if cfg != nil {
		level, format = cfg.Logging.Level, cfg.Logging.Format
	}
	logger := logging.NewWithWriter(w, logging.ParseLevel(level), format).With(logging.Service(serviceName))
	logging.SetDefault(logger)
	return logger
}

// logFailure writes the single error record for failures outside the runner.
func logFailure(ctx context.Context, logger *logging.Logger, err error) {
	var fe *failure.Error
	stage := ""
	if errors.As(err, &fe) {
		stage = fe.Stage
	}
	logger.ErrorContext(ctx, "Run failed",
		logging.ErrorKind(failure.KindOf(err).String()),
		logging.Stage(stage),
		logging.Error(err),
	)
}
