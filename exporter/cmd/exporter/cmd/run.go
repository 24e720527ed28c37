package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JorritSalverda/jarvis-homewizard-exporter/common/logging"
	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/failure"
	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/runner"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, map and publish one reading",
	Long: `Run the export once under TIMEOUT_SECONDS. The exit status reports the outcome:
  0  published
  2  configuration or mapping document invalid
  3  device unreachable or returned an unusable response
  4  a mapped field is missing from the reading
  5  the broker did not accept the envelope
  6  the deadline passed`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		logFailure(ctx, newLogger(cmd.OutOrStdout(), nil), err)
		return exitWith(failure.ExitCode(err))
	}

	logger := newLogger(cmd.OutOrStdout(), cfg)
	logger.DebugContext(ctx, "Configuration loaded",
		logging.Endpoint(cfg.Device.DataURL()),
		logging.Subject(cfg.NATS.Subject),
		logging.Path(cfg.Mapping.Path),
	)

	r := runner.New(runner.StagesFromConfig(cfg), logger)
	return exitWith(r.Run(ctx, cfg.Deadline()))
}
