package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/failure"
	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/render"
	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/runner"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Fetch and map one reading and print it instead of publishing",
	Example: `  jarvis-homewizard-exporter inspect
  jarvis-homewizard-exporter inspect -o json
  jarvis-homewizard-exporter inspect -o prometheus`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		raw, _ := cmd.Flags().GetString("output")
		format, err := render.ParseFormat(raw)
		if err != nil {
			return err
		}
		if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
			render.DisableColor()
		}

		cfg, err := loadConfig()
		if err != nil {
			logFailure(ctx, newLogger(cmd.ErrOrStderr(), nil), err)
			return exitWith(failure.ExitCode(err))
		}
		logger := newLogger(cmd.ErrOrStderr(), cfg)

		env, err := runner.New(runner.StagesFromConfig(cfg), logger).Collect(ctx, cfg.Deadline())
		if err != nil {
			logFailure(ctx, logger, err)
			return exitWith(failure.ExitCode(err))
		}

		return render.Envelope(cmd.OutOrStdout(), env, format)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringP("output", "o", string(render.FormatTable), "output format: table, json, yaml, prometheus")
	inspectCmd.Flags().Bool("no-color", false, "disable colored table output")
}
