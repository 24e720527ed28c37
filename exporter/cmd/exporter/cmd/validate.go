package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/failure"
	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/mapping"
	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/render"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the mapping document without contacting the device or broker",
	Example: `  jarvis-homewizard-exporter validate
  jarvis-homewizard-exporter validate --mapping ./config.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("mapping")
		if path == "" {
			cfg, err := loadConfig()
			if err != nil {
				render.Error(cmd.ErrOrStderr(), "%v", err)
				return exitWith(failure.ExitCode(err))
			}
			path = cfg.Mapping.Path
		}

		m, err := mapping.Load(path)
		if err != nil {
			render.Error(cmd.ErrOrStderr(), "%v", err)
			return exitWith(failure.ExitCode(err))
		}

		render.Success(cmd.OutOrStdout(), "%s: %d rules", path, m.Len())
		if m.Location() == "" {
			render.Warn(cmd.OutOrStdout(), "%s: no location set; envelopes will omit it", path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().String("mapping", "", "mapping document to check (default: CONFIG_PATH)")
}
