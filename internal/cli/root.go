package cli

import (
	"github.com/spf13/cobra"
)

// Version and BuildTime are injected at build time via -ldflags.
var (
	Version   = "dev"
	BuildTime = ""
)

type rootOptions struct {
	configPath string
}

// NewRootCommand creates the attitude command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "attitude",
		Short: "Survey backend for attitudes toward AI in education",
		Long: `attitude collects Likert-scale survey answers, returns individual
feedback to participants and computes the research analyses (reliability,
correlations, group comparisons) over consented responses.`,
		Version:      Version,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to the YAML config file (default $ATTITUDE_CONFIG)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newReportCommand(opts))
	cmd.AddCommand(newSeedCommand(opts))
	return cmd
}
