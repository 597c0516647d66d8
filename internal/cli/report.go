package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kihaltung/attitude/internal/services"
)

func newReportCommand(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the research report over consented participants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			switch format {
			case "md", "json", "html":
			default:
				return fmt.Errorf("invalid --format %q, must be one of: md, json, html", format)
			}
			a, err := loadApp(cmd.Context(), opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer a.close()

			analytics := services.NewAnalyticsService(a.store, a.cfg.DB.PageSize, a.log)
			rep, err := analytics.Report(cmd.Context())
			if err != nil {
				return fmt.Errorf("build report: %w", err)
			}
			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			case "html":
				b, err := services.RenderReportHTML(rep)
				if err != nil {
					return err
				}
				_, err = out.Write(b)
				return err
			default:
				_, err = out.Write(services.RenderReportMarkdown(rep))
				return err
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "output format: md, json or html")
	return cmd
}
