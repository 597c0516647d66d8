package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kihaltung/attitude/internal/services"
)

func newSeedCommand(opts *rootOptions) *cobra.Command {
	var catalogPath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the questionnaire items",
		Long: `Load the item catalogue into the database. Without --catalog the
built-in German catalogue is used. Items whose text already exists are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries := services.DefaultCatalog()
			if catalogPath != "" {
				f, err := os.Open(catalogPath)
				if err != nil {
					return fmt.Errorf("open catalog: %w", err)
				}
				defer f.Close()
				if entries, err = services.ParseCatalog(f); err != nil {
					return fmt.Errorf("parse catalog %s: %w", catalogPath, err)
				}
			}

			a, err := loadApp(cmd.Context(), opts, cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := services.NewItemService(a.store, a.log).Seed(cmd.Context(), entries)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d items, %s %d\n",
				color.GreenString("created"), res.Created, color.YellowString("skipped"), res.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "YAML item catalogue (default: built-in)")
	return cmd
}
