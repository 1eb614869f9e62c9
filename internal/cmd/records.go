package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pandatools/panda-bundle/fetch"
)

// NewRecordsCmd creates and returns the records subcommand, which saves the
// raw listing for offline use with --records-file.
func NewRecordsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "records",
		Short: "Save the raw content listing as JSON",
		Long: `Fetch the content listing of a site and write it as JSON, in the same
shape the server returns. The file can be passed to any other command with
--records-file to work without network access.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			records, err := recordSource(cfg).Records(cmd.Context())
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			if err := fetch.WriteListing(w, records); err != nil {
				return fmt.Errorf("failed to write listing: %w", err)
			}
			logger.Info().Int("records", len(records)).Str("output", output).Msg("listing saved")
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file (- for stdout)")

	return cmd
}
