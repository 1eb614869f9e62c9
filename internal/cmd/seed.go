package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pandatools/panda-bundle/fetch"
	"github.com/pandatools/panda-bundle/tree"
)

// NewSeedCmd creates and returns the seed subcommand.
// It generates a synthetic listing with a randomized folder structure.
func NewSeedCmd() *cobra.Command {
	var (
		output  string
		opts    tree.SynthOptions
		encoded bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate a synthetic content listing",
		Long: `Generate a content listing with a randomized folder structure for
testing. Folder and file titles contain spaces so that addresses and
container paths differ in encoding, as they do on a real server.

The output can be used with --records-file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Folders < 0 || opts.Files < 0 {
				return fmt.Errorf("folder and file counts must not be negative")
			}
			opts.EncodeContainers = encoded
			if flag := cmd.Flags().Lookup("base-url"); flag != nil && flag.Changed {
				opts.BaseURL = baseURL
			}
			if flag := cmd.Flags().Lookup("site"); flag != nil && flag.Changed {
				opts.SiteID = siteID
			}
			records := tree.Synthesize(opts)

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
				return err
			}
			logger.Info().Int("records", len(records)).Uint64("seed", opts.Seed).Msg("listing generated")
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file (- for stdout)")
	cmd.Flags().IntVar(&opts.Folders, "folders", 20, "Number of folders")
	cmd.Flags().IntVarP(&opts.Files, "files", "f", 100, "Number of files")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", 3, "Maximum folder depth")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 1, "Random seed")
	cmd.Flags().BoolVar(&opts.Shuffle, "shuffle", true, "Shuffle record order")
	cmd.Flags().BoolVar(&encoded, "encoded-containers", false, "Percent-encode container paths")

	return cmd
}
