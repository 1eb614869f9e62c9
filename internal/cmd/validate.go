package cmd

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pandatools/panda-bundle/tree"
	"github.com/pandatools/panda-bundle/util"
)

var errArchiveMismatch = errors.New("archive does not match the listing")

// NewValidateCmd creates and returns the validate subcommand.
// It checks a downloaded archive against the current listing.
func NewValidateCmd() *cobra.Command {
	var (
		path     string
		verbose  bool
		allowMis bool
	)

	cmd := &cobra.Command{
		Use:   "validate ZIP_FILE",
		Short: "Check a downloaded archive against the site listing",
		Long: `Check that a zip produced by "pandabundle download" holds exactly the
files the listing has below the same folder.

Missing entries usually mean a file could not be fetched; extra entries mean
the listing changed since the download. Either makes the command fail unless
--allow-missing is given, which only tolerates missing entries.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			forest, err := loadForest(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			node, err := resolveScope(forest, path)
			if err != nil {
				return err
			}

			var expected []tree.FileEntry
			if node != nil {
				expected = tree.ListFiles(node)
			} else {
				expected = forest.ListAll()
			}

			names, err := util.ZipFileNames(args[0])
			if err != nil {
				return err
			}

			res := compareArchive(expected, names)
			printValidation(cmd.OutOrStdout(), args[0], res, verbose)

			if len(res.unexpected) > 0 || (len(res.missing) > 0 && !allowMis) {
				return errArchiveMismatch
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", "", "Content path the archive was built from (default: whole site)")
	cmd.Flags().BoolVar(&verbose, "list", false, "List every matched entry")
	cmd.Flags().BoolVar(&allowMis, "allow-missing", false, "Do not fail on entries missing from the archive")

	return cmd
}

type validation struct {
	matched    []string
	missing    []tree.FileEntry
	unexpected []string
}

func compareArchive(expected []tree.FileEntry, names []string) validation {
	inZip := make(map[string]bool, len(names))
	for _, n := range names {
		inZip[n] = true
	}

	var res validation
	seen := make(map[string]bool, len(expected))
	for _, e := range expected {
		name := util.CleanEntryName(e.Path)
		seen[name] = true
		if inZip[name] {
			res.matched = append(res.matched, name)
		} else {
			res.missing = append(res.missing, e)
		}
	}
	for _, n := range names {
		if !seen[n] {
			res.unexpected = append(res.unexpected, n)
		}
	}
	sort.Strings(res.unexpected)
	return res
}

func printValidation(w io.Writer, archivePath string, res validation, verbose bool) {
	fmt.Fprintf(w, "Validating %s\n", archivePath)
	if verbose {
		for _, m := range res.matched {
			fmt.Fprintf(w, "  ok       %s\n", m)
		}
	}
	for _, m := range res.missing {
		fmt.Fprintf(w, "  missing  %s (%s)\n", m.Path, m.URL)
	}
	for _, u := range res.unexpected {
		fmt.Fprintf(w, "  extra    %s\n", u)
	}
	fmt.Fprintf(w, "\nValidation complete:\n")
	fmt.Fprintf(w, "  Matched: %d\n", len(res.matched))
	fmt.Fprintf(w, "  Missing: %d\n", len(res.missing))
	fmt.Fprintf(w, "  Extra:   %d\n", len(res.unexpected))
}
