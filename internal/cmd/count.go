package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pandatools/panda-bundle/tree"
)

// NewCountCmd creates and returns the count subcommand.
// It counts the files a download of the same scope would fetch.
func NewCountCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "count [PATH]",
		Short: "Count files below a folder or in the whole site",
		Long: `Count the files below a folder (or in the whole site when no path is
given), together with the total size the listing reports for them.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				path = args[0]
			}
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

			roots := forest.Roots()
			if node != nil {
				roots = []*tree.Node{node}
			}
			files, folders := 0, 0
			var size int64
			for _, r := range roots {
				files += tree.CountFiles(r)
				size += tree.TotalSize(r)
			}
			for _, r := range roots {
				walkFolders(r, &folders)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total files: %d\n", files)
			fmt.Fprintf(out, "Folders: %d\n", folders)
			fmt.Fprintf(out, "Listed size: %s\n", humanize.IBytes(uint64(max(size, 0))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", "", "Content path of the folder to count")

	return cmd
}

func walkFolders(n *tree.Node, folders *int) {
	if !n.IsCollection() {
		return
	}
	*folders++
	for _, c := range n.Children() {
		walkFolders(c, folders)
	}
}
