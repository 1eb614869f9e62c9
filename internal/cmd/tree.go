package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pandatools/panda-bundle/tree"
)

// NewTreeCmd creates and returns the tree subcommand.
func NewTreeCmd() *cobra.Command {
	var (
		path      string
		depth     int
		asJSON    bool
		showPaths bool
	)

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the folder hierarchy of a site",
		Long: `Print the folder hierarchy rebuilt from the site's content listing.

Folders end with a slash and show the number of files below them. With
--paths each line also shows the content path to pass to download --path.`,
		Args: cobra.NoArgs,
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

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if node != nil {
					return enc.Encode(tree.ViewOf(node))
				}
				return enc.Encode(forest.Views())
			}

			roots := forest.Roots()
			if node != nil {
				roots = []*tree.Node{node}
			}
			printTree(out, roots, depth, showPaths)
			for _, c := range forest.Collisions() {
				logger.Warn().Str("title", c.Title).Str("dropped", c.Dropped).Msg("hidden by a sibling with the same title")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", "", "Only print the subtree at this content path")
	cmd.Flags().IntVarP(&depth, "depth", "d", 0, "Maximum depth to print (0 = unlimited)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the hierarchy as JSON")
	cmd.Flags().BoolVar(&showPaths, "paths", false, "Show the content path of every node")

	return cmd
}

func printTree(w io.Writer, roots []*tree.Node, maxDepth int, showPaths bool) {
	var visit func(n *tree.Node, depth int)
	visit = func(n *tree.Node, depth int) {
		indent := strings.Repeat("  ", depth)
		label := n.Title
		if n.IsCollection() {
			label = fmt.Sprintf("%s/ (%d files)", n.Title, tree.CountFiles(n))
		}
		if showPaths {
			label += "  " + n.ContentPath()
		}
		fmt.Fprintln(w, indent+label)

		if maxDepth > 0 && depth+1 >= maxDepth {
			return
		}
		for _, child := range n.Children() {
			visit(child, depth+1)
		}
	}
	for _, root := range roots {
		visit(root, 0)
	}
}
