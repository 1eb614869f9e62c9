package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pandatools/panda-bundle/pandafs"
	"github.com/pandatools/panda-bundle/version"
)

// NewMountCmd creates and returns the mount subcommand.
// It exposes the site's folders as a read-only FUSE filesystem.
func NewMountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mount MOUNTPOINT",
		Short: "Mount a site as a read-only filesystem",
		Long: `Mount the folder hierarchy of a site at MOUNTPOINT.

Directory listings come from the content listing; a file is downloaded the
first time it is opened and kept in memory until unmount. Interrupt the
command to unmount.`,
		Args: cobra.ExactArgs(1),
		RunE: runMount,
	}
}

func runMount(cmd *cobra.Command, args []string) error {
	mountpoint := args[0]
	logger.Info().Str("version", version.GetFullVersion()).Msg("pandabundle starting")

	info, err := os.Stat(mountpoint)
	if err != nil {
		return fmt.Errorf("mountpoint: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("mountpoint %s is not a directory", mountpoint)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	forest, err := loadForest(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	filesystem := pandafs.NewFS(forest, newFetcher(cfg), logger.Zerolog())
	if err := filesystem.Mount(cmd.Context(), mountpoint); err != nil {
		return err
	}
	logger.Info().Int("downloaded", filesystem.Cached()).Msg("shutdown complete")
	return nil
}
