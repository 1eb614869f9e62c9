package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pandatools/panda-bundle/archive"
	"github.com/pandatools/panda-bundle/download"
	"github.com/pandatools/panda-bundle/fetch"
	"github.com/pandatools/panda-bundle/internal/config"
	"github.com/pandatools/panda-bundle/tree"
)

const defaultTimeout = config.DefaultTimeout

// loadConfig layers the config file, the environment and any flags the user
// set explicitly, then validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile, os.Getenv)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = baseURL
	}
	if flags.Changed("site") {
		cfg.SiteID = siteID
	}
	if flags.Changed("portal-url") {
		cfg.PortalURL = portalURL
		if !flags.Changed("site") {
			cfg.SiteID = ""
		}
	}
	if flags.Changed("cookie") {
		cfg.Cookie = cookie
	}
	if flags.Changed("records-file") {
		cfg.RecordsFile = recordsFile
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = concurrency
	}
	if flags.Changed("rate") {
		cfg.Rate = rateLimit
	}
	if flags.Changed("listing-retries") {
		cfg.ListingRetries = listingRetries
	}

	if err := cfg.ResolveSite(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// recordSource picks the offline file when one is configured.
func recordSource(cfg *config.Config) fetch.RecordSource {
	if cfg.RecordsFile != "" {
		return fetch.FileSource{Path: cfg.RecordsFile}
	}
	return &fetch.HTTPSource{
		Client:  fetch.NewClient(cfg.ListingOptions(logger.Zerolog())),
		BaseURL: cfg.BaseURL,
		SiteID:  cfg.SiteID,
		Logger:  logger.Zerolog(),
	}
}

// loadForest fetches the listing and rebuilds the hierarchy.
func loadForest(ctx context.Context, cfg *config.Config) (*tree.Forest, error) {
	records, err := recordSource(cfg).Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	forest := tree.Builder{
		Layout: tree.Layout{BaseURL: cfg.BaseURL},
		Logger: logger.Zerolog(),
	}.Build(records)

	logger.Debug().
		Int("records", forest.Len()).
		Int("roots", len(forest.Roots())).
		Int("collisions", len(forest.Collisions())).
		Msg("hierarchy rebuilt")
	return forest, nil
}

// newFetcher returns the client used for file downloads.
func newFetcher(cfg *config.Config) *fetch.Client {
	return fetch.NewClient(cfg.FileOptions(logger.Zerolog()))
}

func newAssembler(cfg *config.Config, progress func(archive.Event)) *archive.Assembler {
	return &archive.Assembler{
		Fetcher:     newFetcher(cfg),
		Concurrency: cfg.Concurrency,
		Progress:    progress,
		Logger:      logger.Zerolog(),
	}
}

// resolveScope turns the --path/--all flags into a node; nil means the whole
// forest.
func resolveScope(forest *tree.Forest, path string) (*tree.Node, error) {
	if path == "" {
		return nil, nil
	}
	n, ok := forest.Resolve(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", download.ErrFolderNotFound, path)
	}
	return n, nil
}
