package cmd

import (
	"github.com/spf13/cobra"

	"github.com/pandatools/panda-bundle/internal/logging"
	"github.com/pandatools/panda-bundle/version"
)

// Global flags, bound by NewRootCmd.
var (
	cfgFile        string
	baseURL        string
	siteID         string
	portalURL      string
	cookie         string
	recordsFile    string
	timeout        = defaultTimeout
	concurrency    int
	rateLimit      float64
	listingRetries int
	verbose        bool
	debug          bool

	logger = logging.NewDefaultCLILogger()
)

// NewRootCmd creates and returns the root cobra command for the pandabundle CLI.
// It sets up all subcommands, command groups, and the persistent flags.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pandabundle",
		Short: "pandabundle - download PandA course resources as zip archives",
		Long: `pandabundle rebuilds the folder hierarchy of a PandA (Sakai) course site
from its flat content listing and packs any folder, or the whole site, into a
single zip archive.

Site selection:
  --site ID            the site id, e.g. 2024-110-N150-017
  --portal-url URL     a portal page address; the site id is taken from it
  --records-file FILE  an offline listing written by "pandabundle records"

Signed-in access needs the session cookie of a browser (--cookie or
PANDA_COOKIE). Settings can also live in ~/.config/pandabundle/config.`,
		Version:       version.GetFullVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewLogger(cmd.ErrOrStderr())
			logging.SetVerbose(verbose || debug)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "Configuration file path (default ~/.config/pandabundle/config)")
	pf.StringVar(&baseURL, "base-url", "", "Base URL of the PandA deployment (env PANDA_BASE_URL)")
	pf.StringVarP(&siteID, "site", "s", "", "Site id (env PANDA_SITE)")
	pf.StringVar(&portalURL, "portal-url", "", "Portal page URL to take the site id from")
	pf.StringVar(&cookie, "cookie", "", "Cookie header sent with every request (env PANDA_COOKIE)")
	pf.StringVar(&recordsFile, "records-file", "", "Read the listing from a JSON file instead of the server")
	pf.DurationVar(&timeout, "timeout", defaultTimeout, "Per-request timeout")
	pf.IntVar(&concurrency, "concurrency", 0, "Maximum parallel file downloads (0 = unlimited)")
	pf.Float64Var(&rateLimit, "rate", 0, "Maximum requests per second (0 = unlimited)")
	pf.IntVar(&listingRetries, "listing-retries", 3, "Retries for the listing request")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	pf.BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")

	groupArchives := "archives"
	groupBrowse := "browse"
	groupUtilities := "utilities"

	rootCmd.AddGroup(&cobra.Group{
		ID:    groupArchives,
		Title: "Archive Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    groupBrowse,
		Title: "Browsing Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    groupUtilities,
		Title: "Utility Commands",
	})

	downloadCmd := NewDownloadCmd()
	validateCmd := NewValidateCmd()
	treeCmd := NewTreeCmd()
	countCmd := NewCountCmd()
	mountCmd := NewMountCmd()
	serveCmd := NewServeCmd()
	recordsCmd := NewRecordsCmd()
	seedCmd := NewSeedCmd()

	downloadCmd.GroupID = groupArchives
	validateCmd.GroupID = groupArchives
	treeCmd.GroupID = groupBrowse
	countCmd.GroupID = groupBrowse
	mountCmd.GroupID = groupBrowse
	serveCmd.GroupID = groupBrowse
	recordsCmd.GroupID = groupUtilities
	seedCmd.GroupID = groupUtilities

	rootCmd.AddCommand(downloadCmd, validateCmd, treeCmd, countCmd, mountCmd, serveCmd, recordsCmd, seedCmd)

	return rootCmd
}
