package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pandatools/panda-bundle/archive"
	"github.com/pandatools/panda-bundle/download"
	"github.com/pandatools/panda-bundle/internal/config"
)

// NewDownloadCmd creates and returns the download subcommand.
func NewDownloadCmd() *cobra.Command {
	var (
		path       string
		all        bool
		outputDir  string
		name       string
		reportPath string
		noProgress bool
		toBucket   bool
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download a folder or the whole site as a zip archive",
		Long: `Download every file below a folder, or of the whole site, into one zip.

The folder is named by its content path, for example
  /content/group/2024-110-N150-017/Week 1/
Encoded and raw spellings both work. The archive is named after the folder
(or <site>_all_resources.zip) unless --name is given.

Files that cannot be fetched are skipped and listed in the report. The
command fails if the folder does not exist or holds no files.`,
		Example: `  pandabundle download --site 2024-110-N150-017 --all
  pandabundle download --portal-url "$URL" --path "/content/group/2024-110-N150-017/Week 1/" -o ~/Downloads`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (path != "") {
				return fmt.Errorf("exactly one of --path or --all is required")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runDownload(cmd, cfg, downloadOptions{
				scope:      scopeFromFlags(path, all),
				outputDir:  outputDir,
				name:       name,
				reportPath: reportPath,
				progress:   !noProgress && isTerminal(cmd.ErrOrStderr()),
				toBucket:   toBucket,
			})
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", "", "Content path of the folder to download")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Download the whole site")
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Directory to write the archive to")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Archive filename (default: folder title or <site>_all_resources.zip)")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write a JSON run report to this file or directory")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	cmd.Flags().BoolVar(&toBucket, "bucket", false, "Upload to the configured MinIO bucket instead of --output")

	return cmd
}

type downloadOptions struct {
	scope      download.Scope
	outputDir  string
	name       string
	reportPath string
	progress   bool
	toBucket   bool
}

func scopeFromFlags(path string, all bool) download.Scope {
	if all {
		return download.AllScope()
	}
	return download.PathScope(path)
}

func newSink(cfg *config.Config, outputDir string, toBucket bool) (download.Sink, error) {
	if !toBucket {
		return &download.FileSink{Dir: outputDir}, nil
	}
	if !cfg.Minio.Enabled() {
		return nil, fmt.Errorf("--bucket needs a [minio] endpoint in the config file")
	}
	return download.NewMinioSink(download.MinioConfig{
		Endpoint:  cfg.Minio.Endpoint,
		AccessKey: cfg.Minio.AccessKey,
		SecretKey: cfg.Minio.SecretKey,
		Bucket:    cfg.Minio.Bucket,
		Prefix:    cfg.Minio.Prefix,
		Secure:    cfg.Minio.Secure,
	})
}

func runDownload(cmd *cobra.Command, cfg *config.Config, opts downloadOptions) error {
	ctx := cmd.Context()

	forest, err := loadForest(ctx, cfg)
	if err != nil {
		return err
	}
	sink, err := newSink(cfg, opts.outputDir, opts.toBucket)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	var progress func(archive.Event)
	if opts.progress {
		progress = func(e archive.Event) {
			if bar == nil {
				bar = progressbar.NewOptions(e.Total,
					progressbar.OptionSetDescription("Downloading"),
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionSetWidth(40),
					progressbar.OptionShowCount(),
					progressbar.OptionThrottle(100*time.Millisecond),
					progressbar.OptionClearOnFinish(),
				)
			}
			_ = bar.Add(1)
		}
	}

	orch := download.New(forest, newAssembler(cfg, progress), sink, download.Options{
		SiteID: cfg.SiteID,
		Logger: logger.Zerolog(),
	})
	res, runErr := orch.Run(ctx, download.Request{Scope: opts.scope, Filename: opts.name})
	if bar != nil {
		_ = bar.Finish()
	}

	if opts.reportPath != "" {
		if err := res.Report.Save(opts.reportPath); err != nil {
			logger.Error().Err(err).Str("path", opts.reportPath).Msg("failed to write report")
		}
	}
	if runErr != nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	if fs, ok := sink.(*download.FileSink); ok {
		saved, err := fs.Path(res.Filename)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved %s\n", saved)
	} else {
		fmt.Fprintf(out, "Uploaded %s\n", res.Filename)
	}
	fmt.Fprintf(out, "  Files: %d fetched, %d failed of %d\n", res.Archive.Fetched, res.Archive.Failed, res.Archive.Requested)
	fmt.Fprintf(out, "  Size:  %d bytes (%d uncompressed)\n", len(res.Archive.Data), res.Archive.Bytes)
	for _, u := range res.Archive.FailedURLs {
		fmt.Fprintf(out, "  Failed: %s\n", u)
	}
	return nil
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
