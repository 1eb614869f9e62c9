package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/pandatools/panda-bundle/download"
	"github.com/pandatools/panda-bundle/internal/config"
	"github.com/pandatools/panda-bundle/internal/server"
)

// NewServeCmd creates and returns the serve subcommand.
func NewServeCmd() *cobra.Command {
	var (
		addr     string
		storeDir string
		toBucket bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the hierarchy and zip downloads over HTTP",
		Long: `Start an HTTP server for one site.

Routes:
  GET  /api/tree[?path=]        hierarchy as JSON
  GET  /api/files[?path=]       files a download would contain
  GET  /api/status              status of every requested scope
  GET  /download?path=&name=    zip of a folder
  GET  /download/all[?name=]    zip of the whole site
  POST /api/save[?path=&name=]  build a zip and keep it in --store or the bucket
  GET  /health`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, addr, storeDir, toBucket)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "Listen address")
	cmd.Flags().StringVar(&storeDir, "store", "", "Directory for archives built by POST /api/save")
	cmd.Flags().BoolVar(&toBucket, "bucket", false, "Keep archives built by POST /api/save in the configured MinIO bucket")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, addr, storeDir string, toBucket bool) error {
	forest, err := loadForest(ctx, cfg)
	if err != nil {
		return err
	}

	var store download.Sink
	if storeDir != "" || toBucket {
		if store, err = newSink(cfg, storeDir, toBucket); err != nil {
			return err
		}
	}

	tracker := download.NewTracker(download.DefaultRevertDelay)
	tracker.OnChange = func(key string, s download.Status) {
		logger.Debug().Str("scope", key).Str("status", string(s)).Msg("status")
	}

	e := server.New(server.Options{
		Forest:    forest,
		Assembler: newAssembler(cfg, nil),
		SiteID:    cfg.SiteID,
		Status:    tracker,
		Store:     store,
		Logger:    logger.Zerolog(),
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Str("site", cfg.SiteID).Msg("listening")
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info().Msg("shutting down")
	return e.Shutdown(shutdownCtx)
}
