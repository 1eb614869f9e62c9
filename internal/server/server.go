// Package server exposes download requests over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/pandatools/panda-bundle/download"
	"github.com/pandatools/panda-bundle/tree"
	"github.com/pandatools/panda-bundle/version"
)

// Options configures the HTTP surface.
type Options struct {
	Forest    *tree.Forest
	Assembler download.Assembler
	SiteID    string
	Status    *download.Tracker
	// Store, if set, enables POST /api/save, which keeps archives on the
	// server side (a directory or a bucket) instead of returning them.
	Store  download.Sink
	Logger zerolog.Logger
}

// Handler serves the API routes.
type Handler struct {
	opts Options
}

// New builds the echo instance with every route registered.
func New(opts Options) *echo.Echo {
	if opts.Status == nil {
		opts.Status = download.NewTracker(0)
	}
	h := &Handler{opts: opts}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			opts.Logger.Debug().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	e.GET("/api/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, version.GetInfo())
	})
	e.GET("/api/tree", h.Tree)
	e.GET("/api/files", h.Files)
	e.GET("/api/status", h.Status)
	e.GET("/download", h.Download)
	e.GET("/download/all", h.DownloadAll)
	if opts.Store != nil {
		e.POST("/api/save", h.Save)
	}
	return e
}

// scopeOf reads the scope from the path query parameter; no path means the
// whole site.
func scopeOf(c echo.Context) download.Scope {
	if p := c.QueryParam("path"); p != "" {
		return download.PathScope(p)
	}
	return download.AllScope()
}

// Tree returns the forest, or the subtree at ?path=.
func (h *Handler) Tree(c echo.Context) error {
	p := c.QueryParam("path")
	if p == "" {
		return c.JSON(http.StatusOK, h.opts.Forest.Views())
	}
	n, ok := h.opts.Forest.Resolve(p)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Folder not found")
	}
	return c.JSON(http.StatusOK, tree.ViewOf(n))
}

type filesResponse struct {
	Filename string           `json:"filename"`
	Count    int              `json:"count"`
	Files    []tree.FileEntry `json:"files"`
}

// Files lists the files a download of the scope would fetch.
func (h *Handler) Files(c echo.Context) error {
	o := h.orchestrator(nil)
	files, filename, err := o.Files(scopeOf(c))
	if err != nil {
		return httpError(err)
	}
	if files == nil {
		files = []tree.FileEntry{}
	}
	return c.JSON(http.StatusOK, filesResponse{Filename: filename, Count: len(files), Files: files})
}

// Status returns the status of every scope requested so far.
func (h *Handler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.opts.Status.Snapshot())
}

// Download streams the archive of ?path= (or the whole site) as an
// attachment. ?name= overrides the filename.
func (h *Handler) Download(c echo.Context) error {
	return h.serveArchive(c, scopeOf(c))
}

// DownloadAll streams the archive of the whole site.
func (h *Handler) DownloadAll(c echo.Context) error {
	return h.serveArchive(c, download.AllScope())
}

func (h *Handler) serveArchive(c echo.Context, scope download.Scope) error {
	sink := download.SinkFunc(func(_ context.Context, data []byte, filename string) error {
		filename, err := download.SafeFilename(filename)
		if err != nil {
			return err
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
		return c.Blob(http.StatusOK, download.ZipContentType, data)
	})
	_, err := h.orchestrator(sink).Run(c.Request().Context(), download.Request{
		Scope:    scope,
		Filename: c.QueryParam("name"),
	})
	if err != nil {
		if c.Response().Committed {
			return nil
		}
		return httpError(err)
	}
	return nil
}

// Save builds the archive and hands it to the configured store; the run
// report is returned.
func (h *Handler) Save(c echo.Context) error {
	res, err := h.orchestrator(h.opts.Store).Run(c.Request().Context(), download.Request{
		Scope:    scopeOf(c),
		Filename: c.QueryParam("name"),
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res.Report)
}

func (h *Handler) orchestrator(sink download.Sink) *download.Orchestrator {
	return download.New(h.opts.Forest, h.opts.Assembler, sink, download.Options{
		SiteID: h.opts.SiteID,
		Status: h.opts.Status,
		Logger: h.opts.Logger,
	})
}

func httpError(err error) error {
	switch {
	case errors.Is(err, download.ErrFolderNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Folder not found")
	case errors.Is(err, download.ErrNoFiles):
		return echo.NewHTTPError(http.StatusNotFound, "No files to download")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
