package download

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pandatools/panda-bundle/archive"
	"github.com/pandatools/panda-bundle/tree"
	"github.com/pandatools/panda-bundle/util"
)

// AllScopeKey names the whole-site scope in status and reports.
const AllScopeKey = "all"

// Scope selects what to download: one folder by content path, or everything.
type Scope struct {
	Path string
	All  bool
}

// PathScope selects the subtree at a content path.
func PathScope(path string) Scope { return Scope{Path: path} }

// AllScope selects every root of the forest.
func AllScope() Scope { return Scope{All: true} }

// Key identifies the scope in status tracking.
func (s Scope) Key() string {
	if s.All {
		return AllScopeKey
	}
	return util.WithTrailingSlash(s.Path)
}

// Request is one download.
type Request struct {
	Scope Scope
	// Filename is the archive name handed to the sink. Empty selects the
	// default for the scope.
	Filename string
}

// Assembler builds an archive from a file list.
type Assembler interface {
	Assemble(ctx context.Context, entries []tree.FileEntry) (archive.Result, error)
}

// Sink receives a finished archive.
type Sink interface {
	Save(ctx context.Context, data []byte, filename string) error
}

// Outcome is the terminal state of a run.
type Outcome string

const (
	OutcomeDone     Outcome = "done"
	OutcomeNotFound Outcome = "not-found"
	OutcomeEmpty    Outcome = "empty"
	OutcomeError    Outcome = "error"
)

// OutcomeOf maps a Run error to its outcome.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeDone
	case errors.Is(err, ErrFolderNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrNoFiles):
		return OutcomeEmpty
	default:
		return OutcomeError
	}
}

// Options configures an Orchestrator.
type Options struct {
	// SiteID names the whole-site archive.
	SiteID string
	// Status, if set, tracks the state of every scope.
	Status *Tracker
	Logger zerolog.Logger
	Now    func() time.Time
}

// Result describes a finished run.
type Result struct {
	RequestID string
	Filename  string
	Outcome   Outcome
	Archive   archive.Result
	Report    util.Report
}

// Orchestrator serves download requests over one forest. Runs are
// independent and may overlap.
type Orchestrator struct {
	forest    *tree.Forest
	assembler Assembler
	sink      Sink
	opts      Options
}

// New creates an Orchestrator.
func New(forest *tree.Forest, assembler Assembler, sink Sink, opts Options) *Orchestrator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{forest: forest, assembler: assembler, sink: sink, opts: opts}
}

// Forest returns the forest requests are resolved against.
func (o *Orchestrator) Forest() *tree.Forest {
	return o.forest
}

// Files returns the file list of a scope and its default archive name.
func (o *Orchestrator) Files(scope Scope) ([]tree.FileEntry, string, error) {
	if scope.All {
		return o.forest.ListAll(), AllFilename(o.opts.SiteID), nil
	}
	node, ok := o.forest.Resolve(scope.Path)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrFolderNotFound, scope.Path)
	}
	return tree.ListFiles(node), FolderFilename(node.Title), nil
}

// Run resolves the request scope, assembles its files and saves the archive.
// Failures are reported as ErrFolderNotFound, ErrNoFiles, or errors wrapping
// archive.ErrAssembly; the returned Result is filled in either way.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	id := uuid.NewString()
	key := req.Scope.Key()
	log := o.opts.Logger.With().Str("request_id", id).Str("scope", key).Logger()

	res := Result{RequestID: id}
	res.Report = util.NewReport(id, o.opts.Now())
	res.Report.Site = o.opts.SiteID
	res.Report.Scope = key

	o.setStatus(key, StatusInProgress)
	err := o.run(ctx, log, req, &res)

	res.Outcome = OutcomeOf(err)
	res.Report.Outcome = string(res.Outcome)
	res.Report.Finished = o.opts.Now()
	o.setStatus(key, statusFor(res.Outcome))

	if err != nil {
		log.Error().Err(err).Str("outcome", string(res.Outcome)).Msg("download failed")
		return res, err
	}
	log.Info().
		Str("filename", res.Filename).
		Int("fetched", res.Archive.Fetched).
		Int("failed", res.Archive.Failed).
		Dur("took", res.Report.Duration()).
		Msg("download complete")
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, log zerolog.Logger, req Request, res *Result) error {
	files, filename, err := o.Files(req.Scope)
	if err != nil {
		return err
	}
	if req.Filename != "" {
		filename = req.Filename
	}
	res.Filename = filename
	res.Report.Filename = filename

	if len(files) == 0 {
		return fmt.Errorf("%w: %s", ErrNoFiles, req.Scope.Key())
	}
	log.Info().Int("files", len(files)).Str("filename", filename).Msg("assembling archive")

	ar, err := o.assembler.Assemble(ctx, files)
	if err != nil {
		return err
	}
	res.Archive = ar
	res.Report.Requested = ar.Requested
	res.Report.Fetched = ar.Fetched
	res.Report.Failed = ar.Failed
	res.Report.FailedURLs = ar.FailedURLs
	res.Report.ArchiveBytes = len(ar.Data)
	res.Report.PayloadBytes = ar.Bytes

	if err := o.sink.Save(ctx, ar.Data, filename); err != nil {
		return fmt.Errorf("%w: saving %s: %v", archive.ErrAssembly, filename, err)
	}
	return nil
}

func (o *Orchestrator) setStatus(key string, s Status) {
	if o.opts.Status != nil {
		o.opts.Status.Set(key, s)
	}
}

// FolderFilename is the default archive name for a folder.
func FolderFilename(title string) string {
	return title + ".zip"
}

// AllFilename is the default archive name for a whole site. Without a site
// id (an offline records file) the name is all_resources.zip.
func AllFilename(siteID string) string {
	if siteID == "" {
		return "all_resources.zip"
	}
	return siteID + "_all_resources.zip"
}
