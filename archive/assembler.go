package archive

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pandatools/panda-bundle/fetch"
	"github.com/pandatools/panda-bundle/tree"
	"github.com/pandatools/panda-bundle/util"
)

// ErrAssembly marks a failure that aborts a whole run: the archive writer or
// the destination could not accept data.
var ErrAssembly = errors.New("archive assembly failed")

// Writer accumulates archive entries.
type Writer interface {
	AddEntry(path string, data []byte) error
	Finalize() ([]byte, error)
}

// Result describes a finished archive.
type Result struct {
	Data       []byte
	Requested  int
	Fetched    int
	Failed     int
	Bytes      int64 // payload bytes written, before compression
	FailedURLs []string
}

// Event is passed to the progress hook once per finished entry.
type Event struct {
	Entry tree.FileEntry
	OK    bool
	Done  int
	Total int
}

// Assembler turns a file list into a zip archive.
type Assembler struct {
	Fetcher fetch.Fetcher
	// NewWriter creates the archive writer of a run. Defaults to a zip writer.
	NewWriter func() Writer
	// Concurrency caps in-flight fetches; 0 means one goroutine per entry.
	Concurrency int
	// Progress, if set, is called once per finished entry. Calls are serialized.
	Progress func(Event)
	Logger   zerolog.Logger
}

// slot holds a finished fetch until every earlier entry has been committed.
type slot struct {
	done bool
	ok   bool
	data []byte
}

type run struct {
	a       *Assembler
	entries []tree.FileEntry
	w       Writer

	mu       sync.Mutex
	slots    []slot
	next     int
	finished int
	res      Result
	err      error
}

// Assemble fetches every entry and writes the successful ones to a fresh
// archive. Entries that fail to fetch are logged and skipped; the archive is
// still produced, possibly empty. The returned error is non-nil only for
// writer failures (wrapping ErrAssembly) or cancellation of ctx.
func (a *Assembler) Assemble(ctx context.Context, entries []tree.FileEntry) (Result, error) {
	newWriter := a.NewWriter
	if newWriter == nil {
		newWriter = func() Writer { return util.NewZipWriter() }
	}

	r := &run{
		a:       a,
		entries: entries,
		w:       newWriter(),
		slots:   make([]slot, len(entries)),
	}
	r.res.Requested = len(entries)

	g, gctx := errgroup.WithContext(ctx)
	if a.Concurrency > 0 {
		g.SetLimit(a.Concurrency)
	}
	for i := range entries {
		g.Go(func() error {
			return r.fetchOne(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	data, err := r.w.Finalize()
	if err != nil {
		return Result{}, fmt.Errorf("%w: finalize: %v", ErrAssembly, err)
	}
	r.res.Data = data

	a.Logger.Info().
		Int("requested", r.res.Requested).
		Int("fetched", r.res.Fetched).
		Int("failed", r.res.Failed).
		Int("archive_bytes", len(data)).
		Msg("archive assembled")
	return r.res, nil
}

func (r *run) fetchOne(ctx context.Context, i int) error {
	e := r.entries[i]

	resp, err := r.a.Fetcher.Fetch(ctx, e.URL)
	switch {
	case err != nil:
		r.a.Logger.Error().Err(err).Str("url", e.URL).Str("path", e.Path).Msg("fetch failed, skipping")
		return r.complete(i, slot{done: true})
	case !resp.OK:
		r.a.Logger.Error().Int("status", resp.Status).Str("url", e.URL).Str("path", e.Path).Msg("fetch failed, skipping")
		return r.complete(i, slot{done: true})
	}
	return r.complete(i, slot{done: true, ok: true, data: resp.Body})
}

// complete stores the outcome of entry i and commits every entry that is now
// at the head of the list.
func (r *run) complete(i int, s slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.slots[i] = s
	r.finished++
	if r.a.Progress != nil {
		r.a.Progress(Event{Entry: r.entries[i], OK: s.ok, Done: r.finished, Total: len(r.entries)})
	}

	if r.err != nil {
		return nil
	}
	for r.next < len(r.slots) && r.slots[r.next].done {
		if err := r.commit(r.next); err != nil {
			r.err = err
			return err
		}
		r.slots[r.next].data = nil
		r.next++
	}
	return nil
}

func (r *run) commit(i int) error {
	s := r.slots[i]
	e := r.entries[i]
	if !s.ok {
		r.res.Failed++
		r.res.FailedURLs = append(r.res.FailedURLs, e.URL)
		return nil
	}

	err := r.w.AddEntry(e.Path, s.data)
	if errors.Is(err, util.ErrEmptyName) {
		r.a.Logger.Warn().Str("url", e.URL).Str("path", e.Path).Msg("entry has no usable name, skipping")
		r.res.Failed++
		r.res.FailedURLs = append(r.res.FailedURLs, e.URL)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: adding %s: %v", ErrAssembly, e.Path, err)
	}
	r.res.Fetched++
	r.res.Bytes += int64(len(s.data))
	return nil
}
