package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pandatools/panda-bundle/archive"
	"github.com/pandatools/panda-bundle/fetch"
	"github.com/pandatools/panda-bundle/tree"
	"github.com/pandatools/panda-bundle/util"
)

const access = tree.DefaultBaseURL + "/access"

func testForest() *tree.Forest {
	return tree.Build([]tree.Record{
		{URL: access + "/content/group/s1/", Title: "s1", Type: tree.CollectionType, Container: "/content/group/"},
		{URL: access + "/content/group/s1/Week%201/", Title: "Week 1", Type: tree.CollectionType, Container: "/content/group/s1/"},
		{URL: access + "/content/group/s1/Week%201/a.txt", Title: "a.txt", Type: "text/plain", Container: "/content/group/s1/Week 1/"},
		{URL: access + "/content/group/s1/Week%201/b.txt", Title: "b.txt", Type: "text/plain", Container: "/content/group/s1/Week 1/"},
		{URL: access + "/content/group/s1/Empty/", Title: "Empty", Type: tree.CollectionType, Container: "/content/group/s1/"},
		{URL: access + "/content/group/s1/top.txt", Title: "top.txt", Type: "text/plain", Container: "/content/group/s1/"},
	})
}

// countingAssembler records calls and returns a fixed result.
type countingAssembler struct {
	calls   atomic.Int32
	entries []tree.FileEntry
	err     error
}

func (c *countingAssembler) Assemble(_ context.Context, entries []tree.FileEntry) (archive.Result, error) {
	c.calls.Add(1)
	c.entries = entries
	if c.err != nil {
		return archive.Result{}, c.err
	}
	return archive.Result{Data: []byte("zip"), Requested: len(entries), Fetched: len(entries), Bytes: 10}, nil
}

type memorySink struct {
	mu    sync.Mutex
	saved map[string][]byte
	err   error
}

func (m *memorySink) Save(_ context.Context, data []byte, filename string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[filename] = data
	return nil
}

func TestRun_PathScope(t *testing.T) {
	asm := &countingAssembler{}
	sink := &memorySink{}
	o := New(testForest(), asm, sink, Options{SiteID: "s1"})

	res, err := o.Run(context.Background(), Request{Scope: PathScope("/content/group/s1/Week%201/")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDone, res.Outcome)
	assert.Equal(t, "Week 1.zip", res.Filename)
	assert.NotEmpty(t, res.RequestID)
	assert.Equal(t, []tree.FileEntry{
		{URL: access + "/content/group/s1/Week%201/a.txt", Path: "Week 1/a.txt"},
		{URL: access + "/content/group/s1/Week%201/b.txt", Path: "Week 1/b.txt"},
	}, asm.entries)
	assert.Equal(t, []byte("zip"), sink.saved["Week 1.zip"])

	assert.Equal(t, "done", res.Report.Outcome)
	assert.Equal(t, "s1", res.Report.Site)
	assert.Equal(t, 2, res.Report.Fetched)
	assert.Equal(t, 3, res.Report.ArchiveBytes)
}

func TestRun_AllScope(t *testing.T) {
	asm := &countingAssembler{}
	sink := &memorySink{}
	o := New(testForest(), asm, sink, Options{SiteID: "s1"})

	res, err := o.Run(context.Background(), Request{Scope: AllScope()})
	require.NoError(t, err)
	assert.Equal(t, "s1_all_resources.zip", res.Filename)
	assert.Len(t, asm.entries, 3)
	assert.Equal(t, "s1/Week 1/a.txt", asm.entries[0].Path)
	assert.Equal(t, "s1/top.txt", asm.entries[2].Path)
}

func TestRun_ExplicitFilename(t *testing.T) {
	sink := &memorySink{}
	o := New(testForest(), &countingAssembler{}, sink, Options{})
	res, err := o.Run(context.Background(), Request{Scope: PathScope("/content/group/s1/"), Filename: "custom.zip"})
	require.NoError(t, err)
	assert.Equal(t, "custom.zip", res.Filename)
	assert.Contains(t, sink.saved, "custom.zip")
}

func TestRun_FolderNotFound(t *testing.T) {
	asm := &countingAssembler{}
	o := New(testForest(), asm, &memorySink{}, Options{})

	res, err := o.Run(context.Background(), Request{Scope: PathScope("/content/group/s1/Nope/")})
	assert.ErrorIs(t, err, ErrFolderNotFound)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.Equal(t, int32(0), asm.calls.Load(), "no fallback to the whole site")
}

func TestRun_EmptyScopeNeverAssembles(t *testing.T) {
	asm := &countingAssembler{}
	sink := &memorySink{}
	o := New(testForest(), asm, sink, Options{})

	res, err := o.Run(context.Background(), Request{Scope: PathScope("/content/group/s1/Empty")})
	assert.ErrorIs(t, err, ErrNoFiles)
	assert.Equal(t, OutcomeEmpty, res.Outcome)
	assert.Equal(t, int32(0), asm.calls.Load())
	assert.Empty(t, sink.saved)

	o = New(tree.Build(nil), asm, sink, Options{SiteID: "s"})
	_, err = o.Run(context.Background(), Request{Scope: AllScope()})
	assert.ErrorIs(t, err, ErrNoFiles)
	assert.Equal(t, int32(0), asm.calls.Load())
}

func TestRun_AssemblyAndSinkErrors(t *testing.T) {
	asm := &countingAssembler{err: archive.ErrAssembly}
	o := New(testForest(), asm, &memorySink{}, Options{})
	res, err := o.Run(context.Background(), Request{Scope: AllScope()})
	assert.ErrorIs(t, err, archive.ErrAssembly)
	assert.Equal(t, OutcomeError, res.Outcome)

	o = New(testForest(), &countingAssembler{}, &memorySink{err: errors.New("read-only")}, Options{})
	res, err = o.Run(context.Background(), Request{Scope: AllScope()})
	assert.ErrorIs(t, err, archive.ErrAssembly)
	assert.Contains(t, err.Error(), "read-only")
	assert.Equal(t, OutcomeError, res.Outcome)
}

func TestRun_StatusTracking(t *testing.T) {
	tracker := NewTracker(0)
	var seen []Status
	var mu sync.Mutex
	tracker.OnChange = func(key string, s Status) {
		mu.Lock()
		defer mu.Unlock()
		if key == "/content/group/s1/Nope/" {
			seen = append(seen, s)
		}
	}

	o := New(testForest(), &countingAssembler{}, &memorySink{}, Options{Status: tracker})
	_, _ = o.Run(context.Background(), Request{Scope: PathScope("/content/group/s1/Nope")})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Status{StatusInProgress, StatusNotFound}, seen)
	assert.Equal(t, StatusNotFound, tracker.Get("/content/group/s1/Nope/"))
}

// End to end with the real assembler: one file missing on the server still
// yields a done run with the remaining files.
func TestRun_WithAssembler(t *testing.T) {
	bodies := map[string]string{
		access + "/content/group/s1/Week%201/a.txt": "A",
		access + "/content/group/s1/top.txt":        "T",
	}
	asm := &archive.Assembler{Fetcher: fetch.FetcherFunc(func(_ context.Context, url string) (fetch.Response, error) {
		body, ok := bodies[url]
		if !ok {
			return fetch.Response{Status: 404}, nil
		}
		return fetch.Response{OK: true, Status: 200, Body: []byte(body)}, nil
	})}
	sink := &memorySink{}
	o := New(testForest(), asm, sink, Options{SiteID: "s1"})

	res, err := o.Run(context.Background(), Request{Scope: AllScope()})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Archive.Fetched)
	assert.Equal(t, 1, res.Archive.Failed)

	names, err := util.ZipEntries(sink.saved["s1_all_resources.zip"])
	require.NoError(t, err)
	assert.Equal(t, []string{"s1/Week 1/a.txt", "s1/top.txt"}, names)
}

func TestRun_OverlappingRunsShareFileSink(t *testing.T) {
	asm := &archive.Assembler{Fetcher: fetch.FetcherFunc(func(_ context.Context, url string) (fetch.Response, error) {
		return fetch.Response{OK: true, Status: 200, Body: []byte(url)}, nil
	})}
	sink := &FileSink{Dir: t.TempDir()}
	o := New(testForest(), asm, sink, Options{SiteID: "s1", Status: NewTracker(time.Hour)})

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = o.Run(context.Background(), Request{
				Scope:    PathScope("/content/group/s1/Week 1/"),
				Filename: fmt.Sprintf("week-%d.zip", i),
			})
		}()
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err)
		p, err := sink.Path(fmt.Sprintf("week-%d.zip", i))
		require.NoError(t, err)
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		names, err := util.ZipEntries(data)
		require.NoError(t, err)
		assert.Equal(t, []string{"Week 1/a.txt", "Week 1/b.txt"}, names)
	}
}

func TestDefaultFilenames(t *testing.T) {
	assert.Equal(t, "Week 1.zip", FolderFilename("Week 1"))
	assert.Equal(t, "s1_all_resources.zip", AllFilename("s1"))
	assert.Equal(t, "all_resources.zip", AllFilename(""))

	sink := &memorySink{}
	o := New(testForest(), &countingAssembler{}, sink, Options{})
	res, err := o.Run(context.Background(), Request{Scope: AllScope()})
	require.NoError(t, err)
	assert.Equal(t, "all_resources.zip", res.Filename)
	assert.Contains(t, sink.saved, "all_resources.zip")
}

func TestScopeKey(t *testing.T) {
	assert.Equal(t, "all", AllScope().Key())
	assert.Equal(t, "/content/a/", PathScope("/content/a").Key())
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, OutcomeDone, OutcomeOf(nil))
	assert.Equal(t, OutcomeNotFound, OutcomeOf(ErrFolderNotFound))
	assert.Equal(t, OutcomeEmpty, OutcomeOf(ErrNoFiles))
	assert.Equal(t, OutcomeError, OutcomeOf(context.Canceled))
}
