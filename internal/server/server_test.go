package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pandatools/panda-bundle/archive"
	"github.com/pandatools/panda-bundle/download"
	"github.com/pandatools/panda-bundle/fetch"
	"github.com/pandatools/panda-bundle/tree"
	"github.com/pandatools/panda-bundle/util"
)

const access = tree.DefaultBaseURL + "/access"

func newTestServer(t *testing.T, store download.Sink) (*echo.Echo, *download.Tracker) {
	t.Helper()
	forest := tree.Build([]tree.Record{
		{URL: access + "/content/group/s1/", Title: "s1", Type: tree.CollectionType, Container: "/content/group/"},
		{URL: access + "/content/group/s1/Week%201/", Title: "Week 1", Type: tree.CollectionType, Container: "/content/group/s1/"},
		{URL: access + "/content/group/s1/Week%201/a.txt", Title: "a.txt", Type: "text/plain", Container: "/content/group/s1/Week 1/"},
		{URL: access + "/content/group/s1/Empty/", Title: "Empty", Type: tree.CollectionType, Container: "/content/group/s1/"},
	})
	bodies := map[string]string{access + "/content/group/s1/Week%201/a.txt": "AAA"}
	asm := &archive.Assembler{Fetcher: fetch.FetcherFunc(func(_ context.Context, u string) (fetch.Response, error) {
		if b, ok := bodies[u]; ok {
			return fetch.Response{OK: true, Status: 200, Body: []byte(b)}, nil
		}
		return fetch.Response{Status: 404}, nil
	})}
	tracker := download.NewTracker(0)
	e := New(Options{
		Forest:    forest,
		Assembler: asm,
		SiteID:    "s1",
		Status:    tracker,
		Store:     store,
		Logger:    zerolog.Nop(),
	})
	return e, tracker
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	e, _ := newTestServer(t, nil)
	rec := get(e, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestTree(t *testing.T) {
	e, _ := newTestServer(t, nil)

	rec := get(e, "/api/tree")
	require.Equal(t, http.StatusOK, rec.Code)
	var views []tree.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "s1", views[0].Title)
	assert.Equal(t, 1, views[0].Files)

	rec = get(e, "/api/tree?path="+url.QueryEscape("/content/group/s1/Week 1/"))
	require.Equal(t, http.StatusOK, rec.Code)
	var sub tree.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sub))
	assert.Equal(t, "Week 1", sub.Title)

	rec = get(e, "/api/tree?path=/content/nope/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFiles(t *testing.T) {
	e, _ := newTestServer(t, nil)

	rec := get(e, "/api/files")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp filesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "s1_all_resources.zip", resp.Filename)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "s1/Week 1/a.txt", resp.Files[0].Path)

	rec = get(e, "/api/files?path="+url.QueryEscape("/content/group/s1/Empty/"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)
	assert.NotNil(t, resp.Files)
}

func TestDownload(t *testing.T) {
	e, tracker := newTestServer(t, nil)

	rec := get(e, "/download?path="+url.QueryEscape("/content/group/s1/Week%201/"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, download.ZipContentType, rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, `attachment; filename="Week 1.zip"`, rec.Header().Get(echo.HeaderContentDisposition))

	names, err := util.ZipEntries(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"Week 1/a.txt"}, names)
	assert.Equal(t, download.StatusDone, tracker.Get("/content/group/s1/Week%201/"))
}

func TestDownloadAll_CustomName(t *testing.T) {
	e, _ := newTestServer(t, nil)
	rec := get(e, "/download/all?name=everything.zip")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "everything.zip")
}

func TestDownload_Errors(t *testing.T) {
	e, tracker := newTestServer(t, nil)

	rec := get(e, "/download?path=/content/group/s1/Nope/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Folder not found")

	rec = get(e, "/download?path=/content/group/s1/Empty/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "No files to download")

	rec = get(e, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]download.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, download.StatusNotFound, status["/content/group/s1/Nope/"])
	assert.Equal(t, download.StatusEmpty, status["/content/group/s1/Empty/"])
	assert.Equal(t, tracker.Snapshot(), status)
}

func TestSave(t *testing.T) {
	var saved string
	store := download.SinkFunc(func(_ context.Context, _ []byte, name string) error {
		saved = name
		return nil
	})
	e, _ := newTestServer(t, store)

	req := httptest.NewRequest(http.MethodPost, "/api/save", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s1_all_resources.zip", saved)

	var report util.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "done", report.Outcome)
	assert.Equal(t, 1, report.Fetched)
}

func TestSave_DisabledWithoutStore(t *testing.T) {
	e, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/save", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.NotEqual(t, http.StatusOK, rec.Code)
}
