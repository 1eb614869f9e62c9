package fetch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pandatools/panda-bundle/tree"
)

const listingJSON = `{
  "content_collection": [
    {"url": "https://h/access/content/group/s1/", "title": "s1", "type": "collection", "container": "/content/group/"},
    {"url": "https://h/access/content/group/s1/a.pdf", "title": "a.pdf", "type": "application/pdf", "container": "/content/group/s1/", "size": 42}
  ]
}`

func TestSiteIDFromPortalURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"resources tool", "https://panda.ecs.kyoto-u.ac.jp/portal/site/2024-110-N150-017/tool/abc-123", "2024-110-N150-017", false},
		{"lazy match", "https://h/portal/site/s1/tool/t/portal/site/s2/tool/x", "s1", false},
		{"no tool segment", "https://h/portal/site/s1", "", true},
		{"unrelated", "https://h/direct/content/site/s1.json", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SiteIDFromPortalURL(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoSiteID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListingURL(t *testing.T) {
	assert.Equal(t, "https://panda.ecs.kyoto-u.ac.jp/direct/content/site/s1.json", ListingURL("", "s1"))
	assert.Equal(t, "https://lms.example/direct/content/site/a%20b.json", ListingURL("https://lms.example/", "a b"))
}

func TestHTTPSource_Records(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/direct/content/site/s1.json":
			w.Write([]byte(listingJSON))
		case "/direct/content/site/bare.json":
			w.Write([]byte(`{"entityPrefix": "content"}`))
		case "/direct/content/site/empty.json":
			w.Write([]byte(`{"content_collection": []}`))
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()

	client := NewClient(Options{})

	src := &HTTPSource{Client: client, BaseURL: srv.URL, SiteID: "s1"}
	records, err := src.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, tree.CollectionType, records[0].Type)
	assert.Equal(t, "/content/group/s1/", records[1].Container)
	assert.Equal(t, int64(42), records[1].Size)

	src.SiteID = "bare"
	_, err = src.Records(context.Background())
	assert.ErrorIs(t, err, ErrNoContentCollection)

	src.SiteID = "empty"
	records, err = src.Records(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)

	src.SiteID = "private"
	_, err = src.Records(context.Background())
	assert.ErrorIs(t, err, ErrBadStatus)
	assert.Contains(t, err.Error(), "403")
}

func TestFileSource_Records(t *testing.T) {
	dir := t.TempDir()

	doc := filepath.Join(dir, "listing.json")
	require.NoError(t, os.WriteFile(doc, []byte(listingJSON), 0o644))
	records, err := FileSource{Path: doc}.Records(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)

	arr := filepath.Join(dir, "records.json")
	require.NoError(t, os.WriteFile(arr, []byte(`  [{"url": "u", "title": "t", "type": "collection"}]`), 0o644))
	records, err = FileSource{Path: arr}.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].IsCollection())

	_, err = FileSource{Path: filepath.Join(dir, "missing.json")}.Records(context.Background())
	assert.Error(t, err)
}

func TestWriteListing(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteListing(&buf, nil))
	assert.Contains(t, buf.String(), `"content_collection": []`)

	records := tree.Synthesize(tree.SynthOptions{SiteID: "s", Folders: 2, Files: 3, Seed: 1})
	buf.Reset()
	require.NoError(t, WriteListing(&buf, records))
	decoded, err := DecodeListing(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, records, decoded)
}
