package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pandatools/panda-bundle/tree"
)

// RecordSource yields the flat record list of one site.
type RecordSource interface {
	Records(ctx context.Context) ([]tree.Record, error)
}

// Listing is the JSON document served by the content listing endpoint.
type Listing struct {
	ContentCollection []tree.Record `json:"content_collection"`
}

var portalSite = regexp.MustCompile(`/portal/site/(.*?)/tool/`)

// SiteIDFromPortalURL extracts the site id from a portal page address such
// as https://host/portal/site/<id>/tool/<tool-id>.
func SiteIDFromPortalURL(portalURL string) (string, error) {
	m := portalSite.FindStringSubmatch(portalURL)
	if m == nil || m[1] == "" {
		return "", fmt.Errorf("%w: %s", ErrNoSiteID, portalURL)
	}
	return m[1], nil
}

// ListingURL returns the content listing address of a site.
func ListingURL(baseURL, siteID string) string {
	if baseURL == "" {
		baseURL = tree.DefaultBaseURL
	}
	return strings.TrimSuffix(baseURL, "/") + "/direct/content/site/" + url.PathEscape(siteID) + ".json"
}

// HTTPSource reads the listing from the content service.
type HTTPSource struct {
	Client  *Client
	BaseURL string
	SiteID  string
	Logger  zerolog.Logger
}

// Records downloads and decodes the listing.
func (s *HTTPSource) Records(ctx context.Context) ([]tree.Record, error) {
	u := ListingURL(s.BaseURL, s.SiteID)
	s.Logger.Debug().Str("url", u).Msg("fetching listing")

	resp, err := s.Client.Fetch(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.SiteID, err)
	}
	if !resp.OK {
		return nil, fmt.Errorf("listing %s: %w: %d", s.SiteID, ErrBadStatus, resp.Status)
	}

	records, err := DecodeListing(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.SiteID, err)
	}
	s.Logger.Info().Str("site", s.SiteID).Int("records", len(records)).Msg("listing fetched")
	return records, nil
}

// DecodeListing decodes a listing document. A document without a
// content_collection field is rejected; an empty array is not.
func DecodeListing(r io.Reader) ([]tree.Record, error) {
	var doc struct {
		ContentCollection *[]tree.Record `json:"content_collection"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}
	if doc.ContentCollection == nil {
		return nil, ErrNoContentCollection
	}
	return *doc.ContentCollection, nil
}

// FileSource reads records from a JSON file holding either a listing
// document or a bare array of records.
type FileSource struct {
	Path string
}

// Records reads and decodes the file.
func (s FileSource) Records(_ context.Context) ([]tree.Record, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records file: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var records []tree.Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", s.Path, err)
		}
		return records, nil
	}

	records, err := DecodeListing(bytes.NewReader(trimmed))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return records, nil
}

// WriteListing writes records as a listing document.
func WriteListing(w io.Writer, records []tree.Record) error {
	if records == nil {
		records = []tree.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Listing{ContentCollection: records})
}
