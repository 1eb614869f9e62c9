package tree

import (
	"strings"

	"github.com/pandatools/panda-bundle/util"
)

// CollectionType is the record type of a folder. Every other type is a file.
const CollectionType = "collection"

const (
	// AccessMarker is the address segment in front of the content root.
	AccessMarker = "/access"
	// ContentMarker is the root segment of every container path.
	ContentMarker = "/content"
)

// DefaultBaseURL is the PandA deployment at Kyoto University.
const DefaultBaseURL = "https://panda.ecs.kyoto-u.ac.jp"

// Record is one item of the content listing.
type Record struct {
	URL          string `json:"url"`
	Title        string `json:"title"`
	Type         string `json:"type"`
	Container    string `json:"container,omitempty"`
	Size         int64  `json:"size,omitempty"`
	ModifiedDate string `json:"modifiedDate,omitempty"`
	Author       string `json:"author,omitempty"`
}

// IsCollection reports whether the record is a folder.
func (r Record) IsCollection() bool {
	return r.Type == CollectionType
}

// Layout holds the fixed address pieces of a deployment.
type Layout struct {
	BaseURL string
}

// DefaultLayout returns the layout of the default deployment.
func DefaultLayout() Layout {
	return Layout{BaseURL: DefaultBaseURL}
}

// AccessRoot is the address prefix that content paths are appended to.
func (l Layout) AccessRoot() string {
	base := l.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimSuffix(base, "/") + AccessMarker
}

// AddressOf returns the remote address of a content path.
func (l Layout) AddressOf(contentPath string) string {
	return l.AccessRoot() + util.WithTrailingSlash(contentPath)
}

// DerivedPath computes the content path of an address: the text after the
// first "/access/content", percent-decoded, with a trailing slash, prefixed
// with "/content". The second result is false if the address has no content
// marker.
func DerivedPath(address string) (string, bool) {
	marker := AccessMarker + ContentMarker
	i := strings.Index(address, marker)
	if i < 0 {
		return "", false
	}
	raw := address[i+len(marker):]
	decoded, err := util.Unescape(raw)
	if err != nil {
		decoded = raw
	}
	return ContentMarker + util.WithTrailingSlash(decoded), true
}
