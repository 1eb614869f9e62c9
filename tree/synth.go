package tree

import (
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// SynthOptions controls Synthesize.
type SynthOptions struct {
	BaseURL  string
	SiteID   string
	Folders  int
	Files    int
	MaxDepth int
	Seed     uint64
	// EncodeContainers writes container paths percent-encoded instead of raw.
	EncodeContainers bool
	// Shuffle randomizes record order.
	Shuffle bool
}

// Synthesize generates a plausible content listing: a site root folder,
// nested folders up to MaxDepth, and files spread over them. Titles contain
// spaces so that addresses and container paths differ in encoding. Titles are
// unique among siblings.
func Synthesize(opts SynthOptions) []Record {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.SiteID == "" {
		opts.SiteID = uuid.NewString()
	}
	if opts.MaxDepth < 1 {
		opts.MaxDepth = 1
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	layout := Layout{BaseURL: opts.BaseURL}

	type folder struct {
		segments []string
		depth    int
	}
	rootSegs := []string{"group", opts.SiteID}
	folders := []folder{{segments: rootSegs}}

	var records []Record
	records = append(records, Record{
		URL:   synthAddress(layout, rootSegs, true),
		Title: opts.SiteID,
		Type:  CollectionType,
		// The site root carries the group container, which matches nothing.
		Container: ContentMarker + "/group/",
	})

	for i := range opts.Folders {
		var eligible []folder
		for _, f := range folders {
			if f.depth < opts.MaxDepth {
				eligible = append(eligible, f)
			}
		}
		parent := eligible[rng.IntN(len(eligible))]
		title := fmt.Sprintf("Week %02d", i+1)
		segs := append(append([]string{}, parent.segments...), title)
		folders = append(folders, folder{segments: segs, depth: parent.depth + 1})
		records = append(records, Record{
			URL:       synthAddress(layout, segs, true),
			Title:     title,
			Type:      CollectionType,
			Container: synthContainer(parent.segments, opts.EncodeContainers),
		})
	}

	for i := range opts.Files {
		parent := folders[rng.IntN(len(folders))]
		ext := []string{".pdf", ".txt", ".pptx"}[rng.IntN(3)]
		title := fmt.Sprintf("lecture %03d%s", i+1, ext)
		segs := append(append([]string{}, parent.segments...), title)
		records = append(records, Record{
			URL:       synthAddress(layout, segs, false),
			Title:     title,
			Type:      "application/octet-stream",
			Container: synthContainer(parent.segments, opts.EncodeContainers),
			Size:      int64(rng.IntN(1 << 20)),
			Author:    uuid.NewString()[:8],
		})
	}

	if opts.Shuffle {
		rng.Shuffle(len(records), func(i, j int) { records[i], records[j] = records[j], records[i] })
	}
	return records
}

func synthAddress(l Layout, segs []string, dir bool) string {
	escaped := make([]string, len(segs))
	for i, s := range segs {
		escaped[i] = url.PathEscape(s)
	}
	addr := l.AccessRoot() + ContentMarker + "/" + strings.Join(escaped, "/")
	if dir {
		addr += "/"
	}
	return addr
}

func synthContainer(segs []string, encode bool) string {
	parts := segs
	if encode {
		parts = make([]string, len(segs))
		for i, s := range segs {
			parts[i] = url.PathEscape(s)
		}
	}
	return ContentMarker + "/" + strings.Join(parts, "/") + "/"
}
