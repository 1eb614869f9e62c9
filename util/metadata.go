package util

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pandatools/panda-bundle/version"
)

// Report summarizes one download run.
type Report struct {
	RequestID    string    `json:"request_id"`
	Version      string    `json:"version"`
	Site         string    `json:"site,omitempty"`
	Scope        string    `json:"scope"`
	Filename     string    `json:"filename"`
	Outcome      string    `json:"outcome"`
	Requested    int       `json:"requested"`
	Fetched      int       `json:"fetched"`
	Failed       int       `json:"failed"`
	ArchiveBytes int       `json:"archive_bytes"`
	PayloadBytes int64     `json:"payload_bytes"`
	FailedURLs   []string  `json:"failed_urls,omitempty"`
	Started      time.Time `json:"started"`
	Finished     time.Time `json:"finished"`
}

// NewReport returns a report stamped with the running version.
func NewReport(requestID string, started time.Time) Report {
	return Report{
		RequestID: requestID,
		Version:   version.GetVersion(),
		Started:   started,
	}
}

// Duration returns how long the run took.
func (r Report) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Save writes the report as JSON. If path is a directory, the report is
// written to report.json inside it.
func (r Report) Save(path string) error {
	if !strings.HasSuffix(path, ".json") {
		path = filepath.Join(path, "report.json")
	}
	return WriteJSONFile(path, r)
}

// WriteJSONFile encodes v as indented JSON into path. The file is replaced
// atomically; on error the previous contents are left untouched.
func WriteJSONFile(path string, v any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	je := json.NewEncoder(tmp)
	je.SetIndent("", "  ")
	if err := je.Encode(v); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadJSONFile decodes the JSON file at path into v.
func ReadJSONFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(v)
}
