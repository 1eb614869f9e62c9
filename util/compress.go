package util

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zip"
)

// ZipWriter builds a zip archive in memory.
// AddEntry may be called from many goroutines; calls are serialized.
type ZipWriter struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	w       *zip.Writer
	entries int
	closed  bool
	now     func() time.Time
}

// NewZipWriter returns a ZipWriter with deflate compression.
func NewZipWriter() *ZipWriter {
	z := &ZipWriter{now: time.Now}
	z.w = zip.NewWriter(&z.buf)
	return z
}

// AddEntry appends a file named name with the given contents.
func (z *ZipWriter) AddEntry(name string, data []byte) error {
	name = CleanEntryName(name)
	if name == "" {
		return ErrEmptyName
	}

	z.mu.Lock()
	defer z.mu.Unlock()
	if z.closed {
		return ErrWriterClosed
	}

	writer, err := z.w.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: z.now(),
	})
	if err != nil {
		return err
	}
	if _, err = io.Copy(writer, bytes.NewReader(data)); err != nil {
		return err
	}
	z.entries++
	return nil
}

// Entries returns the number of entries written so far.
func (z *ZipWriter) Entries() int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.entries
}

// Finalize writes the central directory and returns the archive bytes.
// The writer cannot be used afterwards.
func (z *ZipWriter) Finalize() ([]byte, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.closed {
		return nil, ErrWriterClosed
	}
	z.closed = true
	if err := z.w.Close(); err != nil {
		return nil, err
	}
	return bytes.Clone(z.buf.Bytes()), nil
}

// CleanEntryName turns an archive-relative path into a zip entry name:
// forward slashes, no leading slash, no "." or ".." elements.
func CleanEntryName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	parts := strings.Split(name, "/")
	kept := parts[:0]
	for _, p := range parts {
		switch p {
		case "", ".", "..":
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, "/")
}

// ZipEntries lists the entry names of an archive held in memory, in archive order.
func ZipEntries(data []byte) ([]string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names, nil
}

// ReadZipEntry returns the contents of one entry of an in-memory archive.
func ReadZipEntry(data []byte, name string) ([]byte, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	rc, err := r.Open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// ZipFileNames returns the entry names of the zip file at path.
func ZipFileNames(path string) ([]string, error) {
	if filepath.Ext(path) != ".zip" {
		return nil, ErrNotZip
	}
	zrc, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zrc.Close()
	names := make([]string, 0, len(zrc.File))
	for _, v := range zrc.File {
		names = append(names, v.Name)
	}
	return names, nil
}
