package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
)

func TestCleanEntryName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "A/f.txt", "A/f.txt"},
		{"leading slash", "/A/f.txt", "A/f.txt"},
		{"dot dot dropped", "A/../../etc/passwd", "A/etc/passwd"},
		{"backslashes", `A\B\c.txt`, "A/B/c.txt"},
		{"double slash", "A//f.txt", "A/f.txt"},
		{"only dots", "./..", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanEntryName(tt.input); got != tt.expected {
				t.Errorf("CleanEntryName(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestZipWriter_RoundTrip(t *testing.T) {
	z := NewZipWriter()
	if err := z.AddEntry("A/f.txt", []byte("hello")); err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}
	if err := z.AddEntry("A/B/g.txt", []byte("world")); err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}

	data, err := z.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	names, err := ZipEntries(data)
	if err != nil {
		t.Fatalf("ZipEntries failed: %v", err)
	}
	if len(names) != 2 || names[0] != "A/f.txt" || names[1] != "A/B/g.txt" {
		t.Errorf("unexpected entries %v", names)
	}

	content, err := ReadZipEntry(data, "A/B/g.txt")
	if err != nil {
		t.Fatalf("ReadZipEntry failed: %v", err)
	}
	if string(content) != "world" {
		t.Errorf("entry content = %q, expected %q", content, "world")
	}
}

func TestZipWriter_EmptyArchive(t *testing.T) {
	data, err := NewZipWriter().Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	names, err := ZipEntries(data)
	if err != nil {
		t.Fatalf("empty archive is not readable: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected no entries, got %v", names)
	}
}

func TestZipWriter_Errors(t *testing.T) {
	z := NewZipWriter()
	if err := z.AddEntry("..", []byte("x")); !errors.Is(err, ErrEmptyName) {
		t.Errorf("AddEntry with empty name: got %v, expected ErrEmptyName", err)
	}
	if _, err := z.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if err := z.AddEntry("late.txt", []byte("x")); !errors.Is(err, ErrWriterClosed) {
		t.Errorf("AddEntry after Finalize: got %v, expected ErrWriterClosed", err)
	}
	if _, err := z.Finalize(); !errors.Is(err, ErrWriterClosed) {
		t.Errorf("second Finalize: got %v, expected ErrWriterClosed", err)
	}
}

func TestZipWriter_ConcurrentAdd(t *testing.T) {
	z := NewZipWriter()
	const n = 64

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- z.AddEntry(fmt.Sprintf("dir/file-%02d.txt", i), []byte(fmt.Sprintf("payload %d", i)))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent AddEntry failed: %v", err)
		}
	}

	if z.Entries() != n {
		t.Errorf("Entries() = %d, expected %d", z.Entries(), n)
	}
	data, err := z.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	names, err := ZipEntries(data)
	if err != nil {
		t.Fatalf("ZipEntries failed: %v", err)
	}
	sort.Strings(names)
	for i, name := range names {
		expected := fmt.Sprintf("dir/file-%02d.txt", i)
		if name != expected {
			t.Fatalf("entry %d = %q, expected %q", i, name, expected)
		}
	}
}

func TestZipFileHelpers(t *testing.T) {
	dir := t.TempDir()

	z := NewZipWriter()
	z.AddEntry("a.txt", []byte("a"))
	z.AddEntry("sub/b.txt", []byte("b"))
	data, err := z.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	archivePath := filepath.Join(dir, "bundle.zip")
	if err := os.WriteFile(archivePath, data, 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	names, err := ZipFileNames(archivePath)
	if err != nil {
		t.Fatalf("ZipFileNames failed: %v", err)
	}
	if len(names) != 2 || names[0] != "a.txt" || names[1] != "sub/b.txt" {
		t.Errorf("ZipFileNames = %v, expected [a.txt sub/b.txt]", names)
	}

	if _, err := ZipFileNames(filepath.Join(dir, "bundle.tar")); !errors.Is(err, ErrNotZip) {
		t.Errorf("ZipFileNames on .tar: got %v, expected ErrNotZip", err)
	}
}
