package download

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ZipContentType is the media type of every archive.
const ZipContentType = "application/zip"

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, data []byte, filename string) error

// Save calls f.
func (f SinkFunc) Save(ctx context.Context, data []byte, filename string) error {
	return f(ctx, data, filename)
}

// SafeFilename reduces a filename to a single path element. Separators in
// folder titles become underscores.
func SafeFilename(name string) (string, error) {
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(strings.TrimSpace(name))
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrBadFilename, name)
	}
	return name, nil
}

// FileSink writes archives into a directory. Files appear atomically: the
// data goes to a temporary file that is renamed into place. A FileSink may be
// shared by concurrent runs.
type FileSink struct {
	Dir string
}

func (s *FileSink) dir() string {
	if s.Dir == "" {
		return "."
	}
	return s.Dir
}

// Path returns where Save stores an archive named filename.
func (s *FileSink) Path(filename string) (string, error) {
	name, err := SafeFilename(filename)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir(), name), nil
}

// Save writes data to Dir/filename.
func (s *FileSink) Save(_ context.Context, data []byte, filename string) error {
	name, err := SafeFilename(filename)
	if err != nil {
		return err
	}
	dir := s.dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}

	final := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), final); err != nil {
		return fmt.Errorf("failed to move archive into place: %w", err)
	}
	return nil
}

// ObjectPutter is the part of the MinIO client used by MinioSink.
type ObjectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinioConfig locates an S3-compatible bucket.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Secure    bool
}

// MinioSink uploads archives to an S3-compatible bucket.
type MinioSink struct {
	Client ObjectPutter
	Bucket string
	Prefix string
}

// NewMinioSink connects to the endpoint in cfg.
func NewMinioSink(cfg MinioConfig) (*MinioSink, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &MinioSink{Client: client, Bucket: cfg.Bucket, Prefix: cfg.Prefix}, nil
}

// ObjectName returns the key an archive is stored under.
func (s *MinioSink) ObjectName(filename string) (string, error) {
	name, err := SafeFilename(filename)
	if err != nil {
		return "", err
	}
	prefix := strings.Trim(s.Prefix, "/")
	if prefix == "" {
		return name, nil
	}
	return prefix + "/" + name, nil
}

// Save uploads data as Prefix/filename.
func (s *MinioSink) Save(ctx context.Context, data []byte, filename string) error {
	object, err := s.ObjectName(filename)
	if err != nil {
		return err
	}
	_, err = s.Client.PutObject(ctx, s.Bucket, object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: ZipContentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s/%s: %w", s.Bucket, object, err)
	}
	return nil
}
