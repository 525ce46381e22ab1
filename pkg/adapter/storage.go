package adapter

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
)

// Archive is an object being written. Close commits it, Abort discards it.
type Archive interface {
	io.WriteCloser
	Abort() error
}

// Storage is the interface for prompt-run archive destinations
type Storage interface {
	// Put returns an archive stored under key once it is closed
	Put(ctx context.Context, key string) (Archive, error)
	// Location returns a human readable location of key
	Location(key string) string
}

// cloudStorage implements Storage using Cloud Storage
type cloudStorage struct {
	bucketName string
	prefix     string
	client     *storage.Client
}

// NewCloudStorage creates a new Cloud Storage client writing below prefix in bucketName
func NewCloudStorage(ctx context.Context, bucketName, prefix string) (Storage, error) {
	if bucketName == "" {
		return nil, goerr.New("bucket name is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &cloudStorage{
		bucketName: bucketName,
		prefix:     prefix,
		client:     client,
	}, nil
}

func (s *cloudStorage) objectName(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func (s *cloudStorage) Put(ctx context.Context, key string) (Archive, error) {
	ctx, cancel := context.WithCancel(ctx)
	obj := s.client.Bucket(s.bucketName).Object(s.objectName(key))
	writer := obj.NewWriter(ctx)
	writer.ContentType = "application/x-ndjson"
	return &cloudArchive{Writer: writer, cancel: cancel}, nil
}

// cloudArchive uploads through a storage.Writer. Cancelling the writer's
// context stops the upload without creating the object.
type cloudArchive struct {
	*storage.Writer
	cancel context.CancelFunc
}

func (x *cloudArchive) Close() error {
	defer x.cancel()
	return x.Writer.Close()
}

func (x *cloudArchive) Abort() error {
	x.cancel()
	return nil
}

func (s *cloudStorage) Location(key string) string {
	return "gs://" + s.bucketName + "/" + s.objectName(key)
}

// localStorage implements Storage on a local directory
type localStorage struct {
	dir string
}

// NewLocalStorage creates a Storage writing archives into dir
func NewLocalStorage(dir string) (Storage, error) {
	if dir == "" {
		return nil, goerr.New("directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create archive directory", goerr.V("dir", dir))
	}
	return &localStorage{dir: dir}, nil
}

func (s *localStorage) Put(ctx context.Context, key string) (Archive, error) {
	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create archive directory", goerr.V("path", path))
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create archive file", goerr.V("path", path))
	}
	return &localArchive{File: f}, nil
}

type localArchive struct {
	*os.File
}

// Abort closes and removes the partially written file
func (x *localArchive) Abort() error {
	_ = x.File.Close()
	if err := os.Remove(x.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return goerr.Wrap(err, "failed to remove archive file", goerr.V("path", x.Name()))
	}
	return nil
}

func (s *localStorage) Location(key string) string {
	return filepath.Join(s.dir, filepath.FromSlash(key))
}
