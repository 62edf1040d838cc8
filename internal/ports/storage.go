package ports

import (
	"context"
	"io"
)

type PutObjectInput struct {
	ObjectKey   string
	ContentType string
	Reader      io.Reader
	Size        int64
}

type PutObjectOutput struct {
	ObjectKey string
	Size      int64
}

// StorageProvider is where rendered clips end up (localfs, gdrive).
// Object keys are slash separated and stable: a key written by PutObject
// must be readable through GetObject with the same key.
type StorageProvider interface {
	Provider() string

	PutObject(ctx context.Context, in PutObjectInput) (PutObjectOutput, error)
	GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error)
	DeleteObject(ctx context.Context, objectKey string) error
}

// LocalPather is implemented by providers whose objects live on the local
// filesystem. The encoder can then write straight into the final location.
type LocalPather interface {
	LocalPath(objectKey string) (string, error)
}
