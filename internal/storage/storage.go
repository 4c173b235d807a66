package storage

import (
	"context"
	"io"
)

// ObjectStore is the attachment storage surface the upload handler depends
// on. Upload returns the public URL of the stored object.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}
