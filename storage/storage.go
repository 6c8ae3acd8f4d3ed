package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when a key does not exist in a bucket.
var ErrNotFound = errors.New("storage: object not found")

// Object describes a stored blob without its payload.
type Object struct {
	Key         string
	ContentType string
	Size        int64
	Metadata    map[string]string
	// Uploaded is assigned by the store when the object is written.
	Uploaded time.Time
}

// PutOptions carries the HTTP and custom metadata written with a blob.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Store is a flat key/value blob bucket.
type Store interface {
	Name() string
	Head(ctx context.Context, key string) (*Object, error)
	Get(ctx context.Context, key string) (*Object, []byte, error)
	Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]*Object, error)
}

// Buckets groups the stores the service works with.
type Buckets struct {
	Pending Store
	Pillows Store
	Photos  Store
}

func copyMeta(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
