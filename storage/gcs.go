package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSStore is a Store backed by one Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
}

func NewGCSStore(client *storage.Client, bucket string) *GCSStore {
	return &GCSStore{client: client, bucket: bucket}
}

func (g *GCSStore) Name() string { return g.bucket }

func (g *GCSStore) object(key string) *storage.ObjectHandle {
	return g.client.Bucket(g.bucket).Object(key)
}

func (g *GCSStore) Head(ctx context.Context, key string) (*Object, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	attrs, err := g.object(key).Attrs(ctx)
	if err != nil {
		return nil, g.wrap("head", key, err)
	}
	return objectFromAttrs(attrs), nil
}

func (g *GCSStore) Get(ctx context.Context, key string) (*Object, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	attrs, err := g.object(key).Attrs(ctx)
	if err != nil {
		return nil, nil, g.wrap("head", key, err)
	}
	// Pin the generation so payload and metadata describe the same write.
	r, err := g.object(key).Generation(attrs.Generation).NewReader(ctx)
	if err != nil {
		return nil, nil, g.wrap("open", key, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, g.wrap("read", key, err)
	}
	return objectFromAttrs(attrs), data, nil
}

func (g *GCSStore) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	// Cancelling the writer's context aborts the upload; Close alone would
	// finalize whatever was copied so far.
	wctx, abort := context.WithCancel(ctx)
	defer abort()
	w := g.object(key).NewWriter(wctx)
	w.ContentType = opts.ContentType
	w.Metadata = copyMeta(opts.Metadata)
	if _, err := io.Copy(w, body); err != nil {
		abort()
		_ = w.Close()
		return g.wrap("write", key, err)
	}
	if err := w.Close(); err != nil {
		return g.wrap("close writer", key, err)
	}
	return nil
}

func (g *GCSStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := g.object(key).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return g.wrap("delete", key, err)
	}
	return nil
}

func (g *GCSStore) List(ctx context.Context, prefix string) ([]*Object, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	out := []*Object{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list bucket %q: %w", g.bucket, err)
		}
		out = append(out, objectFromAttrs(attrs))
	}
	return out, nil
}

func (g *GCSStore) wrap(op, key string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrNotFound
	}
	return fmt.Errorf("%s gcs object %q in bucket %q: %w", op, key, g.bucket, err)
}

func objectFromAttrs(attrs *storage.ObjectAttrs) *Object {
	return &Object{
		Key:         attrs.Name,
		ContentType: attrs.ContentType,
		Size:        attrs.Size,
		Metadata:    copyMeta(attrs.Metadata),
		Uploaded:    attrs.Created,
	}
}
