package storage

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	obj  Object
	data []byte
}

// MemoryStore keeps blobs in process memory. It backs tests and OBJECT_STORAGE_MODE=memory.
type MemoryStore struct {
	name string
	now  func() time.Time

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemoryStore(name string) *MemoryStore {
	return &MemoryStore{name: name, now: time.Now, entries: map[string]memoryEntry{}}
}

// WithClock overrides the upload time source.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

func (m *MemoryStore) Name() string { return m.name }

func (m *MemoryStore) Head(ctx context.Context, key string) (*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	obj := e.obj
	obj.Metadata = copyMeta(e.obj.Metadata)
	return &obj, nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) (*Object, []byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, nil, ErrNotFound
	}
	obj := e.obj
	obj.Metadata = copyMeta(e.obj.Metadata)
	return &obj, append([]byte(nil), e.data...), nil
}

func (m *MemoryStore) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{
		obj: Object{
			Key:         key,
			ContentType: opts.ContentType,
			Size:        int64(buf.Len()),
			Metadata:    copyMeta(opts.Metadata),
			Uploaded:    m.now(),
		},
		data: buf.Bytes(),
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, prefix string) ([]*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*Object{}
	for key, e := range m.entries {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		obj := e.obj
		obj.Metadata = copyMeta(e.obj.Metadata)
		out = append(out, &obj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
