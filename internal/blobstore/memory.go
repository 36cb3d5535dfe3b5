package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/upload"
)

var _ upload.BlobStore = (*MemoryStore)(nil)

// Object is a blob held by MemoryStore.
type Object struct {
	Data         []byte
	ContentType  string
	CacheControl string
}

// MemoryStore keeps blobs in process memory with the same overwrite rules
// as S3Store.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string]Object
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]map[string]Object)}
}

func (m *MemoryStore) Put(ctx context.Context, bucket, key string, body io.Reader, _ int64, opts upload.PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	cacheControl := opts.CacheControlSeconds
	if cacheControl <= 0 {
		cacheControl = upload.DefaultCacheControlSeconds
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	objects, ok := m.buckets[bucket]
	if !ok {
		objects = make(map[string]Object)
		m.buckets[bucket] = objects
	}
	if _, exists := objects[key]; exists && !opts.Upsert {
		return fmt.Errorf("%w: %s", common.ErrAlreadyExists, "the resource already exists")
	}

	objects[key] = Object{
		Data:         data,
		ContentType:  opts.ContentType,
		CacheControl: fmt.Sprintf("max-age=%d", cacheControl),
	}
	return nil
}

func (m *MemoryStore) Remove(ctx context.Context, bucket string, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.buckets[bucket], k)
	}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, ok := m.Stat(bucket, key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrorNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(obj.Data)), ctx.Err()
}

// Stat returns the stored object without copying its data.
func (m *MemoryStore) Stat(bucket, key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.buckets[bucket][key]
	return obj, ok
}

// Keys lists the keys of bucket in lexical order.
func (m *MemoryStore) Keys(bucket string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.buckets[bucket]))
	for k := range m.buckets[bucket] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
