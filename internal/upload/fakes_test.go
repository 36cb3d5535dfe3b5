package upload

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/filedrop/internal/intake"
	"github.com/dmitrijs2005/filedrop/internal/models"
)

type putCall struct {
	Bucket string
	Key    string
	Body   string
	Size   int64
	Opts   PutOptions
}

// fakeBlobs fails puts for names listed in failPut and records every call.
type fakeBlobs struct {
	mu       sync.Mutex
	failPut  map[string]error
	failRm   error
	puts     []putCall
	removed  []string
	inFlight atomic.Int32
	peak     atomic.Int32
	gate     chan struct{}
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{failPut: map[string]error{}}
}

func (f *fakeBlobs) Put(ctx context.Context, bucket, key string, body io.Reader, size int64, opts PutOptions) error {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, putCall{Bucket: bucket, Key: key, Body: string(data), Size: size, Opts: opts})
	if err, ok := f.failPut[key]; ok {
		return err
	}
	return nil
}

func (f *fakeBlobs) Remove(_ context.Context, _ string, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRm != nil {
		return f.failRm
	}
	f.removed = append(f.removed, keys...)
	return nil
}

func (f *fakeBlobs) Get(context.Context, string, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeBlobs) setFail(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failPut, key)
		return
	}
	f.failPut[key] = err
}

func (f *fakeBlobs) putKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.puts))
	for _, p := range f.puts {
		keys = append(keys, p.Key)
	}
	return keys
}

func (f *fakeBlobs) resetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = nil
	f.removed = nil
}

type fakeMeta struct {
	mu      sync.Mutex
	fail    map[string]error
	records []models.StorageRecord
}

func newFakeMeta() *fakeMeta {
	return &fakeMeta{fail: map[string]error{}}
}

func (f *fakeMeta) Insert(_ context.Context, rec *models.StorageRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.fail[rec.DisplayName]; ok {
		return err
	}
	rec.ID = "id-" + rec.DisplayName
	f.records = append(f.records, *rec)
	return nil
}

func candidates(names ...string) []*intake.CandidateFile {
	out := make([]*intake.CandidateFile, 0, len(names))
	for _, n := range names {
		out = append(out, &intake.CandidateFile{RawFile: intake.BytesFile(n, "text/plain", []byte("content of "+n))})
	}
	return out
}
