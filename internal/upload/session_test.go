package upload

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/intake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func txt(name string) intake.RawFile {
	return intake.BytesFile(name, "text/plain", []byte(name))
}

func newTestSession(t *testing.T, blobs *fakeBlobs, constraints intake.Constraints) (*Session, *intake.PreviewRegistry) {
	t.Helper()
	c, _ := newTestCoordinator(t, Options{}, blobs, nil)
	previews := intake.NewPreviewRegistry()
	return NewSession(c, constraints, previews), previews
}

func TestSession_RetryFlow(t *testing.T) {
	blobs := newFakeBlobs()
	blobs.setFail("a.txt", errors.New("boom"))
	s, _ := newTestSession(t, blobs, intake.Constraints{MaxFiles: 5})
	ctx := context.Background()

	n, err := s.Add([]intake.RawFile{txt("a.txt"), txt("b.txt")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.Upload(ctx)
	require.NoError(t, err)

	v := s.Snapshot()
	assert.False(t, v.IsSuccess)
	assert.Equal(t, "failed", v.Files[0].Status)
	assert.Equal(t, "boom", v.Files[0].Err)
	assert.Equal(t, "succeeded", v.Files[1].Status)

	blobs.setFail("a.txt", nil)
	blobs.resetCalls()

	_, err = s.Upload(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, blobs.putKeys())
	assert.True(t, s.IsSuccess())

	_, err = s.Add([]intake.RawFile{txt("c.txt")})
	require.NoError(t, err)
	assert.False(t, s.IsSuccess(), "recomputed after the batch grew")
}

func TestSession_DuplicateAdd(t *testing.T) {
	s, previews := newTestSession(t, newFakeBlobs(), intake.Constraints{MaxFiles: 5})

	_, err := s.Add([]intake.RawFile{txt("a.txt")})
	require.NoError(t, err)
	n, err := s.Add([]intake.RawFile{txt("a.txt")})
	require.NoError(t, err)

	assert.Equal(t, 0, n)
	assert.Len(t, s.Snapshot().Files, 1)
	assert.Equal(t, 1, previews.Live())
}

func TestSession_CountConstraintReconciledOnRemove(t *testing.T) {
	s, _ := newTestSession(t, newFakeBlobs(), intake.Constraints{MaxFiles: 1})

	_, err := s.Add([]intake.RawFile{txt("a.txt"), txt("b.txt")})
	require.NoError(t, err)

	v := s.Snapshot()
	require.Len(t, v.Files, 2)
	for _, f := range v.Files {
		require.Len(t, f.Violations, 1)
		assert.Equal(t, intake.CodeTooManyFiles, f.Violations[0].Code)
	}

	_, err = s.Upload(context.Background())
	assert.ErrorIs(t, err, ErrBatchHasViolations)

	require.NoError(t, s.Remove("b.txt"))
	v = s.Snapshot()
	require.Len(t, v.Files, 1)
	assert.Empty(t, v.Files[0].Violations)

	_, err = s.Upload(context.Background())
	assert.NoError(t, err)
	assert.True(t, s.IsSuccess())
}

func TestSession_RejectedDuplicateReconciles(t *testing.T) {
	blobs := newFakeBlobs()
	s, _ := newTestSession(t, blobs, intake.Constraints{MaxFiles: 2})

	_, err := s.Add([]intake.RawFile{txt("a.txt")})
	require.NoError(t, err)
	_, err = s.Add([]intake.RawFile{txt("a.txt"), txt("b.txt"), txt("c.txt")})
	require.NoError(t, err)
	assert.Len(t, s.Snapshot().Files, 3, "rejected a.txt is not added twice")

	require.NoError(t, s.Remove("b.txt"))
	require.NoError(t, s.Remove("c.txt"))

	v := s.Snapshot()
	require.Len(t, v.Files, 1)
	assert.Equal(t, "a.txt", v.Files[0].Name)
	assert.Empty(t, v.Files[0].Violations)

	_, err = s.Upload(context.Background())
	require.NoError(t, err)
	assert.True(t, s.IsSuccess())
	assert.Equal(t, []string{"a.txt"}, blobs.putKeys())
}

func TestSession_EmptyBatch(t *testing.T) {
	s, _ := newTestSession(t, newFakeBlobs(), intake.Constraints{})
	_, err := s.Upload(context.Background())
	assert.ErrorIs(t, err, ErrEmptyBatch)
	assert.False(t, s.IsSuccess())
	assert.ErrorIs(t, s.Remove("x"), ErrFileNotFound)
}

func TestSession_RemovePrunesState(t *testing.T) {
	blobs := newFakeBlobs()
	blobs.setFail("a.txt", errors.New("boom"))
	s, _ := newTestSession(t, blobs, intake.Constraints{MaxFiles: 5})

	_, err := s.Add([]intake.RawFile{txt("a.txt"), txt("b.txt")})
	require.NoError(t, err)
	_, err = s.Upload(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Remove("a.txt"))
	v := s.Snapshot()
	assert.Empty(t, v.Errors)
	assert.True(t, v.IsSuccess)
}

func TestSession_MutationsRefusedWhileInFlight(t *testing.T) {
	blobs := newFakeBlobs()
	blobs.gate = make(chan struct{})
	s, previews := newTestSession(t, blobs, intake.Constraints{MaxFiles: 5})

	_, err := s.Add([]intake.RawFile{txt("a.txt")})
	require.NoError(t, err)

	started := make(chan struct{})
	var once sync.Once
	s.OnChange = func(v View) {
		if v.InFlight {
			once.Do(func() { close(started) })
		}
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Upload(context.Background())
		done <- err
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("upload never started")
	}

	_, err = s.Add([]intake.RawFile{txt("b.txt")})
	assert.ErrorIs(t, err, ErrUploadInProgress)
	assert.ErrorIs(t, s.Remove("a.txt"), ErrUploadInProgress)
	assert.ErrorIs(t, s.Reset(), ErrUploadInProgress)
	_, err = s.Upload(context.Background())
	assert.ErrorIs(t, err, ErrUploadInProgress)
	assert.True(t, s.Snapshot().InFlight)

	blobs.gate <- struct{}{}
	require.NoError(t, <-done)

	assert.False(t, s.Snapshot().InFlight)
	require.NoError(t, s.Reset())
	assert.Equal(t, 0, previews.Live())
	assert.False(t, s.IsSuccess())
}

func TestSession_OnChangeSeesEveryTransition(t *testing.T) {
	s, _ := newTestSession(t, newFakeBlobs(), intake.Constraints{MaxFiles: 5})

	var views []View
	s.OnChange = func(v View) { views = append(views, v) }

	_, err := s.Add([]intake.RawFile{txt("a.txt")})
	require.NoError(t, err)
	_, err = s.Upload(context.Background())
	require.NoError(t, err)

	require.Len(t, views, 3)
	assert.False(t, views[0].InFlight)
	assert.True(t, views[1].InFlight)
	assert.False(t, views[2].InFlight)
	assert.True(t, views[2].IsSuccess)
}

func TestSession_CloseDuringUpload(t *testing.T) {
	blobs := newFakeBlobs()
	blobs.gate = make(chan struct{})
	s, previews := newTestSession(t, blobs, intake.Constraints{MaxFiles: 5})

	_, err := s.Add([]intake.RawFile{txt("a.txt")})
	require.NoError(t, err)

	started := make(chan struct{})
	var once sync.Once
	s.OnChange = func(v View) {
		if v.InFlight {
			once.Do(func() { close(started) })
		}
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Upload(context.Background())
		done <- err
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("upload never started")
	}

	s.Close()
	assert.Equal(t, 0, previews.Live())

	blobs.gate <- struct{}{}
	assert.ErrorIs(t, <-done, ErrSessionClosed)

	v := s.Snapshot()
	assert.Empty(t, v.Files)
	assert.Empty(t, v.Successes)
	assert.False(t, v.InFlight)
	assert.False(t, s.IsSuccess())

	_, err = s.Add([]intake.RawFile{txt("b.txt")})
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, s.Remove("a.txt"), ErrSessionClosed)
	assert.ErrorIs(t, s.Reset(), ErrSessionClosed)
	_, err = s.Upload(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
}
