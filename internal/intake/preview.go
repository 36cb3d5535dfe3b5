package intake

import (
	"sync"

	"github.com/google/uuid"
)

// PreviewHandle is an opaque reference to a preview resource owned by one
// CandidateFile. It must be released when the file leaves the batch.
type PreviewHandle string

// Previews creates and releases preview handles.
type Previews interface {
	Create(f RawFile) PreviewHandle
	Release(h PreviewHandle)
}

// PreviewRegistry is an in-memory Previews implementation that keeps track of
// live handles so leaks can be detected.
type PreviewRegistry struct {
	mu   sync.Mutex
	live map[PreviewHandle]string
}

func NewPreviewRegistry() *PreviewRegistry {
	return &PreviewRegistry{live: make(map[PreviewHandle]string)}
}

func (r *PreviewRegistry) Create(f RawFile) PreviewHandle {
	h := PreviewHandle("preview:" + uuid.NewString())

	r.mu.Lock()
	r.live[h] = f.Name
	r.mu.Unlock()

	return h
}

// Release is a no-op for unknown or already released handles.
func (r *PreviewRegistry) Release(h PreviewHandle) {
	r.mu.Lock()
	delete(r.live, h)
	r.mu.Unlock()
}

// Live returns the number of handles created and not yet released.
func (r *PreviewRegistry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}
