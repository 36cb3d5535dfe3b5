// Package sessions keeps the upload sessions of connected clients in a
// bounded LRU cache.
package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/logging"
	"github.com/dmitrijs2005/filedrop/internal/upload"
)

// Entry is a session together with its owner and the project it writes to.
type Entry struct {
	ID        string
	UserID    string
	ProjectID string
	CreatedAt time.Time
	Session   *upload.Session
}

// Store maps session ids to entries. Evicted or deleted sessions are closed,
// which releases their previews.
type Store struct {
	cache  *lru.Cache[string, *Entry]
	logger logging.Logger
}

func NewStore(size int, logger logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Store{logger: logger.With("module", "sessions")}

	cache, err := lru.NewWithEvict(size, s.onEvict)
	if err != nil {
		return nil, fmt.Errorf("session cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

func (s *Store) onEvict(id string, e *Entry) {
	e.Session.Close()
	s.logger.Debug(context.Background(), "session closed", "session", id, "user", e.UserID)
}

// Add registers sess for userID and returns the new entry.
func (s *Store) Add(userID, projectID string, sess *upload.Session) *Entry {
	e := &Entry{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProjectID: projectID,
		CreatedAt: time.Now(),
		Session:   sess,
	}
	s.cache.Add(e.ID, e)
	return e
}

// Get returns the session id of userID. Sessions of other users are
// reported as common.ErrorForbidden.
func (s *Store) Get(userID, id string) (*Entry, error) {
	e, ok := s.cache.Get(id)
	if !ok {
		return nil, common.ErrorNotFound
	}
	if e.UserID != userID {
		return nil, common.ErrorForbidden
	}
	return e, nil
}

// Delete closes and forgets the session.
func (s *Store) Delete(userID, id string) error {
	if _, err := s.Get(userID, id); err != nil {
		return err
	}
	s.cache.Remove(id)
	return nil
}

func (s *Store) Len() int { return s.cache.Len() }

// Close closes every session.
func (s *Store) Close() { s.cache.Purge() }
