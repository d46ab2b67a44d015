package draft

import (
	"context"
	"sync"

	"spiceportal/pkg/requestcontext"
	"spiceportal/pkg/sentinel"
)

// Store persists drafts keyed by session ID.
//
// Execute is the only mutation path: it loads (or creates) the session's
// draft, runs fn under the store's lock, and persists the result unless fn
// errors. Services use it for atomic check-then-mutate sequences such as the
// commit in-flight guard.
type Store interface {
	Find(ctx context.Context, sessionID string) (*Draft, error)
	Execute(ctx context.Context, sessionID string, fn func(d *Draft) error) (*Draft, error)
	Delete(ctx context.Context, sessionID string) error
}

// InMemory keeps drafts in a mutex-guarded map. It favors clarity over
// performance and is the default when redis is not configured.
type InMemory struct {
	mu     sync.Mutex
	drafts map[string]*Draft
}

func NewInMemory() *InMemory {
	return &InMemory{drafts: make(map[string]*Draft)}
}

func (s *InMemory) Find(_ context.Context, sessionID string) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return d.Clone(), nil
}

func (s *InMemory) Execute(ctx context.Context, sessionID string, fn func(d *Draft) error) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[sessionID]
	if !ok {
		d = NewDraft(sessionID, requestcontext.Now(ctx))
	}
	working := d.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	s.drafts[sessionID] = working
	return working.Clone(), nil
}

func (s *InMemory) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, sessionID)
	return nil
}
