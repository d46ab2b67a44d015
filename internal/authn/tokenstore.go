// Package authn signs users in against the upstream backend and manages the
// pair of credentials a session carries: the portal's own JWT, handed to the
// browser, and the upstream bearer token, which stays server-side in a token
// store keyed by session.
package authn

import (
	"context"
	"errors"
	"sync"
	"time"

	dErrors "spiceportal/pkg/domainerrors"
	"spiceportal/pkg/requestcontext"
	"spiceportal/pkg/sentinel"
)

// TokenStore keeps the upstream bearer token per portal session.
type TokenStore interface {
	Save(ctx context.Context, sessionID, upstreamToken string, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (string, error)
	Delete(ctx context.Context, sessionID string) error
}

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// MemoryTokenStore is the in-process fallback when Redis is not configured.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]memoryEntry
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]memoryEntry)}
}

func (s *MemoryTokenStore) Save(_ context.Context, sessionID, upstreamToken string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[sessionID] = memoryEntry{token: upstreamToken, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryTokenStore) Get(_ context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tokens[sessionID]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.tokens, sessionID)
		return "", sentinel.ErrExpired
	}
	return entry.token, nil
}

func (s *MemoryTokenStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, sessionID)
	return nil
}

// SessionTokenSource adapts a TokenStore to the gateway's TokenSource: it
// resolves the calling session from the request context and returns that
// session's upstream token. Sessions signed in through the bootstrap admin
// have no upstream token; those calls go out anonymous and the upstream
// rejects what it must.
type SessionTokenSource struct {
	store TokenStore
}

func NewSessionTokenSource(store TokenStore) *SessionTokenSource {
	return &SessionTokenSource{store: store}
}

func (s *SessionTokenSource) UpstreamToken(ctx context.Context) (string, error) {
	sessionID := requestcontext.SessionID(ctx)
	if sessionID == "" {
		return "", nil
	}
	upstreamToken, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
			return "", nil
		}
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "Failed to load your session. Please try again.")
	}
	return upstreamToken, nil
}
