// Package adminusers is the administrator's user-record editor. It keeps a
// cached copy of the upstream user list and reconciles it after every
// mutation: updates and deletes are applied to the cache optimistically and
// rolled back by a full resync if the upstream rejects them, while status
// changes only land in the cache once the upstream confirms.
package adminusers

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"spiceportal/internal/audit"
	"spiceportal/internal/domain"
	"spiceportal/internal/gateway"
	"spiceportal/internal/platform/metrics"
	"spiceportal/internal/registration/validate"
	dErrors "spiceportal/pkg/domainerrors"
	"spiceportal/pkg/requestcontext"
)

// Gateway is the slice of the upstream client the editor mutates through.
type Gateway interface {
	ListUsers(ctx context.Context) ([]domain.UserRecord, error)
	CreateUser(ctx context.Context, in gateway.CreateUserInput) (domain.UserRecord, error)
	UpdateUser(ctx context.Context, id string, m domain.UserMutation) (domain.UserRecord, error)
	DeleteUser(ctx context.Context, id string) error
	ChangeUserStatus(ctx context.Context, id string, status domain.UserStatus) (domain.UserRecord, error)
}

// Editor owns the cached user list.
type Editor struct {
	mu     sync.RWMutex
	users  []domain.UserRecord
	loaded bool

	gateway Gateway
	rules   validate.FieldRules
	resync  singleflight.Group
	auditor audit.Recorder
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewEditor(gw Gateway, auditor audit.Recorder, logger *slog.Logger, m *metrics.Metrics) *Editor {
	if auditor == nil {
		auditor = audit.Discard{}
	}
	return &Editor{
		gateway: gw,
		rules:   validate.Account(),
		auditor: auditor,
		logger:  logger,
		metrics: m,
	}
}

// Users returns the cached list, fetching it on first use. The snapshot is a
// copy; callers may filter and page it freely.
func (e *Editor) Users(ctx context.Context) ([]domain.UserRecord, error) {
	e.mu.RLock()
	loaded := e.loaded
	e.mu.RUnlock()

	if !loaded {
		return e.Refresh(ctx)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return snapshot(e.users), nil
}

// Refresh replaces the cache with the upstream's current list.
func (e *Editor) Refresh(ctx context.Context) ([]domain.UserRecord, error) {
	users, err := e.gateway.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.users = users
	e.loaded = true
	e.mu.Unlock()
	return snapshot(users), nil
}

// Create registers a new portal account and appends the confirmed record to
// the cache.
func (e *Editor) Create(ctx context.Context, in gateway.CreateUserInput) (domain.UserRecord, error) {
	failures := e.rules.ValidateAll(map[string]string{
		"name":            in.Name,
		"email":           in.Email,
		"password":        in.Password,
		"confirmPassword": in.Password,
	})
	if len(failures) > 0 {
		return domain.UserRecord{}, dErrors.New(dErrors.CodeBadRequest, firstFailure(failures))
	}
	if !in.Role.Valid() {
		return domain.UserRecord{}, dErrors.New(dErrors.CodeBadRequest, "unsupported role")
	}

	created, err := e.gateway.CreateUser(ctx, in)
	if err != nil {
		e.metrics.ObserveAdminMutation("create", "failed")
		return domain.UserRecord{}, err
	}

	e.mu.Lock()
	if e.loaded {
		e.users = append(e.users, created)
	}
	e.mu.Unlock()

	e.metrics.ObserveAdminMutation("create", "confirmed")
	e.record(ctx, "user.create", created.ID, map[string]any{"email": created.Email, "role": created.Role})
	return created, nil
}

// Update applies a partial mutation. The cache is patched before the
// upstream call so the edit is visible immediately; a rejection triggers a
// full resync that restores the server's truth. An empty mutation is refused
// locally without touching the network.
func (e *Editor) Update(ctx context.Context, id string, m domain.UserMutation) error {
	if m.IsEmpty() {
		return dErrors.New(dErrors.CodeBadRequest, "no changes to save")
	}

	e.mu.Lock()
	i := e.index(id)
	if i < 0 {
		e.mu.Unlock()
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	m.ApplyTo(&e.users[i])
	e.mu.Unlock()

	updated, err := e.gateway.UpdateUser(ctx, id, m)
	if err != nil {
		e.metrics.ObserveAdminMutation("update", "failed")
		e.resyncAll(ctx)
		return err
	}

	// The confirmed record replaces the optimistic merge so server-derived
	// fields stay reconciled.
	e.mu.Lock()
	if i := e.index(id); i >= 0 {
		e.users[i] = updated
	}
	e.mu.Unlock()

	e.metrics.ObserveAdminMutation("update", "confirmed")
	e.record(ctx, "user.update", id, mutationDetail(m))
	return nil
}

// Delete removes the record optimistically, resyncing on rejection.
func (e *Editor) Delete(ctx context.Context, id string) error {
	e.mu.Lock()
	i := e.index(id)
	if i < 0 {
		e.mu.Unlock()
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	e.users = append(e.users[:i], e.users[i+1:]...)
	e.mu.Unlock()

	if err := e.gateway.DeleteUser(ctx, id); err != nil {
		e.metrics.ObserveAdminMutation("delete", "failed")
		e.resyncAll(ctx)
		return err
	}

	e.metrics.ObserveAdminMutation("delete", "confirmed")
	e.record(ctx, "user.delete", id, nil)
	return nil
}

// ChangeStatus is deliberately not optimistic: the cache keeps the old
// status until the upstream confirms the transition.
func (e *Editor) ChangeStatus(ctx context.Context, id string, status domain.UserStatus) (domain.UserRecord, error) {
	if !status.Valid() {
		return domain.UserRecord{}, dErrors.New(dErrors.CodeBadRequest, "unsupported status")
	}

	e.mu.RLock()
	i := e.index(id)
	e.mu.RUnlock()
	if i < 0 {
		return domain.UserRecord{}, dErrors.New(dErrors.CodeNotFound, "user not found")
	}

	updated, err := e.gateway.ChangeUserStatus(ctx, id, status)
	if err != nil {
		e.metrics.ObserveAdminMutation("change_status", "failed")
		return domain.UserRecord{}, err
	}

	e.mu.Lock()
	if i = e.index(id); i >= 0 {
		e.users[i] = updated
	}
	e.mu.Unlock()

	e.metrics.ObserveAdminMutation("change_status", "confirmed")
	e.record(ctx, "user.change_status", id, map[string]any{"status": status})
	return updated, nil
}

// resyncAll restores the cache from the upstream after a rejected optimistic
// mutation. Concurrent rejections share one fetch.
func (e *Editor) resyncAll(ctx context.Context) {
	e.metrics.IncrementOptimisticResyncs()
	_, err, _ := e.resync.Do("users", func() (any, error) {
		return e.Refresh(ctx)
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "user list resync failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

// index finds id in the cached list. Callers hold e.mu.
func (e *Editor) index(id string) int {
	for i, u := range e.users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

func (e *Editor) record(ctx context.Context, action, entityID string, detail map[string]any) {
	e.auditor.Record(ctx, audit.NewEventFromContext(ctx, action, entityID, detail))
}

func snapshot(users []domain.UserRecord) []domain.UserRecord {
	out := make([]domain.UserRecord, len(users))
	copy(out, users)
	return out
}

// mutationDetail lists the touched fields without their values, so the audit
// trail never stores credentials or personal data.
func mutationDetail(m domain.UserMutation) map[string]any {
	fields := make([]string, 0, 5)
	if m.Name != nil {
		fields = append(fields, "name")
	}
	if m.Email != nil {
		fields = append(fields, "email")
	}
	if m.Password != nil {
		fields = append(fields, "password")
	}
	if m.Role != nil {
		fields = append(fields, "role")
	}
	if m.Status != nil {
		fields = append(fields, "status")
	}
	return map[string]any{"fields": fields}
}

func firstFailure(failures map[string]string) string {
	for _, field := range []string{"name", "email", "password", "confirmPassword"} {
		if msg, ok := failures[field]; ok {
			return msg
		}
	}
	for _, msg := range failures {
		return msg
	}
	return "invalid input"
}
