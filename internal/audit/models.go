// Package audit records who changed what through the portal. Events are
// captured in-process, drained by a worker, persisted to a store and
// optionally mirrored to a Kafka topic for downstream consumers.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"spiceportal/pkg/requestcontext"
)

// Device is the client device behind a recorded mutation, as parsed from the
// User-Agent header by the device middleware.
type Device struct {
	Browser string `json:"browser,omitempty"`
	OS      string `json:"os,omitempty"`
	Mobile  bool   `json:"mobile,omitempty"`
}

// Event is one recorded mutation.
type Event struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	ActorID    string         `json:"actorId"`
	ActorRole  string         `json:"actorRole"`
	EntityID   string         `json:"entityId,omitempty"`
	Detail     map[string]any `json:"detail,omitempty"`
	RequestID  string         `json:"requestId,omitempty"`
	ClientIP   string         `json:"clientIp,omitempty"`
	Device     Device         `json:"device,omitzero"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// NewEvent stamps identity and time onto a raw event.
func NewEvent(action, actorID, actorRole, entityID string, detail map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Action:     action,
		ActorID:    actorID,
		ActorRole:  actorRole,
		EntityID:   entityID,
		Detail:     detail,
		OccurredAt: time.Now().UTC(),
	}
}

// NewEventFromContext builds an event carrying everything the request context
// knows about the actor: identity, correlation ID, client IP and device.
func NewEventFromContext(ctx context.Context, action, entityID string, detail map[string]any) Event {
	e := NewEvent(action, requestcontext.UserID(ctx), requestcontext.UserRole(ctx), entityID, detail)
	e.RequestID = requestcontext.RequestID(ctx)
	e.ClientIP = requestcontext.ClientIP(ctx)
	d := requestcontext.DeviceInfo(ctx)
	e.Device = Device{Browser: d.Browser, OS: d.OS, Mobile: d.Mobile}
	return e
}

// Store persists drained events.
type Store interface {
	Insert(ctx context.Context, e Event) error
}
