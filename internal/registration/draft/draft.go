// Package draft holds the in-progress registration state accumulated across
// form steps, and the session-keyed stores that persist it.
package draft

import (
	"time"

	"spiceportal/internal/domain"
)

// State names the registration step machine's position for a session.
type State string

const (
	StateUnstarted          State = "unstarted"
	StateBasicInfoPending   State = "basic_info_pending"
	StateBasicInfoCommitted State = "basic_info_committed"
	StateRoleSelected       State = "role_selected"
	StateRoleDetailsPending State = "role_details_pending"
	StateComplete           State = "complete"
)

// Draft is one session's in-progress registration.
//
// Fields is append/overwrite-only during a session: a partial update never
// clears keys it does not mention. Reset is the only way to drop data.
type Draft struct {
	SessionID        string                  `json:"sessionId"`
	State            State                   `json:"state"`
	RegistrationType domain.RegistrationType `json:"registrationType,omitempty"`
	Role             domain.BusinessRole     `json:"role,omitempty"`
	SerialParts      domain.SerialParts      `json:"serialParts"`
	Fields           map[string]string       `json:"fields"`

	// UserID is the upstream correlator assigned when basic info commits.
	UserID string `json:"userId,omitempty"`

	// CommitInFlight hard-blocks duplicate submissions of the same step.
	CommitInFlight bool `json:"commitInFlight"`

	// IdempotencyKey is regenerated per commit attempt and echoed to the
	// upstream so retries after a network failure dedupe server-side.
	IdempotencyKey string `json:"idempotencyKey,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewDraft creates the empty draft for a session.
func NewDraft(sessionID string, now time.Time) *Draft {
	return &Draft{
		SessionID: sessionID,
		State:     StateUnstarted,
		Fields:    map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Update is a partial draft mutation. Nil/empty members leave the current
// value untouched; Fields are shallow-merged with last-write-wins per key.
type Update struct {
	RegistrationType domain.RegistrationType `json:"registrationType,omitempty"`
	Role             domain.BusinessRole     `json:"role,omitempty"`
	SerialParts      *domain.SerialParts     `json:"serialParts,omitempty"`
	Fields           map[string]string       `json:"fields,omitempty"`
}

// Merge applies an update. The first merge of an unstarted draft moves it to
// BasicInfoPending; no other state advances here.
func (d *Draft) Merge(u Update, now time.Time) {
	if u.RegistrationType != "" {
		d.RegistrationType = u.RegistrationType
	}
	if u.Role != "" {
		d.Role = u.Role
	}
	if u.SerialParts != nil {
		d.SerialParts = *u.SerialParts
	}
	if d.Fields == nil {
		d.Fields = map[string]string{}
	}
	for k, v := range u.Fields {
		d.Fields[k] = v
	}
	if d.State == StateUnstarted {
		d.State = StateBasicInfoPending
	}
	d.UpdatedAt = now
}

// Reset returns the draft to its initial empty state, keeping the session
// identity.
func (d *Draft) Reset(now time.Time) {
	d.State = StateUnstarted
	d.RegistrationType = ""
	d.Role = ""
	d.SerialParts = domain.SerialParts{}
	d.Fields = map[string]string{}
	d.UserID = ""
	d.CommitInFlight = false
	d.IdempotencyKey = ""
	d.UpdatedAt = now
}

// SerialComplete reports whether the draft carries a usable serial number:
// either the flat serialNumber field or all three parts.
func (d *Draft) SerialComplete() bool {
	return d.Fields["serialNumber"] != "" || d.SerialParts.Complete()
}

// SerialValue resolves the serial number to persist, preferring the flat
// field when present.
func (d *Draft) SerialValue() string {
	if flat := d.Fields["serialNumber"]; flat != "" {
		return flat
	}
	if d.SerialParts.Complete() {
		return d.SerialParts.String()
	}
	return ""
}

// Clone deep-copies the draft so stores can hand out snapshots safely.
func (d *Draft) Clone() *Draft {
	cp := *d
	cp.Fields = make(map[string]string, len(d.Fields))
	for k, v := range d.Fields {
		cp.Fields[k] = v
	}
	return &cp
}
