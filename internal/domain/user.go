package domain

// UserRole is the portal-level role of an account.
type UserRole string

const (
	RoleAdministrator UserRole = "Administrator"
	RoleUser          UserRole = "User"
)

func (r UserRole) Valid() bool {
	return r == RoleAdministrator || r == RoleUser
}

// UserStatus is the lifecycle state of an account. Role and status are
// server-authoritative; the admin editor may mutate them optimistically
// pending confirmation.
type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusInactive UserStatus = "inactive"
	StatusPending  UserStatus = "pending"
)

func (s UserStatus) Valid() bool {
	return s == StatusActive || s == StatusInactive || s == StatusPending
}

// UserRecord is a persisted account as served by the upstream backend.
// Password is write-only: it appears in create/update payloads and is never
// round-tripped back into the cached list.
type UserRecord struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Email  string     `json:"email"`
	Role   UserRole   `json:"role"`
	Status UserStatus `json:"status"`
}

// UserMutation is a partial-field update for a user record. Nil fields are
// left untouched by the upstream.
type UserMutation struct {
	Name     *string     `json:"name,omitempty"`
	Email    *string     `json:"email,omitempty"`
	Password *string     `json:"password,omitempty"`
	Role     *UserRole   `json:"role,omitempty"`
	Status   *UserStatus `json:"status,omitempty"`
}

// IsEmpty reports whether the mutation changes nothing.
func (m UserMutation) IsEmpty() bool {
	return m.Name == nil && m.Email == nil && m.Password == nil && m.Role == nil && m.Status == nil
}

// ApplyTo merges the mutation into a cached record. Password is deliberately
// skipped: the cache never holds credentials.
func (m UserMutation) ApplyTo(u *UserRecord) {
	if m.Name != nil {
		u.Name = *m.Name
	}
	if m.Email != nil {
		u.Email = *m.Email
	}
	if m.Role != nil {
		u.Role = *m.Role
	}
	if m.Status != nil {
		u.Status = *m.Status
	}
}
