package adminusers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"spiceportal/internal/audit"
	"spiceportal/internal/domain"
	"spiceportal/internal/gateway"
	"spiceportal/internal/platform/logger"
	dErrors "spiceportal/pkg/domainerrors"
	"spiceportal/pkg/requestcontext"
)

type capturingRecorder struct {
	events []audit.Event
}

func (r *capturingRecorder) Record(_ context.Context, e audit.Event) {
	r.events = append(r.events, e)
}

type fakeUserGateway struct {
	serverUsers []domain.UserRecord
	listCalls   int
	updateCalls int
	deleteCalls int
	statusCalls int

	createErr error
	updateErr error
	deleteErr error
	statusErr error

	// updateSideEffect simulates a server-derived change riding the update
	// confirmation, e.g. an email change demoting the account to pending.
	updateSideEffect domain.UserStatus
}

func (f *fakeUserGateway) ListUsers(context.Context) ([]domain.UserRecord, error) {
	f.listCalls++
	out := make([]domain.UserRecord, len(f.serverUsers))
	copy(out, f.serverUsers)
	return out, nil
}

func (f *fakeUserGateway) CreateUser(_ context.Context, in gateway.CreateUserInput) (domain.UserRecord, error) {
	if f.createErr != nil {
		return domain.UserRecord{}, f.createErr
	}
	created := domain.UserRecord{ID: "u-new", Name: in.Name, Email: in.Email, Role: in.Role, Status: domain.StatusPending}
	f.serverUsers = append(f.serverUsers, created)
	return created, nil
}

func (f *fakeUserGateway) UpdateUser(_ context.Context, id string, m domain.UserMutation) (domain.UserRecord, error) {
	f.updateCalls++
	if f.updateErr != nil {
		return domain.UserRecord{}, f.updateErr
	}
	for i := range f.serverUsers {
		if f.serverUsers[i].ID == id {
			m.ApplyTo(&f.serverUsers[i])
			if f.updateSideEffect != "" {
				f.serverUsers[i].Status = f.updateSideEffect
			}
			return f.serverUsers[i], nil
		}
	}
	return domain.UserRecord{}, dErrors.New(dErrors.CodeNotFound, "user not found")
}

func (f *fakeUserGateway) DeleteUser(_ context.Context, id string) error {
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.serverUsers {
		if f.serverUsers[i].ID == id {
			f.serverUsers = append(f.serverUsers[:i], f.serverUsers[i+1:]...)
			return nil
		}
	}
	return dErrors.New(dErrors.CodeNotFound, "user not found")
}

func (f *fakeUserGateway) ChangeUserStatus(_ context.Context, id string, status domain.UserStatus) (domain.UserRecord, error) {
	f.statusCalls++
	if f.statusErr != nil {
		return domain.UserRecord{}, f.statusErr
	}
	for i := range f.serverUsers {
		if f.serverUsers[i].ID == id {
			f.serverUsers[i].Status = status
			return f.serverUsers[i], nil
		}
	}
	return domain.UserRecord{}, dErrors.New(dErrors.CodeNotFound, "user not found")
}

type EditorSuite struct {
	suite.Suite
	gateway *fakeUserGateway
	editor  *Editor
	ctx     context.Context
}

func TestEditorSuite(t *testing.T) {
	suite.Run(t, new(EditorSuite))
}

func (s *EditorSuite) SetupTest() {
	s.gateway = &fakeUserGateway{
		serverUsers: []domain.UserRecord{
			{ID: "u1", Name: "Nimal Perera", Email: "nimal@spice.lk", Role: domain.RoleUser, Status: domain.StatusActive},
			{ID: "u2", Name: "Kamala Silva", Email: "kamala@spice.lk", Role: domain.RoleAdministrator, Status: domain.StatusActive},
			{ID: "u3", Name: "Sunil Fernando", Email: "sunil@spice.lk", Role: domain.RoleUser, Status: domain.StatusPending},
		},
	}
	s.editor = NewEditor(s.gateway, nil, logger.New(), nil)
	s.ctx = context.Background()
}

func (s *EditorSuite) TestUsersCaching() {
	users, err := s.editor.Users(s.ctx)
	s.Require().NoError(err)
	s.Len(users, 3)
	s.Equal(1, s.gateway.listCalls)

	_, err = s.editor.Users(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, s.gateway.listCalls, "second read served from cache")

	s.Run("snapshot is detached from the cache", func() {
		users[0].Name = "Mutated"
		fresh, err := s.editor.Users(s.ctx)
		s.Require().NoError(err)
		s.Equal("Nimal Perera", fresh[0].Name)
	})
}

func (s *EditorSuite) TestCreate() {
	_, err := s.editor.Users(s.ctx)
	s.Require().NoError(err)

	s.Run("rejects weak input locally", func() {
		_, err := s.editor.Create(s.ctx, gateway.CreateUserInput{
			Name:     "New User",
			Email:    "not-an-email",
			Password: "Spices123",
			Role:     domain.RoleUser,
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("appends the confirmed record", func() {
		created, err := s.editor.Create(s.ctx, gateway.CreateUserInput{
			Name:     "New User",
			Email:    "new@spice.lk",
			Password: "Spices123",
			Role:     domain.RoleUser,
		})
		s.Require().NoError(err)
		s.Equal("u-new", created.ID)

		users, err := s.editor.Users(s.ctx)
		s.Require().NoError(err)
		s.Len(users, 4)
		s.Equal(1, s.gateway.listCalls, "no relist after create")
	})
}

func (s *EditorSuite) TestUpdate() {
	_, err := s.editor.Users(s.ctx)
	s.Require().NoError(err)
	name := "Renamed"

	s.Run("empty mutation is refused without a network call", func() {
		err := s.editor.Update(s.ctx, "u1", domain.UserMutation{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
		s.Zero(s.gateway.updateCalls)
	})

	s.Run("unknown id is refused without a network call", func() {
		err := s.editor.Update(s.ctx, "nope", domain.UserMutation{Name: &name})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Zero(s.gateway.updateCalls)
	})

	s.Run("confirmed update sticks without a relist", func() {
		err := s.editor.Update(s.ctx, "u1", domain.UserMutation{Name: &name})
		s.Require().NoError(err)

		users, err := s.editor.Users(s.ctx)
		s.Require().NoError(err)
		s.Equal("Renamed", users[0].Name)
		s.Equal(1, s.gateway.listCalls)
	})

	s.Run("server-derived fields land on confirmation", func() {
		s.gateway.updateSideEffect = domain.StatusPending
		email := "nimal.perera@spice.lk"

		err := s.editor.Update(s.ctx, "u1", domain.UserMutation{Email: &email})
		s.Require().NoError(err)

		users, err := s.editor.Users(s.ctx)
		s.Require().NoError(err)
		s.Equal(email, users[0].Email)
		s.Equal(domain.StatusPending, users[0].Status, "confirmed record replaces the optimistic merge")
		s.gateway.updateSideEffect = ""
	})

	s.Run("rejected update resyncs to server truth", func() {
		s.gateway.updateErr = dErrors.New(dErrors.CodeConflict, "email already in use")
		other := "taken@spice.lk"

		err := s.editor.Update(s.ctx, "u2", domain.UserMutation{Email: &other})
		s.Require().Error(err)
		s.Equal(2, s.gateway.listCalls, "rejection triggers a full resync")

		users, err := s.editor.Users(s.ctx)
		s.Require().NoError(err)
		s.Equal("kamala@spice.lk", users[1].Email, "optimistic edit rolled back")
	})
}

func (s *EditorSuite) TestDelete() {
	_, err := s.editor.Users(s.ctx)
	s.Require().NoError(err)

	s.Run("confirmed delete removes the record", func() {
		s.Require().NoError(s.editor.Delete(s.ctx, "u3"))
		users, err := s.editor.Users(s.ctx)
		s.Require().NoError(err)
		s.Len(users, 2)
		s.Equal(1, s.gateway.listCalls)
	})

	s.Run("rejected delete restores the record", func() {
		s.gateway.deleteErr = dErrors.New(dErrors.CodeForbidden, "cannot delete an administrator")

		err := s.editor.Delete(s.ctx, "u2")
		s.Require().Error(err)

		users, err := s.editor.Users(s.ctx)
		s.Require().NoError(err)
		s.Len(users, 2, "resync restored the optimistically removed record")
		s.Equal("u2", users[1].ID)
	})
}

func (s *EditorSuite) TestChangeStatus() {
	_, err := s.editor.Users(s.ctx)
	s.Require().NoError(err)

	s.Run("rejects an unknown status locally", func() {
		_, err := s.editor.ChangeStatus(s.ctx, "u1", "banned")
		s.Require().Error(err)
		s.Zero(s.gateway.statusCalls)
	})

	s.Run("cache holds the old status until confirmation", func() {
		s.gateway.statusErr = dErrors.New(dErrors.CodeUnavailable, "Failed to change user status. Please try again.")

		_, err := s.editor.ChangeStatus(s.ctx, "u3", domain.StatusActive)
		s.Require().Error(err)

		users, err := s.editor.Users(s.ctx)
		s.Require().NoError(err)
		s.Equal(domain.StatusPending, users[2].Status, "no optimistic status flip")
		s.Equal(1, s.gateway.listCalls, "no resync either, nothing to roll back")
	})

	s.Run("confirmed change lands the returned record", func() {
		s.gateway.statusErr = nil

		updated, err := s.editor.ChangeStatus(s.ctx, "u3", domain.StatusActive)
		s.Require().NoError(err)
		s.Equal(domain.StatusActive, updated.Status)

		users, err := s.editor.Users(s.ctx)
		s.Require().NoError(err)
		s.Equal(domain.StatusActive, users[2].Status)
	})
}

func (s *EditorSuite) TestAuditMetadata() {
	recorder := &capturingRecorder{}
	editor := NewEditor(s.gateway, recorder, logger.New(), nil)

	ctx := requestcontext.WithUserID(s.ctx, "admin-1")
	ctx = requestcontext.WithUserRole(ctx, string(domain.RoleAdministrator))
	ctx = requestcontext.WithRequestID(ctx, "req-1")
	ctx = requestcontext.WithClientIP(ctx, "203.0.113.7")
	ctx = requestcontext.WithDeviceInfo(ctx, requestcontext.Device{
		Browser: "Firefox 128",
		OS:      "GNU/Linux",
	})

	_, err := editor.Users(ctx)
	s.Require().NoError(err)
	s.Require().NoError(editor.Delete(ctx, "u1"))

	s.Require().Len(recorder.events, 1)
	event := recorder.events[0]
	s.Equal("user.delete", event.Action)
	s.Equal("admin-1", event.ActorID)
	s.Equal("req-1", event.RequestID)
	s.Equal("203.0.113.7", event.ClientIP)
	s.Equal("Firefox 128", event.Device.Browser)
	s.Equal("GNU/Linux", event.Device.OS)

	payload, err := json.Marshal(event)
	s.Require().NoError(err)
	s.Contains(string(payload), "Firefox")
	s.Contains(string(payload), "203.0.113.7")
}
