package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"spiceportal/internal/domain"
	"spiceportal/internal/platform/config"
	"spiceportal/internal/platform/logger"
	dErrors "spiceportal/pkg/domainerrors"
)

type GatewaySuite struct {
	suite.Suite
	backend  *httptest.Server
	client   *Client
	requests []recordedRequest
	respond  func(w http.ResponseWriter, r *http.Request)
}

type recordedRequest struct {
	method         string
	path           string
	authorization  string
	idempotencyKey string
	body           map[string]any
}

func TestGatewaySuite(t *testing.T) {
	suite.Run(t, new(GatewaySuite))
}

func (s *GatewaySuite) SetupTest() {
	s.requests = nil
	s.respond = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}
	s.backend = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			method:         r.Method,
			path:           r.URL.Path,
			authorization:  r.Header.Get("Authorization"),
			idempotencyKey: r.Header.Get("Idempotency-Key"),
		}
		_ = json.NewDecoder(r.Body).Decode(&rec.body)
		s.requests = append(s.requests, rec)
		s.respond(w, r)
	}))

	s.client = New(config.UpstreamConfig{
		BaseURL: s.backend.URL,
		Timeout: 5 * time.Second,
	}, StaticTokenSource("upstream-token"), logger.New(), nil)
}

func (s *GatewaySuite) TearDownTest() {
	s.backend.Close()
}

func (s *GatewaySuite) TestLogin() {
	s.Run("decodes token and user on success", func() {
		s.respond = func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(LoginResult{
				Token: "abc",
				User:  domain.UserRecord{ID: "u1", Email: "admin@spice.lk", Role: domain.RoleAdministrator},
			})
		}

		res, err := s.client.Login(context.Background(), "admin@spice.lk", "secret")
		s.Require().NoError(err)
		s.Equal("abc", res.Token)
		s.Equal("u1", res.User.ID)

		last := s.requests[len(s.requests)-1]
		s.Equal(http.MethodPost, last.method)
		s.Equal("/api/auth/login", last.path)
		s.Empty(last.authorization, "login must not carry a bearer token")
	})

	s.Run("surfaces backend message on rejection", func() {
		s.respond = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid email or password"}`))
		}

		_, err := s.client.Login(context.Background(), "admin@spice.lk", "wrong")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Equal("Invalid email or password", dErrors.MessageOf(err))
	})

	s.Run("falls back to generic message when body is unusable", func() {
		s.respond = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`<html>boom</html>`))
		}

		_, err := s.client.Login(context.Background(), "admin@spice.lk", "secret")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		s.Equal("Failed to sign in. Please try again.", dErrors.MessageOf(err))
	})
}

func (s *GatewaySuite) TestAuthenticatedCalls() {
	s.respond = func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}
	_, err := s.client.ListUsers(context.Background())
	s.Require().NoError(err)
	s.Equal("Bearer upstream-token", s.requests[0].authorization)
	s.Equal(http.MethodGet, s.requests[0].method)
	s.Equal("/api/users/", s.requests[0].path)
}

func (s *GatewaySuite) TestSaveBasicInfo() {
	s.Run("returns userId and sends idempotency key", func() {
		s.respond = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"userId":"u42"}`))
		}

		id, err := s.client.SaveBasicInfo(context.Background(), domain.BasicInfo{
			FullName:       "Nimal Perera",
			SerialNumber:   "SP/EX/1234",
			BusinessStatus: domain.BusinessExisting,
		}, "key-1")
		s.Require().NoError(err)
		s.Equal("u42", id)

		last := s.requests[len(s.requests)-1]
		s.Equal("key-1", last.idempotencyKey)
		s.Equal("Nimal Perera", last.body["fullName"])
		s.Equal("EXISTING", last.body["businessStatus"])
	})

	s.Run("accepts id field from older backends", func() {
		s.respond = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"id":"u7"}`))
		}
		id, err := s.client.SaveBasicInfo(context.Background(), domain.BasicInfo{}, "key-2")
		s.Require().NoError(err)
		s.Equal("u7", id)
	})
}

func (s *GatewaySuite) TestDeleteUser() {
	s.Run("maps 404 to not found with backend message", func() {
		s.respond = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"user does not exist"}`))
		}

		err := s.client.DeleteUser(context.Background(), "missing")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Equal("user does not exist", dErrors.MessageOf(err))
	})

	s.Run("succeeds without decoding a body", func() {
		s.respond = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}
		s.NoError(s.client.DeleteUser(context.Background(), "u1"))
	})
}

func (s *GatewaySuite) TestUnreachableBackend() {
	s.backend.Close()
	_, err := s.client.ListUsers(context.Background())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Equal("Failed to load users. Please try again.", dErrors.MessageOf(err))
}

func (s *GatewaySuite) TestSubmitApproval() {
	s.respond = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"accepted":true}`))
	}

	err := s.client.SubmitApproval(context.Background(), domain.ApprovalRequest{
		Type:         domain.ApprovalEditData,
		RequestName:  "Update exporter profile",
		RequestData:  map[string]any{"businessName": "Ceylon Spices Ltd"},
		RequestedURL: "/api/entreprenuer/55",
	})
	s.Require().NoError(err)

	last := s.requests[len(s.requests)-1]
	s.Equal("/api/approval/create", last.path)
	s.Equal("editData", last.body["type"])
}
