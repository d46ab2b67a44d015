package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"spiceportal/internal/domain"
	"spiceportal/internal/platform/logger"
	"spiceportal/internal/registration/draft"
	"spiceportal/internal/registration/flow"
	"spiceportal/internal/registration/profile"
	"spiceportal/pkg/requestcontext"
)

type stubGateway struct {
	saveErr error
}

func (g *stubGateway) SaveBasicInfo(context.Context, domain.BasicInfo, string) (string, error) {
	if g.saveErr != nil {
		return "", g.saveErr
	}
	return "u42", nil
}

func (g *stubGateway) FetchBasicInfo(context.Context, string) (domain.BasicInfo, error) {
	return domain.BasicInfo{FullName: "Nimal Perera"}, nil
}

func (g *stubGateway) CreateEntrepreneurProfile(context.Context, *profile.BusinessProfile, string) (string, error) {
	return "p7", nil
}

type stubApprovals struct{}

func (stubApprovals) SubmitProfileEdit(context.Context, *profile.BusinessProfile, *profile.BusinessProfile) error {
	return nil
}

type HandlerSuite struct {
	suite.Suite
	gateway *stubGateway
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.gateway = &stubGateway{}
	service := flow.NewService(draft.NewInMemory(), s.gateway, stubApprovals{}, logger.New(), nil)

	s.router = chi.NewRouter()
	s.router.Use(withSession("sess-1"))
	New(service, logger.New()).Register(s.router)
}

// withSession stands in for the auth middleware that normally derives the
// session from the portal JWT.
func withSession(sessionID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithSessionID(r.Context(), sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *HandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

const validDraftBody = `{
	"registrationType": "have-business",
	"role": "exporter",
	"serialParts": {"prefix": "SP", "suffix": "EX", "number": "042"},
	"fields": {
		"fullName": "Nimal Perera",
		"mobileNumber": "0771234567",
		"nic": "912345678V",
		"title": "Mr",
		"address": "12 Spice Lane, Matale"
	}
}`

func (s *HandlerSuite) TestDraftLifecycle() {
	s.Run("fresh session reads an unstarted draft", func() {
		rec := s.do(http.MethodGet, "/registration/draft", "")
		s.Equal(http.StatusOK, rec.Code)

		var d draft.Draft
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &d))
		s.Equal(draft.StateUnstarted, d.State)
	})

	s.Run("put merges and advances to pending", func() {
		rec := s.do(http.MethodPut, "/registration/draft", `{"fields": {"fullName": "Nimal Perera"}}`)
		s.Equal(http.StatusOK, rec.Code)

		var d draft.Draft
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &d))
		s.Equal(draft.StateBasicInfoPending, d.State)
		s.Equal("Nimal Perera", d.Fields["fullName"])
	})

	s.Run("malformed body is a 400", func() {
		rec := s.do(http.MethodPut, "/registration/draft", `{"fields": 42}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("delete resets", func() {
		rec := s.do(http.MethodDelete, "/registration/draft", "")
		s.Equal(http.StatusNoContent, rec.Code)

		rec = s.do(http.MethodGet, "/registration/draft", "")
		var d draft.Draft
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &d))
		s.Equal(draft.StateUnstarted, d.State)
	})
}

func (s *HandlerSuite) TestCommitBasicInfo() {
	s.Run("incomplete draft is a 400 naming the field", func() {
		s.do(http.MethodPut, "/registration/draft", `{"fields": {"fullName": "Nimal Perera"}}`)

		rec := s.do(http.MethodPost, "/registration/basic-info", "")
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Contains(rec.Body.String(), "mobile number is required")
	})

	s.Run("complete draft commits and returns the next route", func() {
		s.do(http.MethodPut, "/registration/draft", validDraftBody)

		rec := s.do(http.MethodPost, "/registration/basic-info", "")
		s.Equal(http.StatusOK, rec.Code)

		var res flow.CommitResult
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &res))
		s.Equal("u42", res.UserID)
		s.Equal(flow.RouteExporter, res.NextRoute)
	})

	s.Run("committed record reads back", func() {
		rec := s.do(http.MethodGet, "/registration/basic-info", "")
		s.Equal(http.StatusOK, rec.Code)

		var info domain.BasicInfo
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &info))
		s.Equal("Nimal Perera", info.FullName)
	})

	s.Run("second commit is a 409", func() {
		rec := s.do(http.MethodPost, "/registration/basic-info", "")
		s.Equal(http.StatusConflict, rec.Code)
	})
}

func (s *HandlerSuite) TestSubmitProfile() {
	s.do(http.MethodPut, "/registration/draft", validDraftBody)
	s.do(http.MethodPost, "/registration/basic-info", "")

	s.Run("missing profile is a 400", func() {
		rec := s.do(http.MethodPost, "/registration/profile", `{}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("valid profile completes the registration", func() {
		rec := s.do(http.MethodPost, "/registration/profile", `{
			"profile": {
				"businessName": "Ceylon Spices",
				"products": [{"productId": "pepper", "isRaw": true}]
			}
		}`)
		s.Equal(http.StatusOK, rec.Code)

		var res flow.SubmitResult
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &res))
		s.Equal("p7", res.ProfileID)
		s.False(res.PendingApproval)
		s.Equal(string(draft.StateComplete), res.State)
	})
}
