package approval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"spiceportal/internal/audit"
	"spiceportal/internal/domain"
	"spiceportal/internal/platform/logger"
	"spiceportal/internal/registration/profile"
	dErrors "spiceportal/pkg/domainerrors"
	"spiceportal/pkg/requestcontext"
)

type fakeSubmitter struct {
	calls []domain.ApprovalRequest
	err   error
}

func (f *fakeSubmitter) SubmitApproval(_ context.Context, req domain.ApprovalRequest) error {
	f.calls = append(f.calls, req)
	return f.err
}

type ServiceSuite struct {
	suite.Suite
	submitter *fakeSubmitter
	store     *audit.MemoryStore
	worker    *audit.Worker
	service   *Service
	ctx       context.Context
	cancel    context.CancelFunc
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.submitter = &fakeSubmitter{}
	s.store = audit.NewMemoryStore()
	s.worker = audit.NewWorker(s.store, nil, logger.New())
	s.service = NewService(s.submitter, s.worker, logger.New(), nil)
	s.ctx, s.cancel = context.WithCancel(context.Background())
}

func (s *ServiceSuite) TearDownTest() {
	s.cancel()
}

func (s *ServiceSuite) baseProfile() *profile.BusinessProfile {
	p := profile.New("u42", domain.RoleExporter)
	s.Require().NoError(p.UpdateEntry(0, profile.ExportProductEntry{ProductID: "pepper", IsRaw: true}))
	p.BusinessName = "Ceylon Spices"
	return p
}

func (s *ServiceSuite) TestSubmitProfileEdit() {
	s.Run("unchanged profile is refused before any network call", func() {
		original := s.baseProfile()

		err := s.service.SubmitProfileEdit(s.ctx, original, original.Clone())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
		s.Equal("no changes to submit", dErrors.MessageOf(err))
		s.Empty(s.submitter.calls)
	})

	s.Run("changed fields ride an editData request", func() {
		original := s.baseProfile()
		current := original.Clone()
		current.BusinessName = "Ceylon Spices Ltd"
		current.Address = "14 Spice Lane, Matale"

		s.Require().NoError(s.service.SubmitProfileEdit(s.ctx, original, current))
		s.Require().Len(s.submitter.calls, 1)

		req := s.submitter.calls[0]
		s.Equal(domain.ApprovalEditData, req.Type)
		s.Equal("Edit business profile", req.RequestName)
		s.Equal("/api/entreprenuer/u42", req.RequestedURL)
		s.Len(req.RequestData, 2)
		s.Equal("Ceylon Spices Ltd", req.RequestData["businessName"])
		s.NotContains(req.RequestData, "products", "untouched fields stay out of the request")
	})

	s.Run("upstream rejection propagates", func() {
		s.submitter.err = dErrors.New(dErrors.CodeUnavailable, "Failed to submit change request. Please try again.")
		original := s.baseProfile()
		current := original.Clone()
		current.BusinessName = "Renamed"

		err := s.service.SubmitProfileEdit(s.ctx, original, current)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

type capturingRecorder struct {
	events []audit.Event
}

func (r *capturingRecorder) Record(_ context.Context, e audit.Event) {
	r.events = append(r.events, e)
}

func (s *ServiceSuite) TestAuditMetadata() {
	recorder := &capturingRecorder{}
	service := NewService(s.submitter, recorder, logger.New(), nil)

	ctx := requestcontext.WithUserID(s.ctx, "u42")
	ctx = requestcontext.WithClientIP(ctx, "203.0.113.7")
	ctx = requestcontext.WithDeviceInfo(ctx, requestcontext.Device{Browser: "Firefox 128", OS: "GNU/Linux"})

	original := s.baseProfile()
	current := original.Clone()
	current.BusinessName = "Renamed"
	s.Require().NoError(service.SubmitProfileEdit(ctx, original, current))

	s.Require().Len(recorder.events, 1)
	event := recorder.events[0]
	s.Equal("approval.editData", event.Action)
	s.Equal("u42", event.ActorID)
	s.Equal("203.0.113.7", event.ClientIP)
	s.Equal("Firefox 128", event.Device.Browser)
}

func (s *ServiceSuite) TestSubmitProfileDelete() {
	s.Require().NoError(s.service.SubmitProfileDelete(s.ctx, s.baseProfile()))
	s.Require().Len(s.submitter.calls, 1)

	req := s.submitter.calls[0]
	s.Equal(domain.ApprovalDeleteData, req.Type)
	s.Equal(map[string]any{"userId": "u42"}, req.RequestData)
	s.Equal("/api/entreprenuer/u42", req.RequestedURL)
}

func (s *ServiceSuite) TestSubmit() {
	s.Run("empty editData payload is refused", func() {
		err := s.service.Submit(s.ctx, domain.ApprovalRequest{Type: domain.ApprovalEditData, RequestName: "Edit"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
		s.Empty(s.submitter.calls)
	})

	s.Run("deleteData needs no payload", func() {
		err := s.service.Submit(s.ctx, domain.ApprovalRequest{
			Type:         domain.ApprovalDeleteData,
			RequestName:  "Delete record",
			RequestedURL: "/api/users/u9",
		})
		s.Require().NoError(err)
		s.Len(s.submitter.calls, 1)
	})
}
