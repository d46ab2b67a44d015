package approval

import (
	"context"
	"log/slog"

	"spiceportal/internal/audit"
	"spiceportal/internal/domain"
	"spiceportal/internal/platform/metrics"
	"spiceportal/internal/registration/profile"
	dErrors "spiceportal/pkg/domainerrors"
	"spiceportal/pkg/requestcontext"
)

// Submitter posts a built change request upstream.
type Submitter interface {
	SubmitApproval(ctx context.Context, req domain.ApprovalRequest) error
}

// Service builds and submits change requests.
type Service struct {
	gateway Submitter
	auditor audit.Recorder
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewService(gw Submitter, auditor audit.Recorder, logger *slog.Logger, m *metrics.Metrics) *Service {
	if auditor == nil {
		auditor = audit.Discard{}
	}
	return &Service{gateway: gw, auditor: auditor, logger: logger, metrics: m}
}

// SubmitProfileEdit diffs the edited profile against its original snapshot
// and submits the changed fields for review. A diff with no changes is
// refused locally, the upstream never sees it.
func (s *Service) SubmitProfileEdit(ctx context.Context, original, current *profile.BusinessProfile) error {
	changes, err := DiffValues(original, current)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		s.metrics.ObserveApprovalRequest("empty_diff")
		return dErrors.New(dErrors.CodeBadRequest, "no changes to submit")
	}

	req := domain.ApprovalRequest{
		Type:         domain.ApprovalEditData,
		RequestName:  "Edit business profile",
		RequestData:  changes,
		RequestedURL: "/api/entreprenuer/" + current.UserID,
	}
	return s.submit(ctx, req, current.UserID)
}

// SubmitProfileDelete requests removal of a live profile. There is nothing
// to diff; the request carries only the record's identity.
func (s *Service) SubmitProfileDelete(ctx context.Context, p *profile.BusinessProfile) error {
	req := domain.ApprovalRequest{
		Type:         domain.ApprovalDeleteData,
		RequestName:  "Delete business profile",
		RequestData:  map[string]any{"userId": p.UserID},
		RequestedURL: "/api/entreprenuer/" + p.UserID,
	}
	return s.submit(ctx, req, p.UserID)
}

// Submit forwards a pre-built request, guarding the empty-diff invariant for
// edit requests.
func (s *Service) Submit(ctx context.Context, req domain.ApprovalRequest) error {
	if req.Type == domain.ApprovalEditData && len(req.RequestData) == 0 {
		s.metrics.ObserveApprovalRequest("empty_diff")
		return dErrors.New(dErrors.CodeBadRequest, "no changes to submit")
	}
	return s.submit(ctx, req, "")
}

func (s *Service) submit(ctx context.Context, req domain.ApprovalRequest, entityID string) error {
	if err := s.gateway.SubmitApproval(ctx, req); err != nil {
		s.metrics.ObserveApprovalRequest("failed")
		return err
	}

	s.metrics.ObserveApprovalRequest("submitted")
	s.auditor.Record(ctx, audit.NewEventFromContext(ctx, "approval."+string(req.Type), entityID, map[string]any{
		"requestName": req.RequestName,
		"fields":      fieldNames(req.RequestData),
	}))

	s.logger.InfoContext(ctx, "change request submitted",
		"type", req.Type,
		"request_name", req.RequestName,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

func fieldNames(data map[string]any) []string {
	names := make([]string, 0, len(data))
	for k := range data {
		names = append(names, k)
	}
	return names
}
