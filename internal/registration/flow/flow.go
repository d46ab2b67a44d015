// Package flow orchestrates the registration step machine:
//
//	Unstarted → BasicInfoPending → BasicInfoCommitted → RoleSelected →
//	RoleDetailsPending → Complete
//
// Field merges are purely local; commits go through the gateway and only a
// confirmed commit advances past BasicInfoPending. A gateway rejection leaves
// the draft untouched so the same answers can be retried.
package flow

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"spiceportal/internal/domain"
	"spiceportal/internal/platform/metrics"
	"spiceportal/internal/registration/draft"
	"spiceportal/internal/registration/profile"
	"spiceportal/internal/registration/validate"
	dErrors "spiceportal/pkg/domainerrors"
	"spiceportal/pkg/requestcontext"
	"spiceportal/pkg/sentinel"
)

// Gateway is the slice of the upstream client the flow commits through.
type Gateway interface {
	SaveBasicInfo(ctx context.Context, info domain.BasicInfo, idempotencyKey string) (string, error)
	FetchBasicInfo(ctx context.Context, userID string) (domain.BasicInfo, error)
	CreateEntrepreneurProfile(ctx context.Context, p *profile.BusinessProfile, idempotencyKey string) (string, error)
}

// ApprovalSubmitter routes an edit of an already-approved profile through the
// approval pipeline instead of writing it live.
type ApprovalSubmitter interface {
	SubmitProfileEdit(ctx context.Context, original, current *profile.BusinessProfile) error
}

// Service is the registration step controller.
type Service struct {
	drafts    draft.Store
	gateway   Gateway
	approvals ApprovalSubmitter
	rules     validate.FieldRules
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewService(drafts draft.Store, gw Gateway, approvals ApprovalSubmitter, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		drafts:    drafts,
		gateway:   gw,
		approvals: approvals,
		rules:     validate.BasicInfo(),
		logger:    logger,
		metrics:   m,
	}
}

// Draft returns the session's current draft, or a fresh empty one if the
// session has not touched any step yet. Reading never creates state.
func (s *Service) Draft(ctx context.Context, sessionID string) (*draft.Draft, error) {
	d, err := s.drafts.Find(ctx, sessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return draft.NewDraft(sessionID, requestcontext.Now(ctx)), nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "Failed to load your registration. Please try again.")
	}
	return d, nil
}

// UpdateDraft merges a partial update into the session's draft. Pure local
// mutation: it never calls the gateway and never rejects on content.
func (s *Service) UpdateDraft(ctx context.Context, sessionID string, u draft.Update) (*draft.Draft, error) {
	var started bool
	d, err := s.drafts.Execute(ctx, sessionID, func(d *draft.Draft) error {
		wasUnstarted := d.State == draft.StateUnstarted
		d.Merge(u, requestcontext.Now(ctx))
		started = wasUnstarted && d.State == draft.StateBasicInfoPending
		return nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "Failed to save your answers. Please try again.")
	}
	if started {
		s.metrics.IncrementRegistrationsStarted()
	}
	return d, nil
}

// BasicInfo re-reads the session's committed first-step record from the
// upstream, for edit flows that need the server's copy rather than the local
// answers.
func (s *Service) BasicInfo(ctx context.Context, sessionID string) (domain.BasicInfo, error) {
	d, err := s.drafts.Find(ctx, sessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return domain.BasicInfo{}, dErrors.New(dErrors.CodeNotFound, "basic info has not been committed")
	}
	if err != nil {
		return domain.BasicInfo{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "Failed to load registration details. Please try again.")
	}
	if d.UserID == "" {
		return domain.BasicInfo{}, dErrors.New(dErrors.CodeNotFound, "basic info has not been committed")
	}
	return s.gateway.FetchBasicInfo(ctx, d.UserID)
}

// ResetDraft destroys the session's draft.
func (s *Service) ResetDraft(ctx context.Context, sessionID string) error {
	if err := s.drafts.Delete(ctx, sessionID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "Failed to reset your registration. Please try again.")
	}
	return nil
}

// CommitResult is the outcome of a successful basic-info commit.
type CommitResult struct {
	UserID    string `json:"userId"`
	NextRoute string `json:"nextRoute"`
	State     string `json:"state"`
}

// CommitBasicInfo validates the draft's first-step answers, sends the
// assembled record upstream, and advances the machine. Every precondition
// failure names the offending field and leaves the state unchanged.
//
// Duplicate submissions are hard-blocked: a second commit for the same
// session while one is in flight is rejected, and the idempotency key is
// reused across retries of a failed commit so the upstream can dedupe.
func (s *Service) CommitBasicInfo(ctx context.Context, sessionID string) (CommitResult, error) {
	var info domain.BasicInfo
	var idempotencyKey string

	_, err := s.drafts.Execute(ctx, sessionID, func(d *draft.Draft) error {
		if d.State == draft.StateComplete {
			return dErrors.New(dErrors.CodeConflict, "registration is already complete")
		}
		if d.State != draft.StateUnstarted && d.State != draft.StateBasicInfoPending {
			return dErrors.New(dErrors.CodeConflict, "basic info is already committed")
		}
		if d.CommitInFlight {
			return dErrors.New(dErrors.CodeConflict, "a submission is already in progress")
		}
		if err := s.checkBasicInfo(d); err != nil {
			return err
		}

		if d.IdempotencyKey == "" {
			d.IdempotencyKey = uuid.NewString()
		}
		d.CommitInFlight = true
		idempotencyKey = d.IdempotencyKey
		info = assembleBasicInfo(d)
		return nil
	})
	if err != nil {
		s.metrics.ObserveBasicInfoCommit("rejected")
		return CommitResult{}, err
	}

	userID, commitErr := s.gateway.SaveBasicInfo(ctx, info, idempotencyKey)

	var adopted bool
	d, storeErr := s.executeRetried(ctx, sessionID, func(d *draft.Draft) error {
		d.CommitInFlight = false
		if commitErr != nil {
			// State and answers stay put; the key survives for the retry.
			return nil
		}
		if d.State != draft.StateBasicInfoPending {
			// The draft was reset while the commit was in flight; the late
			// result is discarded rather than resurrecting old answers.
			return nil
		}
		d.UserID = userID
		d.IdempotencyKey = ""
		// BasicInfoCommitted → RoleSelected is automatic once the created
		// id arrives, so the stored state lands on RoleSelected directly.
		d.State = draft.StateRoleSelected
		adopted = true
		return nil
	})
	if storeErr != nil {
		return CommitResult{}, dErrors.Wrap(storeErr, dErrors.CodeUnavailable, "Failed to save your registration. Please try again.")
	}
	if commitErr != nil {
		s.metrics.ObserveBasicInfoCommit("failed")
		s.logger.WarnContext(ctx, "basic info commit rejected by upstream",
			"session_id", sessionID,
			"error", commitErr,
			"request_id", requestcontext.RequestID(ctx),
		)
		return CommitResult{}, commitErr
	}
	if !adopted {
		s.metrics.ObserveBasicInfoCommit("discarded")
		return CommitResult{}, dErrors.New(dErrors.CodeConflict, "registration was reset during submission")
	}

	route, err := NextRoute(d.RegistrationType, d.Role)
	if err != nil {
		return CommitResult{}, err
	}

	s.metrics.ObserveBasicInfoCommit("committed")
	s.logger.InfoContext(ctx, "basic info committed",
		"session_id", sessionID,
		"user_id", userID,
		"next_route", route,
	)
	return CommitResult{UserID: userID, NextRoute: route, State: string(d.State)}, nil
}

const guardReleaseAttempts = 3

// executeRetried is for the draft writes that follow a gateway call: those
// must release the in-flight guard, and a transient store failure there
// would otherwise lock the session out of retrying until a reset. The
// mutation itself is idempotent, so re-running fn is safe.
func (s *Service) executeRetried(ctx context.Context, sessionID string, fn func(*draft.Draft) error) (*draft.Draft, error) {
	var d *draft.Draft
	var err error
	for attempt := 0; attempt < guardReleaseAttempts; attempt++ {
		d, err = s.drafts.Execute(ctx, sessionID, fn)
		if err == nil {
			return d, nil
		}
	}
	return nil, err
}

// checkBasicInfo enforces the commit preconditions in a stable order so the
// surfaced message is deterministic for a given draft.
func (s *Service) checkBasicInfo(d *draft.Draft) error {
	for _, field := range []string{"fullName", "mobileNumber", "nic", "title", "address"} {
		if err := s.rules.Validate(field, d.Fields[field], d.Fields); err != nil {
			return dErrors.New(dErrors.CodeBadRequest, err.Error())
		}
	}
	if !d.SerialComplete() {
		return dErrors.New(dErrors.CodeBadRequest, "serial number is required")
	}
	if d.RegistrationType == "" {
		return dErrors.New(dErrors.CodeBadRequest, "select a registration type")
	}
	if d.Role == "" {
		return dErrors.New(dErrors.CodeBadRequest, "select a business role")
	}
	if d.RegistrationType == domain.RegistrationExisting && !d.Role.Valid() {
		return dErrors.New(dErrors.CodeBadRequest, "unsupported role")
	}
	return nil
}

func assembleBasicInfo(d *draft.Draft) domain.BasicInfo {
	return domain.BasicInfo{
		FullName:       d.Fields["fullName"],
		MobileNumber:   d.Fields["mobileNumber"],
		NIC:            d.Fields["nic"],
		Title:          d.Fields["title"],
		Address:        d.Fields["address"],
		SerialNumber:   d.SerialValue(),
		BusinessStatus: domain.BusinessStatusFor(d.RegistrationType),
		Role:           d.Role,
	}
}

// SubmitResult is the outcome of a role-details submission.
type SubmitResult struct {
	ProfileID       string `json:"profileId,omitempty"`
	PendingApproval bool   `json:"pendingApproval"`
	State           string `json:"state"`
}

// SubmitRoleDetails commits the role-specific business profile. A brand-new
// profile is created directly; an edit of an existing approved profile is
// diffed against its original snapshot and routed through the approval
// pipeline instead. Either way a confirmed submission completes the flow and
// destroys the draft.
func (s *Service) SubmitRoleDetails(ctx context.Context, sessionID string, current, original *profile.BusinessProfile) (SubmitResult, error) {
	var idempotencyKey string
	_, err := s.drafts.Execute(ctx, sessionID, func(d *draft.Draft) error {
		if d.State != draft.StateRoleSelected && d.State != draft.StateRoleDetailsPending {
			return dErrors.New(dErrors.CodeConflict, "commit basic info before submitting business details")
		}
		if d.CommitInFlight {
			return dErrors.New(dErrors.CodeConflict, "a submission is already in progress")
		}
		if current.UserID == "" {
			current.UserID = d.UserID
		}
		if current.Role == "" {
			current.Role = d.Role
		}
		if err := current.Validate(); err != nil {
			return err
		}
		if d.IdempotencyKey == "" {
			d.IdempotencyKey = uuid.NewString()
		}
		d.CommitInFlight = true
		d.State = draft.StateRoleDetailsPending
		idempotencyKey = d.IdempotencyKey
		return nil
	})
	if err != nil {
		s.metrics.ObserveProfileSubmission(string(current.Role), "rejected")
		return SubmitResult{}, err
	}

	var profileID string
	var submitErr error
	pendingApproval := original != nil
	if pendingApproval {
		submitErr = s.approvals.SubmitProfileEdit(ctx, original, current)
	} else {
		profileID, submitErr = s.gateway.CreateEntrepreneurProfile(ctx, current, idempotencyKey)
	}

	if submitErr != nil {
		_, storeErr := s.executeRetried(ctx, sessionID, func(d *draft.Draft) error {
			d.CommitInFlight = false
			return nil
		})
		if storeErr != nil {
			s.logger.ErrorContext(ctx, "failed to release commit guard",
				"session_id", sessionID,
				"error", storeErr,
			)
		}
		s.metrics.ObserveProfileSubmission(string(current.Role), "failed")
		return SubmitResult{}, submitErr
	}

	// Full submission confirmed: the draft's lifetime ends here.
	if err := s.drafts.Delete(ctx, sessionID); err != nil {
		s.logger.WarnContext(ctx, "completed registration draft not deleted",
			"session_id", sessionID,
			"error", err,
		)
	}

	s.metrics.ObserveProfileSubmission(string(current.Role), "submitted")
	s.logger.InfoContext(ctx, "role details submitted",
		"session_id", sessionID,
		"user_id", current.UserID,
		"pending_approval", pendingApproval,
	)
	return SubmitResult{
		ProfileID:       profileID,
		PendingApproval: pendingApproval,
		State:           string(draft.StateComplete),
	}, nil
}
