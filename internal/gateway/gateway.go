// Package gateway is the portal's only doorway to the upstream registration
// backend. One method per resource-action pair; no retries live here, retry
// policy belongs to callers.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"spiceportal/internal/domain"
	"spiceportal/internal/platform/config"
	"spiceportal/internal/platform/metrics"
	"spiceportal/internal/registration/profile"
	dErrors "spiceportal/pkg/domainerrors"
)

// TokenSource supplies the upstream bearer token for the calling user, or ""
// when the call is unauthenticated (login).
type TokenSource interface {
	UpstreamToken(ctx context.Context) (string, error)
}

// Client talks to the upstream REST backend.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	tokens  TokenSource
}

func New(cfg config.UpstreamConfig, tokens TokenSource, logger *slog.Logger, m *metrics.Metrics) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("spiceportal/gateway"),
		tokens:  tokens,
	}
}

// LoginResult is the upstream login payload.
type LoginResult struct {
	Token string            `json:"token"`
	User  domain.UserRecord `json:"user"`
}

// Login authenticates against the upstream. Token persistence is the
// caller's responsibility, not the gateway's.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out LoginResult
	err := c.call(ctx, callSpec{
		operation: "login",
		method:    http.MethodPost,
		path:      "/api/auth/login",
		body:      map[string]string{"email": email, "password": password},
		fallback:  "Failed to sign in. Please try again.",
		anonymous: true,
	}, &out)
	return out, err
}

// ListUsers fetches the full user list: the ground truth the admin editor
// reconciles against.
func (c *Client) ListUsers(ctx context.Context) ([]domain.UserRecord, error) {
	var out []domain.UserRecord
	err := c.call(ctx, callSpec{
		operation: "list_users",
		method:    http.MethodGet,
		path:      "/api/users/",
		fallback:  "Failed to load users. Please try again.",
	}, &out)
	return out, err
}

// CreateUserInput carries the writable fields of a new account.
type CreateUserInput struct {
	Name     string            `json:"name"`
	Email    string            `json:"email"`
	Password string            `json:"password"`
	Role     domain.UserRole   `json:"role"`
	Status   domain.UserStatus `json:"status,omitempty"`
}

func (c *Client) CreateUser(ctx context.Context, in CreateUserInput) (domain.UserRecord, error) {
	var out domain.UserRecord
	err := c.call(ctx, callSpec{
		operation: "create_user",
		method:    http.MethodPost,
		path:      "/api/users/",
		body:      in,
		fallback:  "Failed to create user. Please try again.",
	}, &out)
	return out, err
}

func (c *Client) UpdateUser(ctx context.Context, id string, m domain.UserMutation) (domain.UserRecord, error) {
	var out domain.UserRecord
	err := c.call(ctx, callSpec{
		operation: "update_user",
		method:    http.MethodPatch,
		path:      "/api/users/" + id,
		body:      m,
		fallback:  "Failed to update user. Please try again.",
	}, &out)
	return out, err
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.call(ctx, callSpec{
		operation: "delete_user",
		method:    http.MethodDelete,
		path:      "/api/users/" + id,
		fallback:  "Failed to delete user. Please try again.",
	}, nil)
}

func (c *Client) ChangeUserStatus(ctx context.Context, id string, status domain.UserStatus) (domain.UserRecord, error) {
	var out domain.UserRecord
	err := c.call(ctx, callSpec{
		operation: "change_user_status",
		method:    http.MethodPatch,
		path:      "/api/users/" + id + "/status",
		body:      map[string]domain.UserStatus{"status": status},
		fallback:  "Failed to change user status. Please try again.",
	}, &out)
	return out, err
}

type savedBasicInfo struct {
	UserID string `json:"userId"`
	ID     string `json:"id"`
}

// SaveBasicInfo commits the first registration step and returns the created
// userId correlator. The idempotency key lets the upstream dedupe retried
// commits of the same draft.
func (c *Client) SaveBasicInfo(ctx context.Context, info domain.BasicInfo, idempotencyKey string) (string, error) {
	var out savedBasicInfo
	err := c.call(ctx, callSpec{
		operation:      "save_basic_info",
		method:         http.MethodPost,
		path:           "/api/users/",
		body:           info,
		fallback:       "Failed to save registration details. Please try again.",
		idempotencyKey: idempotencyKey,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.UserID != "" {
		return out.UserID, nil
	}
	return out.ID, nil
}

func (c *Client) FetchBasicInfo(ctx context.Context, userID string) (domain.BasicInfo, error) {
	var out domain.BasicInfo
	err := c.call(ctx, callSpec{
		operation: "fetch_basic_info",
		method:    http.MethodGet,
		path:      "/api/users/" + userID,
		fallback:  "Failed to load registration details. Please try again.",
	}, &out)
	return out, err
}

// CreateEntrepreneurProfile persists a role-specific business profile. The
// upstream path keeps the backend's historical spelling.
func (c *Client) CreateEntrepreneurProfile(ctx context.Context, p *profile.BusinessProfile, idempotencyKey string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	err := c.call(ctx, callSpec{
		operation:      "create_entrepreneur_profile",
		method:         http.MethodPost,
		path:           "/api/entreprenuer/",
		body:           p,
		fallback:       "Failed to submit business details. Please try again.",
		idempotencyKey: idempotencyKey,
	}, &out)
	return out.ID, err
}

// SubmitApproval posts a change request into the approval pipeline.
func (c *Client) SubmitApproval(ctx context.Context, req domain.ApprovalRequest) error {
	return c.call(ctx, callSpec{
		operation: "submit_approval",
		method:    http.MethodPost,
		path:      "/api/approval/create",
		body:      req,
		fallback:  "Failed to submit change request. Please try again.",
	}, nil)
}

type callSpec struct {
	operation      string
	method         string
	path           string
	body           any
	fallback       string
	idempotencyKey string
	anonymous      bool
}

// upstreamError is the shape of the backend's error payload. Older endpoints
// use "error" instead of "message".
type upstreamError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) call(ctx context.Context, spec callSpec, out any) error {
	ctx, span := c.tracer.Start(ctx, "upstream."+spec.operation, trace.WithAttributes(
		attribute.String("http.method", spec.method),
		attribute.String("http.path", spec.path),
	))
	defer span.End()

	var body io.Reader
	if spec.body != nil {
		encoded, err := json.Marshal(spec.body)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, spec.fallback)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, spec.method, c.baseURL+spec.path, body)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, spec.fallback)
	}
	if spec.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if spec.idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", spec.idempotencyKey)
	}
	if !spec.anonymous && c.tokens != nil {
		upstreamToken, err := c.tokens.UpstreamToken(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnauthorized, "Your session has expired. Please sign in again.")
		}
		if upstreamToken != "" {
			req.Header.Set("Authorization", "Bearer "+upstreamToken)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(spec.operation, "error", start)
		span.SetAttributes(attribute.String("error", err.Error()))
		c.logger.WarnContext(ctx, "upstream call failed",
			"operation", spec.operation,
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, spec.fallback)
	}
	defer resp.Body.Close()

	c.observe(spec.operation, strconv.Itoa(resp.StatusCode), start)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeFailure(ctx, spec, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, spec.fallback)
	}
	return nil
}

// decodeFailure turns a non-2xx upstream response into a coded domain error,
// preferring the backend's own message over the generic fallback.
func (c *Client) decodeFailure(ctx context.Context, spec callSpec, resp *http.Response) error {
	message := spec.fallback
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var payload upstreamError
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Message != "" {
			message = payload.Message
		} else if payload.Error != "" {
			message = payload.Error
		}
	}

	c.logger.WarnContext(ctx, "upstream rejected request",
		"operation", spec.operation,
		"status", resp.StatusCode,
	)

	return dErrors.New(codeForStatus(resp.StatusCode), message)
}

func codeForStatus(status int) dErrors.Code {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return dErrors.CodeBadRequest
	case http.StatusUnauthorized:
		return dErrors.CodeUnauthorized
	case http.StatusForbidden:
		return dErrors.CodeForbidden
	case http.StatusNotFound:
		return dErrors.CodeNotFound
	case http.StatusConflict:
		return dErrors.CodeConflict
	default:
		if status >= 500 {
			return dErrors.CodeUnavailable
		}
		return dErrors.CodeBadRequest
	}
}

func (c *Client) observe(operation, status string, start time.Time) {
	if c.metrics != nil {
		c.metrics.UpstreamCallDuration.
			WithLabelValues(operation, status).
			Observe(time.Since(start).Seconds())
	}
}

// StaticTokenSource returns the same upstream token for every call; used in
// tests and for service-account style deployments.
type StaticTokenSource string

func (s StaticTokenSource) UpstreamToken(context.Context) (string, error) {
	return string(s), nil
}
