package authn

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"spiceportal/internal/domain"
	"spiceportal/internal/gateway"
	"spiceportal/internal/platform/config"
	"spiceportal/internal/token"
	dErrors "spiceportal/pkg/domainerrors"
	"spiceportal/pkg/requestcontext"
)

// Authenticator is the slice of the upstream client used for sign-in.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (gateway.LoginResult, error)
}

// Service signs users in and out.
type Service struct {
	gateway   Authenticator
	tokens    TokenStore
	jwt       *token.Service
	jwtCfg    config.JWTConfig
	bootstrap config.BootstrapAdminConfig
	logger    *slog.Logger
}

func NewService(gw Authenticator, tokens TokenStore, jwt *token.Service, jwtCfg config.JWTConfig, bootstrap config.BootstrapAdminConfig, logger *slog.Logger) *Service {
	return &Service{
		gateway:   gw,
		tokens:    tokens,
		jwt:       jwt,
		jwtCfg:    jwtCfg,
		bootstrap: bootstrap,
		logger:    logger,
	}
}

// LoginResult is what the browser gets back: the portal's own JWT and the
// signed-in user. The upstream token never leaves the server.
type LoginResult struct {
	Token string            `json:"token"`
	User  domain.UserRecord `json:"user"`
}

// Login authenticates against the upstream, persists the upstream token
// under the new session and issues a portal JWT. When the upstream is
// unreachable and a bootstrap admin is configured, that account can still
// sign in so the portal stays administrable during an outage.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if email == "" || password == "" {
		return LoginResult{}, dErrors.New(dErrors.CodeBadRequest, "email and password are required")
	}

	res, err := s.gateway.Login(ctx, email, password)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnavailable) {
			if out, ok := s.bootstrapLogin(ctx, email, password); ok {
				return out, nil
			}
		}
		return LoginResult{}, err
	}

	signed, sessionID, err := s.jwt.Issue(res.User.ID, string(res.User.Role), requestcontext.Now(ctx))
	if err != nil {
		return LoginResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "Failed to sign in. Please try again.")
	}
	if err := s.tokens.Save(ctx, sessionID, res.Token, s.jwtCfg.TTL); err != nil {
		return LoginResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "Failed to sign in. Please try again.")
	}

	s.logger.InfoContext(ctx, "user signed in",
		"user_id", res.User.ID,
		"role", res.User.Role,
		"request_id", requestcontext.RequestID(ctx),
	)
	return LoginResult{Token: signed, User: res.User}, nil
}

// bootstrapLogin checks the break-glass credentials. The session it creates
// carries no upstream token, so anything that needs the backend still fails.
func (s *Service) bootstrapLogin(ctx context.Context, email, password string) (LoginResult, bool) {
	if s.bootstrap.Email == "" || s.bootstrap.PasswordHash == "" {
		return LoginResult{}, false
	}
	if !strings.EqualFold(email, s.bootstrap.Email) {
		return LoginResult{}, false
	}
	if bcrypt.CompareHashAndPassword([]byte(s.bootstrap.PasswordHash), []byte(password)) != nil {
		return LoginResult{}, false
	}

	user := domain.UserRecord{
		ID:     "bootstrap-admin",
		Name:   "Bootstrap Administrator",
		Email:  s.bootstrap.Email,
		Role:   domain.RoleAdministrator,
		Status: domain.StatusActive,
	}
	signed, _, err := s.jwt.Issue(user.ID, string(user.Role), requestcontext.Now(ctx))
	if err != nil {
		return LoginResult{}, false
	}

	s.logger.WarnContext(ctx, "bootstrap admin signed in, upstream unreachable",
		"request_id", requestcontext.RequestID(ctx),
	)
	return LoginResult{Token: signed, User: user}, true
}

// Logout drops the session's upstream token. The portal JWT is stateless;
// revocation means the upstream token is gone and the JWT simply expires.
func (s *Service) Logout(ctx context.Context) error {
	sessionID := requestcontext.SessionID(ctx)
	if sessionID == "" {
		return nil
	}
	if err := s.tokens.Delete(ctx, sessionID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "Failed to sign out. Please try again.")
	}
	s.logger.InfoContext(ctx, "user signed out",
		"user_id", requestcontext.UserID(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}
