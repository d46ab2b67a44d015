package flow

import (
	"spiceportal/internal/domain"
	dErrors "spiceportal/pkg/domainerrors"
)

// Routes the SPA navigates to after a successful basic-info commit. Starting
// businesses share one route; existing businesses branch per role.
const (
	RouteStarting     = "/registration/starting"
	RouteEntrepreneur = "/registration/entrepreneur"
	RouteExporter     = "/registration/exporter"
	RouteIntermediary = "/registration/intermediary"
)

// NextRoute resolves the post-commit route for the accumulated answers.
func NextRoute(t domain.RegistrationType, role domain.BusinessRole) (string, error) {
	if t != domain.RegistrationExisting {
		return RouteStarting, nil
	}
	switch role {
	case domain.RoleEntrepreneur:
		return RouteEntrepreneur, nil
	case domain.RoleExporter:
		return RouteExporter, nil
	case domain.RoleIntermediary:
		return RouteIntermediary, nil
	default:
		return "", dErrors.New(dErrors.CodeBadRequest, "unsupported role")
	}
}
