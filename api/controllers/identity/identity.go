// Package identity resolves the authenticated actor from the request context
// seeded by the auth middleware.
package identity

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kornthana/memberpay-backend/api/middleware"
	pkgerrors "github.com/kornthana/memberpay-backend/pkg/errors"
)

// RequireMemberID extracts the authenticated member id.
func RequireMemberID(r *http.Request) (uuid.UUID, error) {
	return parse(middleware.MemberIDFromContext(r.Context()), "missing member identity")
}

// RequireOwnerID extracts the tenant owner id the member belongs to.
func RequireOwnerID(r *http.Request) (uuid.UUID, error) {
	return parse(middleware.OwnerIDFromContext(r.Context()), "missing tenant identity")
}

func parse(raw, msg string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msg)
	}
	return id, nil
}
