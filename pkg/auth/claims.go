package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kornthana/memberpay-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	MemberID uuid.UUID
	OwnerID  uuid.UUID
	Role     enums.ActorRole
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	MemberID uuid.UUID       `json:"member_id"`
	OwnerID  uuid.UUID       `json:"owner_id"`
	Role     enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
