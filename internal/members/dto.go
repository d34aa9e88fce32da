package members

import (
	"github.com/google/uuid"

	"github.com/kornthana/memberpay-backend/pkg/enums"
)

// RegisterRequest contains the payload for creating an account. Leaving
// owner_id empty registers a new owner tenant; supplying it joins an existing
// one as a member.
type RegisterRequest struct {
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=8,max=128"`
	FullName string     `json:"full_name" validate:"required,max=200"`
	OwnerID  *uuid.UUID `json:"owner_id,omitempty"`
}

// LoginRequest contains credentials for an existing account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Profile is the public view of a member account.
type Profile struct {
	ID       uuid.UUID       `json:"id"`
	OwnerID  uuid.UUID       `json:"owner_id"`
	Email    string          `json:"email"`
	FullName string          `json:"full_name"`
	Role     enums.ActorRole `json:"role"`
}

// LoginResponse carries the minted token pair.
type LoginResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	Member       Profile `json:"member"`
}

// RefreshRequest exchanges an expired access token plus refresh token for a
// new pair.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}
