package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mealroute/lunchbox-backend/pkg/enums"
)

// AccessTokenPayload carries the identity minted into an access token.
type AccessTokenPayload struct {
	ActorID uuid.UUID       `json:"actor_id"`
	Role    enums.ActorRole `json:"role"`
	Email   string          `json:"email"`
}

// AccessTokenClaims is the JWT claim set for API access tokens.
type AccessTokenClaims struct {
	AccessTokenPayload
	jwt.RegisteredClaims
}
