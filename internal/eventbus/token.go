package eventbus

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/vaultstream/vaultstream/internal/errors"
)

// subscriptionClaims is minted for /api/v1/events/subscribe access. EventSource
// cannot set an Authorization header, so the caller's bearer token is
// exchanged for a short-lived, single-purpose JWT passed as a query
// parameter instead (§4.2 design note; grounded on the pack's HS256
// local-JWT-adapter convention).
type subscriptionClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}

const subscriptionScope = "events:stream"

// MintSubscriptionToken issues a short-lived token scoped only to SSE access.
func MintSubscriptionToken(secret []byte, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	claims := subscriptionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "vaultstream",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Scope: subscriptionScope,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindFatal, "signing subscription token", err)
	}
	return signed, nil
}

// VerifySubscriptionToken validates a token minted by MintSubscriptionToken.
func VerifySubscriptionToken(secret []byte, raw string) error {
	claims := &subscriptionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil || !token.Valid {
		return apperrors.NewAuthError("invalid or expired subscription token")
	}
	if claims.Scope != subscriptionScope {
		return apperrors.NewAuthError("token not scoped for event subscription")
	}
	return nil
}
