package authflow

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry computes when a credential stops being usable. The provider
// advertises expires_in alongside the token, but the access token itself is
// usually a JWT carrying its own exp claim; when the claim is earlier, the
// claim wins. Opaque (non-JWT) tokens fall back to expires_in.
//
// The token is parsed without signature verification: the expiry is a
// scheduling hint for this client, not an authorization decision.
func TokenExpiry(accessToken string, expiresIn time.Duration, now time.Time) time.Time {
	expiresAt := now.Add(expiresIn)

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return expiresAt
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return expiresAt
	}
	if exp.Time.Before(expiresAt) {
		return exp.Time
	}
	return expiresAt
}
