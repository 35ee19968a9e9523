package server

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "corvid"

// IssueAPIToken signs a bearer token against signingKey, valid for
// lifetime, for an operator to hand to a client of the /parse endpoint.
// The token carries a fixed subject ("api") rather than a user identity
// -- its only job is to prove possession of signingKey, mirroring the
// teacher's generateJWT (server/token.go) with the per-user claims
// stripped out.
func IssueAPIToken(signingKey []byte, lifetime time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": tokenIssuer,
		"sub": "api",
		"iat": now.Unix(),
		"exp": now.Add(lifetime).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)

	signed, err := tok.SignedString(signingKey)
	if err != nil {
		return "", fmt.Errorf("server: sign api token: %w", err)
	}
	return signed, nil
}
