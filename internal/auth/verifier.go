// Package auth verifies Azure AD B2C bearer tokens. Signing keys are
// fetched from the tenant's JWKS endpoint and cached/refreshed by the
// keyfunc client, so steady-state requests never hit the network.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/storyfairy/storyfairy-api/internal/config"
)

// ErrInvalidToken covers every verification failure: bad signature,
// wrong audience or issuer, expiry, unknown key id, key-fetch failure.
// The HTTP layer maps it to 401 without leaking the cause.
var ErrInvalidToken = errors.New("auth: token validation failed")

// Verifier validates tokens for one tenant / client id / user flow.
type Verifier struct {
	keyfunc  jwt.Keyfunc
	clientID string
	issuer   string
}

// NewVerifier builds a Verifier from B2C configuration. The JWKS client
// starts its background refresh immediately.
func NewVerifier(cfg config.B2CConfig) (*Verifier, error) {
	kf, err := keyfunc.NewDefault([]string{cfg.JWKSURL()})
	if err != nil {
		return nil, fmt.Errorf("init JWKS client: %w", err)
	}
	return &Verifier{
		keyfunc:  kf.Keyfunc,
		clientID: cfg.ClientID,
		issuer:   cfg.Issuer(),
	}, nil
}

// ExtractBearer pulls the token out of an Authorization header value.
// The second return is false when the header is missing or malformed.
func ExtractBearer(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := header[len("Bearer "):]
	if token == "" {
		return "", false
	}
	return token, true
}

// ValidateToken verifies the token's signature, audience, issuer and
// expiry, accepting RS256 only. It returns the subject claim, the user
// id used everywhere downstream.
func (v *Verifier) ValidateToken(tokenString string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, v.keyfunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.clientID),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sub, err := claims.GetSubject()
	if err == nil && sub != "" {
		return sub, nil
	}
	// B2C tokens sometimes carry the object id instead of a subject.
	if oid, ok := claims["oid"].(string); ok && oid != "" {
		return oid, nil
	}
	return "", fmt.Errorf("%w: no subject claim", ErrInvalidToken)
}
