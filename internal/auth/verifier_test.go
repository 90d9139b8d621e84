package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testClientID = "client-123"
	testIssuer   = "https://storyfairy.b2clogin.com/tenant-id/v2.0/"
)

func newTestVerifier(t *testing.T) (*Verifier, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	v := &Verifier{
		keyfunc:  func(*jwt.Token) (interface{}, error) { return &key.PublicKey, nil },
		clientID: testClientID,
		issuer:   testIssuer,
	}
	return v, key
}

func signToken(t *testing.T, key *rsa.PrivateKey, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	var signed string
	var err error
	switch method {
	case jwt.SigningMethodHS256:
		signed, err = token.SignedString([]byte("shared-secret"))
	default:
		signed, err = token.SignedString(key)
	}
	require.NoError(t, err)
	return signed
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub": "user-abc",
		"aud": testClientID,
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		name   string
		header string
		token  string
		ok     bool
	}{
		{"well formed", "Bearer abc.def.ghi", "abc.def.ghi", true},
		{"empty header", "", "", false},
		{"no scheme", "abc.def.ghi", "", false},
		{"wrong scheme", "Basic abc", "", false},
		{"scheme only", "Bearer ", "", false},
		{"lowercase scheme", "bearer abc", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, ok := ExtractBearer(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.token, token)
		})
	}
}

func TestValidateToken_Valid_ReturnsSubject(t *testing.T) {
	v, key := newTestVerifier(t)

	sub, err := v.ValidateToken(signToken(t, key, jwt.SigningMethodRS256, validClaims()))

	require.NoError(t, err)
	assert.Equal(t, "user-abc", sub)
}

func TestValidateToken_OidFallback(t *testing.T) {
	v, key := newTestVerifier(t)
	claims := validClaims()
	delete(claims, "sub")
	claims["oid"] = "object-xyz"

	sub, err := v.ValidateToken(signToken(t, key, jwt.SigningMethodRS256, claims))

	require.NoError(t, err)
	assert.Equal(t, "object-xyz", sub)
}

func TestValidateToken_WrongAudience(t *testing.T) {
	v, key := newTestVerifier(t)
	claims := validClaims()
	claims["aud"] = "someone-elses-app"

	_, err := v.ValidateToken(signToken(t, key, jwt.SigningMethodRS256, claims))

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_WrongIssuer(t *testing.T) {
	v, key := newTestVerifier(t)
	claims := validClaims()
	claims["iss"] = "https://evil.example.com/v2.0/"

	_, err := v.ValidateToken(signToken(t, key, jwt.SigningMethodRS256, claims))

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Expired(t *testing.T) {
	v, key := newTestVerifier(t)
	claims := validClaims()
	claims["exp"] = time.Now().Add(-time.Hour).Unix()

	_, err := v.ValidateToken(signToken(t, key, jwt.SigningMethodRS256, claims))

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_MissingExpiry(t *testing.T) {
	v, key := newTestVerifier(t)
	claims := validClaims()
	delete(claims, "exp")

	_, err := v.ValidateToken(signToken(t, key, jwt.SigningMethodRS256, claims))

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_RejectsHS256(t *testing.T) {
	// alg confusion: an HMAC token must never pass, whatever the key.
	v, key := newTestVerifier(t)

	_, err := v.ValidateToken(signToken(t, key, jwt.SigningMethodHS256, validClaims()))

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_WrongKey(t *testing.T) {
	v, _ := newTestVerifier(t)
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	_, err = v.ValidateToken(signToken(t, otherKey, jwt.SigningMethodRS256, validClaims()))

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Garbage(t *testing.T) {
	v, _ := newTestVerifier(t)

	_, err := v.ValidateToken("not-a-jwt")

	assert.ErrorIs(t, err, ErrInvalidToken)
}
