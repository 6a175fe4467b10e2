package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenClaims mirrors the payload clients already decode: the user id under
// "_id" plus the username.
type tokenClaims struct {
	UserID   string `json:"_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWT is an HMAC-SHA256 Verifier and Issuer. A zero TTL issues tokens
// without an expiry.
type JWT struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWT returns a JWT keyed with secret.
func NewJWT(secret string, ttl time.Duration) (*JWT, error) {
	if secret == "" {
		return nil, errors.New("auth: jwt secret must not be empty")
	}
	return &JWT{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for id.
func (j *JWT) Issue(id Identity) (string, error) {
	now := j.now()
	claims := tokenClaims{
		UserID:   id.UserID,
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  id.UserID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if j.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(j.ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates token.
func (j *JWT) Verify(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrMissingToken
	}

	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return j.secret, nil
	}, jwt.WithTimeFunc(j.now))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return Identity{UserID: claims.UserID, Username: claims.Username}, nil
}
