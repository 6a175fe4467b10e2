// Package auth verifies and issues bearer tokens and hashes user passwords.
//
// The dispatcher only depends on the Verifier contract; identity-establishing
// handlers additionally use an Issuer to hand a fresh token to the caller.
package auth

import "errors"

// Identity is the authenticated caller bound to a request or a connection.
type Identity struct {
	UserID   string `json:"_id"`
	Username string `json:"username"`
}

// Verification failures. Callers match them with errors.Is.
var (
	ErrMissingToken = errors.New("auth: missing token")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Verifier validates a bearer token and returns the identity it encodes.
// It returns ErrMissingToken for an empty token and an error wrapping
// ErrInvalidToken for anything that does not verify.
type Verifier interface {
	Verify(token string) (Identity, error)
}

// Issuer signs a token for an identity.
type Issuer interface {
	Issue(id Identity) (string, error)
}
