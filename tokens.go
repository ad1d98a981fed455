package recordbase

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Tokens is the credential triple issued by the auth endpoints: an opaque
// bearer token plus optional rotation and anti-forgery secrets. Treat a
// Tokens value as immutable once constructed.
type Tokens struct {
	Auth    string  `json:"auth_token"`
	Refresh *string `json:"refresh_token,omitempty"`
	Csrf    *string `json:"csrf_token,omitempty"`
}

// Valid reports whether the auth token is structurally decodable. It is a
// light-weight "do I have something that looks like a session" check, not a
// trust check.
func (t *Tokens) Valid() bool {
	_, err := DecodeClaims(t.Auth)
	return err == nil
}

// Claims are the decoded payload fields of an auth token. They are derived
// values: re-derive whenever the token changes, never hand-construct.
type Claims struct {
	Subject   string
	IssuedAt  int64
	ExpiresAt int64
	Email     string
	CsrfToken string
}

// User returns the identity the claims describe.
func (c *Claims) User() User {
	return User{ID: c.Subject, Email: c.Email}
}

// User identifies the account behind a session.
type User struct {
	ID    string
	Email string
}

type jwtClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	CsrfToken string `json:"csrf_token"`
}

// DecodeClaims decodes the payload section of an auth token WITHOUT
// verifying the cryptographic signature. Signature verification is the
// server's responsibility; the client only needs claim values for expiry
// bookkeeping and identity display. Callers must not use the result for
// authorization decisions.
//
// Returns an error wrapping ErrMalformedToken if the token is not a valid
// signed-token envelope or a required claim is absent.
func DecodeClaims(auth string) (*Claims, error) {
	var jc jwtClaims
	if _, _, err := jwt.NewParser().ParseUnverified(auth, &jc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedToken, err)
	}

	switch {
	case jc.Subject == "":
		return nil, fmt.Errorf("%w: missing sub claim", ErrMalformedToken)
	case jc.IssuedAt == nil:
		return nil, fmt.Errorf("%w: missing iat claim", ErrMalformedToken)
	case jc.ExpiresAt == nil:
		return nil, fmt.Errorf("%w: missing exp claim", ErrMalformedToken)
	case jc.Email == "":
		return nil, fmt.Errorf("%w: missing email claim", ErrMalformedToken)
	case jc.CsrfToken == "":
		return nil, fmt.Errorf("%w: missing csrf_token claim", ErrMalformedToken)
	}

	return &Claims{
		Subject:   jc.Subject,
		IssuedAt:  jc.IssuedAt.Unix(),
		ExpiresAt: jc.ExpiresAt.Unix(),
		Email:     jc.Email,
		CsrfToken: jc.CsrfToken,
	}, nil
}
