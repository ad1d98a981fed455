package recordbase

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

type tokenOverride func(jwt.MapClaims)

// makeToken signs a syntactically valid auth token. The signature key is
// irrelevant: claims are decoded without verification.
func makeToken(t *testing.T, overrides ...tokenOverride) string {
	t.Helper()

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":        "user-1",
		"iat":        now.Unix(),
		"exp":        now.Add(time.Hour).Unix(),
		"email":      "user@test.org",
		"csrf_token": "csrf-abc",
	}
	for _, o := range overrides {
		o(claims)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return signed
}

func expiringAt(exp time.Time) tokenOverride {
	return func(c jwt.MapClaims) { c["exp"] = exp.Unix() }
}

func withoutClaim(name string) tokenOverride {
	return func(c jwt.MapClaims) { delete(c, name) }
}

func TestDecodeClaims(t *testing.T) {
	now := time.Now()
	auth := makeToken(t, expiringAt(now.Add(30*time.Minute)))

	claims, err := DecodeClaims(auth)
	require.NoError(t, err)

	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "user@test.org", claims.Email)
	require.Equal(t, "csrf-abc", claims.CsrfToken)
	require.Equal(t, now.Add(30*time.Minute).Unix(), claims.ExpiresAt)
	require.InDelta(t, now.Unix(), claims.IssuedAt, 2)
}

func TestDecodeClaims_MissingRequiredClaim(t *testing.T) {
	for _, name := range []string{"sub", "iat", "exp", "email", "csrf_token"} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeClaims(makeToken(t, withoutClaim(name)))
			require.ErrorIs(t, err, ErrMalformedToken)
		})
	}
}

func TestDecodeClaims_Garbage(t *testing.T) {
	for _, auth := range []string{"", "not-a-token", "a.b", "a.b.c"} {
		if _, err := DecodeClaims(auth); !errors.Is(err, ErrMalformedToken) {
			t.Fatalf("DecodeClaims(%q) err = %v, want ErrMalformedToken", auth, err)
		}
	}
}

func TestTokensValid(t *testing.T) {
	good := Tokens{Auth: makeToken(t)}
	if !good.Valid() {
		t.Fatal("expected decodable token to be valid")
	}

	bad := Tokens{Auth: "garbage"}
	if bad.Valid() {
		t.Fatal("expected garbage token to be invalid")
	}
}

func TestClaimsUser(t *testing.T) {
	claims, err := DecodeClaims(makeToken(t))
	require.NoError(t, err)

	user := claims.User()
	require.Equal(t, User{ID: "user-1", Email: "user@test.org"}, user)
}
