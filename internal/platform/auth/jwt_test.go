package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func sign(t *testing.T, claims tokenClaims, key string) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return raw
}

func validClaims() tokenClaims {
	return tokenClaims{
		Roles:   []string{"pets.clerk"},
		Tenants: []string{"t1"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "platform",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestVerify(t *testing.T) {
	v, err := NewVerifier(secret, "platform", "", time.Second)
	require.NoError(t, err)

	p, err := v.Verify(sign(t, validClaims(), secret))
	require.NoError(t, err)
	require.Equal(t, "user-1", p.Subject)
	require.True(t, p.HasRole("pets.admin", "pets.clerk"))
	require.False(t, p.HasRole("store.admin"))
	require.True(t, p.AllowsTenant("t1"))
	require.False(t, p.AllowsTenant("t2"))
}

func TestVerify_Rejects(t *testing.T) {
	v, err := NewVerifier(secret, "platform", "", 0)
	require.NoError(t, err)

	_, err = v.Verify("")
	require.ErrorIs(t, err, ErrMissingToken)

	_, err = v.Verify(sign(t, validClaims(), "other-secret"))
	require.ErrorIs(t, err, ErrInvalidToken)

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	_, err = v.Verify(sign(t, expired, secret))
	require.ErrorIs(t, err, ErrInvalidToken)

	noExp := validClaims()
	noExp.ExpiresAt = nil
	_, err = v.Verify(sign(t, noExp, secret))
	require.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "elsewhere"
	_, err = v.Verify(sign(t, wrongIssuer, secret))
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewVerifier(" ", "", "", 0)
	require.Error(t, err)
}

func TestBearerTokenAndContext(t *testing.T) {
	tok, ok := BearerToken("bearer abc")
	require.True(t, ok)
	require.Equal(t, "abc", tok)
	_, ok = BearerToken("Basic abc")
	require.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{Subject: "u"})
	p, ok := PrincipalFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "u", p.Subject)
	require.True(t, p.AllowsTenant("any"))
}
