package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shubhamforall/petstore-api/apperror"
	"github.com/shubhamforall/petstore-api/models"
)

var alice = Identity{UserID: "u-1", Email: "alice@example.com", Role: models.RoleAdmin}

func newService(t *testing.T, opts ...TokenOption) *TokenService {
	t.Helper()
	s, err := NewTokenService("secret", time.Hour, opts...)
	require.NoError(t, err)
	return s
}

func TestIssueAndVerify(t *testing.T) {
	s := newService(t, WithIssuer("petstore-api"))
	token, exp, err := s.Issue(alice)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	got, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, alice, got)
}

func TestVerifyExpired(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	s := newService(t, WithClock(func() time.Time { return past }))
	token, _, err := s.Issue(alice)
	require.NoError(t, err)

	_, err = s.Verify(token)
	var ae *apperror.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "TOKEN_EXPIRED", ae.Code)
}

func TestVerifyRejectsTampering(t *testing.T) {
	s := newService(t)
	token, _, err := s.Issue(alice)
	require.NoError(t, err)

	other, err := NewTokenService("other-secret", time.Hour)
	require.NoError(t, err)

	cases := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": token,
		"truncated":    token[:len(token)-4],
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			verifier := s
			if name == "wrong secret" {
				verifier = other
			}
			_, err := verifier.Verify(raw)
			var ae *apperror.Error
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, "TOKEN_INVALID", ae.Code)
		})
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	s := newService(t)
	claims := &Claims{Email: alice.Email, Role: alice.Role, RegisteredClaims: jwt.RegisteredClaims{
		Subject:   alice.UserID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = s.Verify(raw)
	assert.ErrorContains(t, err, "TOKEN_INVALID")
}

func TestVerifyRejectsUnknownRole(t *testing.T) {
	s := newService(t)
	token, _, err := s.Issue(Identity{UserID: "u-2", Email: "x@example.com", Role: "Root"})
	require.NoError(t, err)

	_, err = s.Verify(token)
	assert.ErrorContains(t, err, "TOKEN_INVALID")
}

func TestVerifyRequiresExpiry(t *testing.T) {
	s := newService(t)
	claims := &Claims{Email: alice.Email, Role: alice.Role, RegisteredClaims: jwt.RegisteredClaims{Subject: alice.UserID}}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = s.Verify(raw)
	assert.ErrorContains(t, err, "TOKEN_INVALID")
}

func TestBearerToken(t *testing.T) {
	raw, err := BearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", raw)

	raw, err = BearerToken("bearer   xyz ")
	require.NoError(t, err)
	assert.Equal(t, "xyz", raw)

	for _, h := range []string{"", "Bearer", "Bearer   ", "Basic abc", "abc"} {
		_, err := BearerToken(h)
		assert.ErrorContains(t, err, "TOKEN_MISSING", "header %q", h)
	}
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	_, err := NewTokenService(" ", time.Hour)
	assert.Error(t, err)
	_, err = NewTokenService("s", 0)
	assert.Error(t, err)
}
