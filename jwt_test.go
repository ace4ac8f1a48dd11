package main

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestJWT_RoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	tok, err := signJWT("s3cret", 42, time.Hour, now)
	require.NoError(t, err)

	id, err := parseJWT("s3cret", tok, fixedNow(now.Add(59*time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestJWT_Rejects(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	valid, err := signJWT("s3cret", 42, time.Hour, now)
	require.NoError(t, err)

	sign := func(claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
		require.NoError(t, err)
		return s
	}
	exp := now.Add(time.Hour).Unix()

	tests := []struct {
		name   string
		secret string
		token  string
		at     time.Time
	}{
		{name: "expired", secret: "s3cret", token: valid, at: now.Add(2 * time.Hour)},
		{name: "wrong secret", secret: "other", token: valid, at: now},
		{name: "garbage", secret: "s3cret", token: "a.b.c", at: now},
		{name: "wrong issuer", secret: "s3cret", token: sign(jwt.MapClaims{"sub": "42", "exp": exp, "iss": "elsewhere"}), at: now},
		{name: "no expiry", secret: "s3cret", token: sign(jwt.MapClaims{"sub": "42", "iss": jwtIssuer}), at: now},
		{name: "non-numeric subject", secret: "s3cret", token: sign(jwt.MapClaims{"sub": "abc", "exp": exp, "iss": jwtIssuer}), at: now},
		{name: "zero subject", secret: "s3cret", token: sign(jwt.MapClaims{"sub": "0", "exp": exp, "iss": jwtIssuer}), at: now},
		{name: "no subject", secret: "s3cret", token: sign(jwt.MapClaims{"exp": exp, "iss": jwtIssuer}), at: now},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseJWT(tt.secret, tt.token, fixedNow(tt.at))
			assert.Error(t, err)
		})
	}
}
