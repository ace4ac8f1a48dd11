package main

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const jwtIssuer = "agrowatch"

// signJWT creates an HS256 token for the user, valid for ttl from now.
func signJWT(secret string, userID int64, ttl time.Duration, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(userID, 10),
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
		"iss": jwtIssuer,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// parseJWT validates token and returns the subject as a user id.
func parseJWT(secret, tokenStr string, now func() time.Time) (int64, error) {
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(jwtIssuer), jwt.WithExpirationRequired(), jwt.WithTimeFunc(now))
	if err != nil || !tok.Valid {
		return 0, errors.New("invalid token")
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil || sub == "" {
		return 0, errors.New("no subject")
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("bad subject")
	}
	return id, nil
}
