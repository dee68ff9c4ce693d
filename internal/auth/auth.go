package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrBadToken = errors.New("invalid token")

type Claims struct {
	ClientID string `json:"cid"`
	jwt.RegisteredClaims
}

// MakeToken issues an HS256 token for a calling client.
func MakeToken(clientID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := Claims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// ParseToken accepts only HS256 tokens that name a client and carry an
// expiry. Every failure wraps ErrBadToken.
func ParseToken(raw, secret string) (*Claims, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(raw, &c,
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	if c.ClientID == "" {
		return nil, fmt.Errorf("%w: no client id", ErrBadToken)
	}
	return &c, nil
}
