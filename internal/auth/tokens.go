package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

// Claims carried by a session token. The token binds a client to exactly
// one question-answering session.
type Claims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and validates session tokens. JTIs are tracked in
// Redis so a session reset or expiry can revoke outstanding tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	rdb    *redis.Client
}

func NewTokenIssuer(secret string, ttl time.Duration, rdb *redis.Client) (*TokenIssuer, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("session token secret must be at least 32 characters")
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, rdb: rdb}, nil
}

// Issue creates a signed token for the session, valid for the session TTL.
func (t *TokenIssuer) Issue(ctx context.Context, sessionID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(t.ttl)
	claims := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   sessionID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "pdf-qa-service",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	if err := t.rdb.Set(ctx, "session_token:"+sessionID, "1", t.ttl).Err(); err != nil {
		return "", time.Time{}, err
	}

	return signed, exp, nil
}

// Validate parses the token and checks that it has not been revoked.
func (t *TokenIssuer) Validate(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Prevent algorithm confusion attacks
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	exists, err := t.rdb.Exists(ctx, "session_token:"+claims.SessionID).Result()
	if err != nil || exists != 1 {
		return nil, errors.New("token revoked or expired")
	}

	return claims, nil
}

// Revoke invalidates all tokens for the session.
func (t *TokenIssuer) Revoke(ctx context.Context, sessionID string) error {
	return t.rdb.Del(ctx, "session_token:"+sessionID).Err()
}
