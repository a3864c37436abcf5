package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HS256Validator validates HMAC-signed reviewer tokens.
type HS256Validator struct {
	key    []byte
	issuer string
	leeway time.Duration
}

type ValidatorOption func(*HS256Validator)

// WithIssuer requires the iss claim to match.
func WithIssuer(iss string) ValidatorOption {
	return func(v *HS256Validator) { v.issuer = iss }
}

func WithLeeway(d time.Duration) ValidatorOption {
	return func(v *HS256Validator) { v.leeway = d }
}

func NewHS256Validator(signingKey string, opts ...ValidatorOption) (*HS256Validator, error) {
	if signingKey == "" {
		return nil, errors.New("jwt signing key is required")
	}
	v := &HS256Validator{key: []byte(signingKey), leeway: 30 * time.Second}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

func (v *HS256Validator) ValidateToken(tokenString string) (*Claims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	}, parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return &Claims{Subject: claims.Subject, JTI: claims.ID}, nil
}

// IssueToken signs a reviewer token. Used by the CLI and tests.
func IssueToken(signingKey, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
