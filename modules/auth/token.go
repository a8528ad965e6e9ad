// Copyright 2025 Nhat-Nguyen Nguyen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package auth issues and verifies bearer tokens, hashes passwords and
// carries the authenticated principal through request contexts.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"datingapp/modules/clock"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

// DevSecret is the default signing secret. Production config rejects it.
const DevSecret = "dev-only-jwt-secret-change-me"

type JWTConfig struct {
	Secret string        `env:"SECRET" envDefault:"dev-only-jwt-secret-change-me"`
	Issuer string        `env:"ISSUER" envDefault:"datingapp"`
	TTL    time.Duration `env:"TTL" envDefault:"168h"`
}

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims is the token body. Subject holds the username.
type Claims struct {
	MemberID string   `json:"mid"`
	Roles    []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 tokens.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  clock.Clock
}

func NewTokenService(cfg JWTConfig, c clock.Clock) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: jwt secret must not be empty")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("auth: jwt ttl must be positive")
	}
	if c == nil {
		c = clock.RealClockProvider()
	}
	return &TokenService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		clock:  c,
	}, nil
}

func (s *TokenService) Issue(p Principal) (string, error) {
	now := s.clock.Now()
	claims := Claims{
		MemberID: p.MemberID.String(),
		Roles:    p.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Username,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify parses raw, with or without the "Bearer " prefix, into a Principal.
func (s *TokenService) Verify(raw string) (Principal, error) {
	raw = strings.TrimSpace(raw)
	if rest, ok := cutBearer(raw); ok {
		raw = rest
	}
	if raw == "" {
		return Principal{}, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, ErrExpiredToken
		}
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := uuid.FromString(claims.MemberID)
	if err != nil || claims.Subject == "" {
		return Principal{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return Principal{MemberID: id, Username: claims.Subject, Roles: claims.Roles}, nil
}

// SubjectOf returns the username inside a valid token, or "" otherwise.
func (s *TokenService) SubjectOf(raw string) string {
	p, err := s.Verify(raw)
	if err != nil {
		return ""
	}
	return p.Username
}

func cutBearer(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
