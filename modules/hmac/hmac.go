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

// Package hmac signs opaque tokens handed to clients, such as thread cursors.
// A token is base64url(payload) "." base64url(HMAC-SHA256(base64url(payload))).
package hmac

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// DevSecret is the default secret. Production config rejects it.
const DevSecret = "dev-only-cursor-secret"

type HMACConfig struct {
	Secret string `env:"SECRET" envDefault:"dev-only-cursor-secret"`
}

var (
	ErrMissingKey   = errors.New("missing hmac key")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

type HMACSigner struct {
	key []byte
	now func() time.Time
}

func NewHMACSigner(secret []byte) (*HMACSigner, error) {
	if len(secret) == 0 {
		return nil, ErrMissingKey
	}
	return &HMACSigner{key: secret, now: time.Now}, nil
}

func (h *HMACSigner) mac(payloadB64 string) []byte {
	m := hmac.New(sha256.New, h.key)
	_, _ = m.Write([]byte(payloadB64))
	return m.Sum(nil)
}

func (h *HMACSigner) Sign(payload []byte) (string, error) {
	payloadB64 := base64.RawURLEncoding.EncodeToString(payload)
	return payloadB64 + "." + base64.RawURLEncoding.EncodeToString(h.mac(payloadB64)), nil
}

func (h *HMACSigner) Verify(token string) ([]byte, error) {
	payloadB64, sigB64, ok := strings.Cut(token, ".")
	if !ok || strings.Contains(sigB64, ".") {
		return nil, ErrInvalidToken
	}

	got, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil || !hmac.Equal(h.mac(payloadB64), got) {
		return nil, ErrInvalidToken
	}

	payload, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return payload, nil
}

type envelope[T any] struct {
	Exp  int64 `json:"exp"`
	Data T     `json:"d"`
}

// SignExpiring signs v as JSON together with an expiry ttl from now.
func SignExpiring[T any](h *HMACSigner, v T, ttl time.Duration) (string, error) {
	bs, err := json.Marshal(envelope[T]{Exp: h.now().Add(ttl).Unix(), Data: v})
	if err != nil {
		return "", err
	}
	return h.Sign(bs)
}

// VerifyExpiring is the inverse of SignExpiring.
func VerifyExpiring[T any](h *HMACSigner, token string) (T, error) {
	var zero T

	raw, err := h.Verify(token)
	if err != nil {
		return zero, err
	}

	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return zero, ErrInvalidToken
	}
	if h.now().Unix() >= env.Exp {
		return zero, ErrExpiredToken
	}
	return env.Data, nil
}
