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

package auth

import (
	"context"
	"testing"
	"time"

	"datingapp/modules/clock"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T, now *time.Time) *TokenService {
	t.Helper()
	s, err := NewTokenService(JWTConfig{Secret: "s3cret", Issuer: "datingapp", TTL: time.Hour},
		clock.Func(func() time.Time { return *now }))
	require.NoError(t, err)
	return s
}

func TestTokenService_IssueVerify(t *testing.T) {
	now := time.Now()
	s := newTestService(t, &now)

	want := Principal{MemberID: uuid.Must(uuid.NewV7()), Username: "lisa", Roles: []string{RoleMember}}
	tok, err := s.Issue(want)
	require.NoError(t, err)

	for _, raw := range []string{tok, "Bearer " + tok, "bearer  " + tok} {
		got, err := s.Verify(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, "lisa", s.SubjectOf(tok))
}

func TestTokenService_Expired(t *testing.T) {
	now := time.Now()
	s := newTestService(t, &now)

	tok, err := s.Issue(Principal{MemberID: uuid.Must(uuid.NewV7()), Username: "lisa"})
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = s.Verify(tok)
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Empty(t, s.SubjectOf(tok))
}

func TestTokenService_Rejects(t *testing.T) {
	now := time.Now()
	s := newTestService(t, &now)
	other, err := NewTokenService(JWTConfig{Secret: "other", Issuer: "datingapp", TTL: time.Hour}, nil)
	require.NoError(t, err)

	foreign, _ := other.Issue(Principal{MemberID: uuid.Must(uuid.NewV7()), Username: "lisa"})

	_, err = s.Verify("")
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = s.Verify("Bearer garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = s.Verify(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPrincipalContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	p := Principal{Username: "todd", Roles: []string{RoleMember, RoleModerator}}
	got, ok := FromContext(WithPrincipal(context.Background(), p))
	require.True(t, ok)
	assert.True(t, got.HasRole(RoleModerator))
	assert.False(t, got.HasRole(RoleAdmin))
	assert.True(t, got.HasAnyRole(RoleAdmin, RoleModerator))
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("Pa$$w0rd")
	require.NoError(t, err)

	assert.NoError(t, h.Compare(hash, "Pa$$w0rd"))
	assert.ErrorIs(t, h.Compare(hash, "wrong"), ErrPasswordMismatch)
}
