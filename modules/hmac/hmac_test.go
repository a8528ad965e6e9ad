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

package hmac

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify_RoundTrip(t *testing.T) {
	s, err := NewHMACSigner([]byte("k"))
	require.NoError(t, err)

	tok, err := s.Sign([]byte("payload"))
	require.NoError(t, err)

	got, err := s.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}

func TestVerify_RejectsTamperedAndForeignTokens(t *testing.T) {
	s, _ := NewHMACSigner([]byte("k"))
	other, _ := NewHMACSigner([]byte("other"))

	tok, _ := s.Sign([]byte("payload"))
	foreign, _ := other.Sign([]byte("payload"))

	for _, bad := range []string{"", "nodot", tok + "x", tok + ".extra", foreign} {
		_, err := s.Verify(bad)
		assert.ErrorIs(t, err, ErrInvalidToken, bad)
	}
}

func TestNewHMACSigner_EmptyKey(t *testing.T) {
	_, err := NewHMACSigner(nil)
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestExpiring(t *testing.T) {
	s, _ := NewHMACSigner([]byte("k"))
	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }

	type cursor struct {
		Before string `json:"b"`
	}

	tok, err := SignExpiring(s, cursor{Before: "abc"}, time.Minute)
	require.NoError(t, err)

	got, err := VerifyExpiring[cursor](s, tok)
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Before)

	now = now.Add(2 * time.Minute)
	_, err = VerifyExpiring[cursor](s, tok)
	assert.ErrorIs(t, err, ErrExpiredToken)
}
