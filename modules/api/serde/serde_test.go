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

package serde

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginBody struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Password string `json:"password" validate:"required,min=6"`
	Gender   string `json:"gender,omitempty" validate:"omitempty,oneof=male female"`
}

func request(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeValid_OK(t *testing.T) {
	var b loginBody
	err := DecodeValid(httptest.NewRecorder(), request(`{"username":"lisa","password":"secret1"}`), &b)
	require.NoError(t, err)
	assert.Equal(t, "lisa", b.Username)
}

func TestDecodeValid_Malformed(t *testing.T) {
	for _, body := range []string{`{`, `{"unknown":1}`, `{"username":"a"} {}`} {
		var b loginBody
		err := DecodeValid(httptest.NewRecorder(), request(body), &b)
		assert.ErrorIs(t, err, ErrMalformedBody, body)
	}
}

func TestDecodeValid_ReportsJSONFieldNames(t *testing.T) {
	var b loginBody
	err := DecodeValid(httptest.NewRecorder(), request(`{"username":"li","password":"","gender":"other"}`), &b)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	got := map[string]string{}
	for _, f := range verr.Fields {
		got[f.Field] = f.Reason
	}
	assert.Equal(t, "must be at least 3 characters", got["username"])
	assert.Equal(t, "is required", got["password"])
	assert.Equal(t, "must be one of: male female", got["gender"])
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]int{"n": 1})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())
}
