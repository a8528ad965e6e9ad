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

// Package problem writes RFC 7807 Problem Details responses.
package problem

import (
	"encoding/json"
	"net/http"
)

const ContentType = "application/problem+json"

// Problem is an RFC 7807 document. Extensions are merged into the top-level
// object when encoded.
type Problem struct {
	Type          *string         `json:"type,omitempty"`
	Title         string          `json:"title"`
	Status        int             `json:"status"`
	Detail        *string         `json:"detail,omitempty"`
	Instance      *string         `json:"instance,omitempty"`
	Code          *string         `json:"code,omitempty"`
	TraceID       *string         `json:"traceId,omitempty"`
	InvalidParams *[]InvalidParam `json:"invalidParams,omitempty"`

	Extensions map[string]any `json:"-"`
}

type InvalidParam struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type Option func(*Problem)

func New(opts ...Option) *Problem {
	p := &Problem{
		Status: http.StatusInternalServerError,
		Detail: strPtr("unhandled error"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.Type == nil {
		p.Type = strPtr("about:blank")
	}
	if p.Title == "" {
		p.Title = http.StatusText(p.Status)
		if p.Title == "" {
			p.Title = "Unknown Error"
		}
	}
	return p
}

// Write encodes p with its status code. A nil p becomes a 500.
func Write(w http.ResponseWriter, p *Problem) {
	if p == nil {
		p = Internal("server error")
	}
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func WithStatus(status int) Option    { return func(p *Problem) { p.Status = status } }
func WithTitle(title string) Option   { return func(p *Problem) { p.Title = title } }
func WithDetail(detail string) Option { return func(p *Problem) { p.Detail = strPtr(detail) } }
func WithType(typ string) Option      { return func(p *Problem) { p.Type = strPtr(typ) } }
func WithCode(code string) Option     { return func(p *Problem) { p.Code = strPtr(code) } }
func WithInstance(path string) Option { return func(p *Problem) { p.Instance = strPtr(path) } }
func WithTraceID(id string) Option    { return func(p *Problem) { p.TraceID = strPtr(id) } }

func WithInvalidParam(name, reason string) Option {
	return func(p *Problem) {
		var params []InvalidParam
		if p.InvalidParams != nil {
			params = *p.InvalidParams
		}
		params = append(params, InvalidParam{Name: name, Reason: reason})
		p.InvalidParams = &params
	}
}

func WithExtension(key string, value any) Option {
	return func(p *Problem) {
		if p.Extensions == nil {
			p.Extensions = map[string]any{}
		}
		p.Extensions[key] = value
	}
}

func withStatus(status int, detail string, opts []Option) *Problem {
	base := []Option{
		WithStatus(status),
		WithTitle(http.StatusText(status)),
		WithDetail(detail),
	}
	return New(append(base, opts...)...)
}

func BadRequest(detail string, opts ...Option) *Problem {
	return withStatus(http.StatusBadRequest, detail, opts)
}

func Unauthorized(detail string, opts ...Option) *Problem {
	return withStatus(http.StatusUnauthorized, detail, opts)
}

func Forbidden(detail string, opts ...Option) *Problem {
	return withStatus(http.StatusForbidden, detail, opts)
}

func NotFound(detail string, opts ...Option) *Problem {
	return withStatus(http.StatusNotFound, detail, opts)
}

func MethodNotAllowed(detail string, opts ...Option) *Problem {
	return withStatus(http.StatusMethodNotAllowed, detail, opts)
}

func Conflict(detail string, opts ...Option) *Problem {
	return withStatus(http.StatusConflict, detail, opts)
}

func PreconditionFailed(detail string, opts ...Option) *Problem {
	return withStatus(http.StatusPreconditionFailed, detail, opts)
}

func RequestEntityTooLarge(detail string, opts ...Option) *Problem {
	return withStatus(http.StatusRequestEntityTooLarge, detail, opts)
}

func UnsupportedMediaType(detail string, opts ...Option) *Problem {
	return withStatus(http.StatusUnsupportedMediaType, detail, opts)
}

func UnprocessableEntity(detail string, opts ...Option) *Problem {
	return withStatus(http.StatusUnprocessableEntity, detail, opts)
}

func TooManyRequests(detail string, opts ...Option) *Problem {
	return withStatus(http.StatusTooManyRequests, detail, opts)
}

func Internal(detail string, opts ...Option) *Problem {
	return withStatus(http.StatusInternalServerError, detail, opts)
}

func ServiceUnavailable(detail string, opts ...Option) *Problem {
	return withStatus(http.StatusServiceUnavailable, detail, opts)
}

func strPtr(s string) *string { return &s }

// MarshalJSON merges Extensions into the base object. Standard members win
// on key collisions.
func (p Problem) MarshalJSON() ([]byte, error) {
	// alias drops the method set so json.Marshal does not recurse
	type alias Problem
	base, err := json.Marshal(alias(p))
	if err != nil || len(p.Extensions) == 0 {
		return base, err
	}

	var m map[string]any
	if err := json.Unmarshal(base, &m); err != nil {
		return nil, err
	}
	for k, v := range p.Extensions {
		if _, taken := m[k]; !taken {
			m[k] = v
		}
	}
	return json.Marshal(m)
}
