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

package middleware

import (
	"context"
	"errors"
	"net/http"

	"datingapp/modules/auth"
	"datingapp/modules/middleware/problem"

	"github.com/gofrs/uuid/v5"
)

// TokenVerifier turns an Authorization header value into a Principal.
type TokenVerifier interface {
	Verify(raw string) (auth.Principal, error)
}

// ActivityRecorder is told about every authenticated request.
type ActivityRecorder interface {
	Record(ctx context.Context, memberID uuid.UUID)
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller's Principal in the request context.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := verifier.Verify(r.Header.Get("Authorization"))
			if err != nil {
				detail := "invalid token"
				switch {
				case errors.Is(err, auth.ErrMissingToken):
					detail = "missing bearer token"
				case errors.Is(err, auth.ErrExpiredToken):
					detail = "token expired"
				}
				w.Header().Set("WWW-Authenticate", `Bearer realm="datingapp"`)
				problem.Write(w, problem.Unauthorized(detail, problem.WithInstance(r.URL.Path)))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireRole lets the request through when the caller holds any of roles.
// It must run inside Authenticate.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.FromContext(r.Context())
			if !ok {
				problem.Write(w, problem.Unauthorized("missing bearer token"))
				return
			}
			if !p.HasAnyRole(roles...) {
				problem.Write(w, problem.Forbidden("insufficient role", problem.WithInstance(r.URL.Path)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TrackActivity reports the caller to rec once the handler has returned.
func TrackActivity(rec ActivityRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rec == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			if p, ok := auth.FromContext(r.Context()); ok {
				rec.Record(context.WithoutCancel(r.Context()), p.MemberID)
			}
		})
	}
}

// Chain applies mws to h, the first being outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Guard wraps protected routes: authentication, then activity tracking, then
// the optional role check.
type Guard struct {
	Verifier TokenVerifier
	Activity ActivityRecorder
}

func (g Guard) Protect(h http.Handler, roles ...string) http.Handler {
	mws := []func(http.Handler) http.Handler{Authenticate(g.Verifier), TrackActivity(g.Activity)}
	if len(roles) > 0 {
		mws = append(mws, RequireRole(roles...))
	}
	return Chain(h, mws...)
}

func (g Guard) ProtectFunc(h http.HandlerFunc, roles ...string) http.Handler {
	return g.Protect(h, roles...)
}
