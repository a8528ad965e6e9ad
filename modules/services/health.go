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

package services

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"datingapp/modules/db"
	"datingapp/modules/middleware/problem"
	"datingapp/modules/server"
)

var _ server.RegistrableService = (*HealthService)(nil)

// HealthCheckTimeout bounds a single /healthz check.
const HealthCheckTimeout = 2 * time.Second

// HealthService answers liveness checks by pinging every dependency.
type HealthService struct {
	checks map[string]db.HealthManager
}

func NewHealthService(checks map[string]db.HealthManager) *HealthService {
	return &HealthService{checks: checks}
}

func (s *HealthService) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.healthz)
}

func (s *HealthService) Middlewares() []func(http.Handler) http.Handler {
	return nil
}

func (s *HealthService) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), HealthCheckTimeout)
	defer cancel()

	var opts []problem.Option
	for name, check := range s.checks {
		if err := check.HealthCheck(ctx); err != nil {
			slog.WarnContext(ctx, "health check failed", slog.String("dependency", name), slog.Any("error", err))
			opts = append(opts, problem.WithInvalidParam(name, "unavailable"))
		}
	}
	if len(opts) > 0 {
		opts = append(opts, problem.WithInstance(r.URL.Path))
		problem.Write(w, problem.ServiceUnavailable("dependency unavailable", opts...))
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNoContent)
}
