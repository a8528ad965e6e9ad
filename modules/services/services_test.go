package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"datingapp/modules/db"
	"datingapp/modules/middleware"
	"datingapp/modules/oapi"
	"datingapp/modules/server"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkFunc func(ctx context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func healthy(context.Context) error { return nil }

func TestHealthz(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]db.HealthManager
		wantStatus int
		wantParams []string
	}{
		{
			name:       "all healthy",
			checks:     map[string]db.HealthManager{"postgres": checkFunc(healthy), "redis": checkFunc(healthy)},
			wantStatus: http.StatusNoContent,
		},
		{
			name: "redis down",
			checks: map[string]db.HealthManager{
				"postgres": checkFunc(healthy),
				"redis":    checkFunc(func(context.Context) error { return errors.New("dial tcp: refused") }),
			},
			wantStatus: http.StatusServiceUnavailable,
			wantParams: []string{"redis"},
		},
		{
			name:       "no dependencies",
			checks:     nil,
			wantStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			NewHealthService(tt.checks).Register(mux)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantParams == nil {
				assert.Empty(t, rec.Body.String())
				return
			}

			var body struct {
				InvalidParams []struct {
					Name string `json:"name"`
				} `json:"invalidParams"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			var names []string
			for _, p := range body.InvalidParams {
				names = append(names, p.Name)
			}
			assert.ElementsMatch(t, tt.wantParams, names)
			assert.NotContains(t, rec.Body.String(), "refused")
		})
	}
}

func TestImageService_MountsHandler(t *testing.T) {
	var got string
	files := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.PathValue("name")
		w.WriteHeader(http.StatusOK)
	})

	mux := http.NewServeMux()
	NewImageService(files).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/abc.jpg", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc.jpg", got)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/images/abc.jpg", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestContractService_RejectsUnknownRoutes(t *testing.T) {
	doc, err := middleware.LoadDocument(context.Background(), oapi.FS, oapi.DocumentPath)
	require.NoError(t, err)

	s, err := server.New("127.0.0.1", 8080,
		server.WithServices(NewHealthService(nil), NewContractService(doc)),
	)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}
