package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		method   string
		wantBody string
	}{
		{http.MethodGet, healthResponse},
		{http.MethodHead, ""},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			rec := httptest.NewRecorder()
			healthHandler(rec, httptest.NewRequest(tt.method, "/healthz", nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
			assert.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}

func serveReadiness(t *testing.T, h *ReadinessHandler) (int, readinessBody) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	var body readinessBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestReadinessHandler(t *testing.T) {
	ok := func(context.Context) error { return nil }

	t.Run("all checks pass", func(t *testing.T) {
		code, body := serveReadiness(t, &ReadinessHandler{Checks: []ReadinessCheck{
			{Name: "database", Probe: ok},
			{Name: "cache", Probe: ok},
		}})
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ready", body.Status)
		assert.Equal(t, map[string]string{"database": "ok", "cache": "ok"}, body.Checks)
	})

	t.Run("failing check hides the error", func(t *testing.T) {
		code, body := serveReadiness(t, &ReadinessHandler{Checks: []ReadinessCheck{
			{Name: "database", Probe: ok},
			{Name: "cache", Probe: func(context.Context) error { return errors.New("dial redis:6379: password=hunter2") }},
		}})
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "not_ready", body.Status)
		assert.Equal(t, "unavailable", body.Checks["cache"])
		assert.Equal(t, "ok", body.Checks["database"])
	})

	t.Run("slow check is bounded by the timeout", func(t *testing.T) {
		slow := func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}
		start := time.Now()
		code, body := serveReadiness(t, &ReadinessHandler{
			Checks:  []ReadinessCheck{{Name: "database", Probe: slow}},
			Timeout: 50 * time.Millisecond,
		})
		assert.Less(t, time.Since(start), time.Second)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unavailable", body.Checks["database"])
	})
}
