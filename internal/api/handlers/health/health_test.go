package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ingredient-analyzer/internal/core/ai/queue"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) Ping(ctx context.Context) error { return p.err }

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", h.HealthCheck)
	r.GET("/ready", h.ReadinessCheck)
	r.GET("/live", h.LivenessCheck)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthCheckReportsDependencies(t *testing.T) {
	q := queue.New(2, 5)
	h := NewHandler(Dependencies{
		Version:          "1.2.3",
		ReasoningEnabled: true,
		Model:            "llama",
		ReasoningReady:   func() bool { return true },
		Queue:            q,
	})

	w := serve(h, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":"1.2.3"`)
	assert.Contains(t, w.Body.String(), `"initialized":true`)
	assert.Contains(t, w.Body.String(), `"workers":2`)
	assert.Contains(t, w.Body.String(), `"ocr_available":false`)
}

func TestReadinessCheck(t *testing.T) {
	assert.Equal(t, http.StatusOK, serve(NewHandler(Dependencies{}), "/ready").Code)
	assert.Equal(t, http.StatusOK, serve(NewHandler(Dependencies{Store: pinger{}}), "/ready").Code)
	assert.Equal(t, http.StatusServiceUnavailable,
		serve(NewHandler(Dependencies{Store: pinger{err: errors.New("down")}}), "/ready").Code)
}

func TestLivenessCheck(t *testing.T) {
	w := serve(NewHandler(Dependencies{}), "/live")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"alive"}`, w.Body.String())
}
