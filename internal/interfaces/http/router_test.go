package http

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/granite-grc/granite/internal/infrastructure/monitoring/logging"
	"github.com/granite-grc/granite/internal/infrastructure/monitoring/prometheus"
	"github.com/granite-grc/granite/internal/interfaces/http/handlers"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestRouterHealthAndMetrics(t *testing.T) {
	collector := prometheus.NewCollector()
	r := NewRouter(gin.TestMode, RouterDeps{
		Health:         handlers.NewHealthHandler("test", map[string]handlers.Pinger{"postgres": fakePinger{}}),
		Logger:         logging.NewNopLogger(),
		Observer:       collector,
		MetricsPath:    "/metrics",
		MetricsHandler: collector.Handler(),
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "granite_http_requests_total")
}

func TestRouterReadyzDegraded(t *testing.T) {
	r := NewRouter(gin.TestMode, RouterDeps{
		Health: handlers.NewHealthHandler("test", map[string]handlers.Pinger{
			"postgres": fakePinger{err: stderrors.New("connection refused")},
		}),
		Logger: logging.NewNopLogger(),
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestRouterRequestIDAssigned(t *testing.T) {
	r := NewRouter(gin.TestMode, RouterDeps{
		Health: handlers.NewHealthHandler("test", nil),
		Logger: logging.NewNopLogger(),
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
