package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

type stubConn struct{ connected bool }

func (s stubConn) IsConnected() bool { return s.connected }

func serve(e *echo.Echo, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthEndpoints_Healthy(t *testing.T) {
	svc := NewHealthService(nil)
	svc.AddChecker("postgres", NewPingChecker(stubPinger{}))
	svc.AddChecker("redis", NewPingChecker(nil))
	svc.AddChecker("nats", NewNATSHealthChecker(stubConn{connected: true}))

	e := echo.New()
	RegisterEnhancedHealthEndpoints(e, "payment-service", "1.0.0", svc)

	rec := serve(e, "/health/detailed")
	require.Equal(t, http.StatusOK, rec.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "payment-service", body.Service)
	assert.Equal(t, "1.0.0", body.Version)
	assert.Len(t, body.Dependencies, 3)

	assert.Equal(t, http.StatusOK, serve(e, "/health").Code)
	assert.Equal(t, http.StatusOK, serve(e, "/health/ready").Code)
	assert.Equal(t, http.StatusOK, serve(e, "/health/live").Code)
}

func TestHealthEndpoints_Unhealthy(t *testing.T) {
	svc := NewHealthService(nil)
	svc.AddChecker("postgres", NewPingChecker(stubPinger{err: errors.New("connection refused")}))
	svc.AddChecker("nats", NewNATSHealthChecker(stubConn{connected: false}))

	e := echo.New()
	RegisterEnhancedHealthEndpoints(e, "payment-service", "1.0.0", svc)

	rec := serve(e, "/health/detailed")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Dependencies["postgres"].Error)
	assert.Equal(t, "NATS not connected", body.Dependencies["nats"].Error)

	assert.Equal(t, http.StatusServiceUnavailable, serve(e, "/health/ready").Code)
	assert.Equal(t, http.StatusOK, serve(e, "/health/live").Code)
}
