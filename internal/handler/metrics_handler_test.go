package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
)

func TestMetricsEndpoints(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.ObserveGeneration("PartialWithUnplaced", 40*time.Millisecond, 3, 1)
	router := newTestRouter(Handlers{Metrics: NewMetricsHandler(metrics, nil)})

	resp := performRequest(router, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = performRequest(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "scheduler_sessions_unplaced_total")

	resp = performRequest(router, withRole(httptest.NewRequest(http.MethodGet, "/api/v1/metrics/summary", nil), models.RoleTeacher, "teacher-1"))
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = performRequest(router, withRole(httptest.NewRequest(http.MethodGet, "/api/v1/metrics/summary", nil), models.RoleAdmin, "admin-1"))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"sessionsUnplaced":1`)
}

func TestReadyReportsDependencies(t *testing.T) {
	healthy := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	router := newTestRouter(Handlers{Metrics: NewMetricsHandler(nil, map[string]Pinger{"database": healthy})})
	resp := performRequest(router, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"database":"ok"`)

	router = newTestRouter(Handlers{Metrics: NewMetricsHandler(nil, map[string]Pinger{"database": healthy, "redis": down})})
	resp = performRequest(router, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Contains(t, resp.Body.String(), `"redis":"connection refused"`)
	assert.Contains(t, resp.Body.String(), `"status":"unavailable"`)
}
