package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type exportManagerMock struct {
	requested dto.CreateExportRequest
	runID     string
	actor     string
	role      models.UserRole
	filePath  string
}

func (m *exportManagerMock) Request(_ context.Context, runID string, req dto.CreateExportRequest, actorID string) (*models.ExportJob, error) {
	m.runID = runID
	m.requested = req
	m.actor = actorID
	return &models.ExportJob{ID: "export-1", RunID: runID, Status: models.ExportStatusQueued}, nil
}

func (m *exportManagerMock) Status(_ context.Context, id, actorID string, role models.UserRole) (*dto.ExportStatusResponse, error) {
	m.actor = actorID
	m.role = role
	if id != "export-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	url := "/api/v1/exports/download/signed"
	return &dto.ExportStatusResponse{Job: models.ExportJob{ID: id, Status: models.ExportStatusFinished}, DownloadURL: &url}, nil
}

func (m *exportManagerMock) ResolveDownload(_ context.Context, token string) (*service.ExportDownload, error) {
	if token != "signed" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	file, err := os.Open(m.filePath)
	if err != nil {
		return nil, err
	}
	return &service.ExportDownload{File: file, Filename: "timetable_run-1.csv", ContentType: "text/csv"}, nil
}

func TestExportRoutes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timetable.csv")
	require.NoError(t, os.WriteFile(path, []byte("Room,Day\nR1,Monday\n"), 0o600))
	mockSvc := &exportManagerMock{filePath: path}
	router := newTestRouter(Handlers{Export: NewExportHandler(mockSvc)})

	t.Run("create", func(t *testing.T) {
		req := withRole(httptest.NewRequest(http.MethodPost, "/api/v1/schedules/runs/run-1/exports", strings.NewReader(`{"format":"pdf","roomIds":["R1"]}`)), models.RoleTeacher, "teacher-1")
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusAccepted, resp.Code)
		assert.Equal(t, "run-1", mockSvc.runID)
		assert.Equal(t, "pdf", mockSvc.requested.Format)
		assert.Equal(t, "teacher-1", mockSvc.actor)
	})

	t.Run("create needs token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/schedules/runs/run-1/exports", strings.NewReader(`{"format":"csv"}`))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("status", func(t *testing.T) {
		resp := performRequest(router, withRole(httptest.NewRequest(http.MethodGet, "/api/v1/exports/export-1", nil), models.RoleStudent, "stu-1"))
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), `"downloadUrl":"/api/v1/exports/download/signed"`)
		assert.Equal(t, models.RoleStudent, mockSvc.role)

		resp = performRequest(router, withRole(httptest.NewRequest(http.MethodGet, "/api/v1/exports/missing", nil), models.RoleAdmin, "admin-1"))
		require.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("download without bearer token", func(t *testing.T) {
		resp := performRequest(router, httptest.NewRequest(http.MethodGet, "/api/v1/exports/download/signed", nil))
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "text/csv", resp.Header().Get("Content-Type"))
		assert.Contains(t, resp.Header().Get("Content-Disposition"), "timetable_run-1.csv")
		assert.Equal(t, "Room,Day\nR1,Monday\n", resp.Body.String())
	})

	t.Run("download with bad token", func(t *testing.T) {
		resp := performRequest(router, httptest.NewRequest(http.MethodGet, "/api/v1/exports/download/forged", nil))
		require.Equal(t, http.StatusForbidden, resp.Code)
	})
}
