package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type catalogManagerMock struct {
	rooms       []models.Room
	createdRoom dto.CreateRoomRequest
	bulk        dto.BulkRoomRequest
	teacherBulk dto.BulkTeacherRequest
	section     dto.CreateSectionRequest
	sectionErr  error
}

func (m *catalogManagerMock) ListRooms(context.Context) ([]models.Room, error) {
	return m.rooms, nil
}

func (m *catalogManagerMock) CreateRoom(_ context.Context, req dto.CreateRoomRequest) (*models.Room, error) {
	m.createdRoom = req
	for _, room := range m.rooms {
		if room.ID == req.ID {
			return nil, appErrors.Clone(appErrors.ErrConflict, "room already exists")
		}
	}
	return &models.Room{ID: req.ID, Name: req.ID, Capacity: req.Capacity}, nil
}

func (m *catalogManagerMock) BulkCreateRooms(_ context.Context, req dto.BulkRoomRequest) (*dto.BulkRoomResponse, error) {
	m.bulk = req
	return &dto.BulkRoomResponse{
		Added:  []models.Room{{ID: req.Rooms[0].ID, Capacity: req.Rooms[0].Capacity}},
		Failed: []models.BulkFailure{{Index: 1, ID: req.Rooms[1].ID, Reason: "room already exists"}},
	}, nil
}

func (m *catalogManagerMock) ListTimeslots(context.Context) ([]models.Timeslot, error) {
	return []models.Timeslot{{ID: "mon-9", DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00"}}, nil
}

func (m *catalogManagerMock) CreateTimeslot(_ context.Context, req dto.CreateTimeslotRequest) (*models.Timeslot, error) {
	return &models.Timeslot{ID: req.ID, DayOfWeek: 1, StartTime: req.StartTime, EndTime: req.EndTime}, nil
}

func (m *catalogManagerMock) ListCourses(context.Context) ([]models.Course, error) {
	return []models.Course{}, nil
}

func (m *catalogManagerMock) CreateCourse(_ context.Context, req dto.CreateCourseRequest) (*models.Course, error) {
	return &models.Course{ID: req.ID, Name: req.Name, RequiredSessions: req.RequiredSessions}, nil
}

func (m *catalogManagerMock) ListTeachers(context.Context) ([]models.Teacher, error) {
	return []models.Teacher{}, nil
}

func (m *catalogManagerMock) CreateTeacher(_ context.Context, req dto.CreateTeacherRequest) (*models.Teacher, error) {
	return &models.Teacher{ID: req.ID, FullName: req.FullName, TeachableCourseIDs: req.TeachableCourseIDs}, nil
}

func (m *catalogManagerMock) BulkCreateTeachers(_ context.Context, req dto.BulkTeacherRequest) (*dto.BulkTeacherResponse, error) {
	m.teacherBulk = req
	resp := &dto.BulkTeacherResponse{Added: []models.Teacher{}, Failed: []models.BulkFailure{}}
	for i, item := range req.Teachers {
		if len(item.TeachableCourseIDs) == 0 {
			resp.Failed = append(resp.Failed, models.BulkFailure{Index: i, ID: item.ID, Reason: "teachablecourseids failed required"})
			continue
		}
		resp.Added = append(resp.Added, models.Teacher{ID: item.ID, FullName: item.FullName, TeachableCourseIDs: item.TeachableCourseIDs})
	}
	return resp, nil
}

func (m *catalogManagerMock) ListSections(context.Context) ([]models.Section, error) {
	return []models.Section{}, nil
}

func (m *catalogManagerMock) CreateSection(_ context.Context, req dto.CreateSectionRequest) (*models.Section, error) {
	m.section = req
	if m.sectionErr != nil {
		return nil, m.sectionErr
	}
	return &models.Section{ID: req.ID, CourseID: req.CourseID, TeacherID: req.TeacherID}, nil
}

func TestCatalogRoomRoutes(t *testing.T) {
	mockSvc := &catalogManagerMock{rooms: []models.Room{{ID: "R1", Name: "Lab", Capacity: 30}}}
	router := newTestRouter(Handlers{Catalog: NewCatalogHandler(mockSvc)})

	t.Run("list", func(t *testing.T) {
		resp := performRequest(router, withRole(httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil), models.RoleStudent, "stu-1"))
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), `"total":1`)
	})

	t.Run("create requires admin", func(t *testing.T) {
		req := withRole(httptest.NewRequest(http.MethodPost, "/api/v1/rooms", strings.NewReader(`{"id":"R2","capacity":20}`)), models.RoleTeacher, "teacher-1")
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("create", func(t *testing.T) {
		req := withRole(httptest.NewRequest(http.MethodPost, "/api/v1/rooms", strings.NewReader(`{"id":"R2","capacity":20}`)), models.RoleAdmin, "admin-1")
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusCreated, resp.Code)
		assert.Equal(t, 20, mockSvc.createdRoom.Capacity)
	})

	t.Run("duplicate", func(t *testing.T) {
		req := withRole(httptest.NewRequest(http.MethodPost, "/api/v1/rooms", strings.NewReader(`{"id":"R1","capacity":20}`)), models.RoleAdmin, "admin-1")
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("malformed", func(t *testing.T) {
		req := withRole(httptest.NewRequest(http.MethodPost, "/api/v1/rooms", strings.NewReader(`{"id":`)), models.RoleAdmin, "admin-1")
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("bulk", func(t *testing.T) {
		req := withRole(httptest.NewRequest(http.MethodPost, "/api/v1/rooms/bulk", strings.NewReader(`{"rooms":[{"id":"R3","capacity":10},{"id":"R1","capacity":10}]}`)), models.RoleSuperAdmin, "root")
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			Data dto.BulkRoomResponse   `json:"data"`
			Meta map[string]interface{} `json:"meta"`
		}
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		require.Len(t, body.Data.Failed, 1)
		assert.Equal(t, 1, body.Data.Failed[0].Index)
		assert.Equal(t, float64(1), body.Meta["added"])
		assert.Equal(t, float64(1), body.Meta["failed"])
		assert.Len(t, mockSvc.bulk.Rooms, 2)
	})
}

func TestCatalogTeacherBulkImport(t *testing.T) {
	mockSvc := &catalogManagerMock{}
	router := newTestRouter(Handlers{Catalog: NewCatalogHandler(mockSvc)})
	payload := `{"teachers":[{"id":"T1","fullName":"Ada","teachableCourseIds":["CS101"]},{"id":"T2","fullName":"Grace"}]}`

	t.Run("requires admin", func(t *testing.T) {
		req := withRole(httptest.NewRequest(http.MethodPost, "/api/v1/teachers/bulk", strings.NewReader(payload)), models.RoleTeacher, "teacher-1")
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
		assert.Empty(t, mockSvc.teacherBulk.Teachers)
	})

	t.Run("reports rows", func(t *testing.T) {
		req := withRole(httptest.NewRequest(http.MethodPost, "/api/v1/teachers/bulk", strings.NewReader(payload)), models.RoleAdmin, "admin-1")
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			Data dto.BulkTeacherResponse `json:"data"`
			Meta map[string]interface{}  `json:"meta"`
		}
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		require.Len(t, body.Data.Added, 1)
		assert.Equal(t, "T1", body.Data.Added[0].ID)
		require.Len(t, body.Data.Failed, 1)
		assert.Equal(t, models.BulkFailure{Index: 1, ID: "T2", Reason: "teachablecourseids failed required"}, body.Data.Failed[0])
		assert.Equal(t, float64(1), body.Meta["added"])
		assert.Equal(t, float64(1), body.Meta["failed"])
	})

	t.Run("malformed", func(t *testing.T) {
		req := withRole(httptest.NewRequest(http.MethodPost, "/api/v1/teachers/bulk", strings.NewReader(`{"teachers":`)), models.RoleAdmin, "admin-1")
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestCatalogSectionRejectsUnqualifiedTeacher(t *testing.T) {
	mockSvc := &catalogManagerMock{sectionErr: appErrors.Clone(appErrors.ErrValidation, "teacher T1 is not qualified for course MA201")}
	router := newTestRouter(Handlers{Catalog: NewCatalogHandler(mockSvc)})

	req := withRole(httptest.NewRequest(http.MethodPost, "/api/v1/sections", strings.NewReader(`{"id":"S1","courseId":"MA201","teacherId":"T1","studentIds":["a"]}`)), models.RoleAdmin, "admin-1")
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "not qualified")
	assert.Equal(t, []string{"a"}, mockSvc.section.StudentIDs)
}

func TestCatalogListEndpoints(t *testing.T) {
	router := newTestRouter(Handlers{})

	for _, path := range []string{"/timeslots", "/courses", "/teachers", "/sections"} {
		resp := performRequest(router, withRole(httptest.NewRequest(http.MethodGet, "/api/v1"+path, nil), models.RoleTeacher, "teacher-1"))
		require.Equal(t, http.StatusOK, resp.Code, path)
		assert.Contains(t, resp.Body.String(), `"total"`, path)
	}
}
