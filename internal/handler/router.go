package handler

import (
	"github.com/gin-gonic/gin"

	internalmiddleware "github.com/noah-isme/timetable-api/internal/middleware"
)

// Handlers groups every HTTP handler mounted by the API.
type Handlers struct {
	Auth     *AuthHandler
	Catalog  *CatalogHandler
	Schedule *ScheduleGeneratorHandler
	Export   *ExportHandler
	Metrics  *MetricsHandler
	TA       *TAAssignmentHandler
}

// RegisterRoutes mounts the API under prefix. Reads need a valid token, writes need a scheduler admin.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, tokens internalmiddleware.TokenValidator) {
	if h.Metrics != nil {
		r.GET("/health", h.Metrics.Health)
		r.GET("/ready", h.Metrics.Ready)
		r.GET("/metrics", h.Metrics.Prometheus)
	}

	api := r.Group(prefix)
	api.POST("/auth/login", h.Auth.Login)
	if h.Export != nil {
		api.GET("/exports/download/:token", h.Export.Download)
	}

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(tokens))
	secured.GET("/auth/me", h.Auth.Me)

	admin := internalmiddleware.RequireRoles(internalmiddleware.SchedulerAdmins...)

	secured.GET("/rooms", h.Catalog.ListRooms)
	secured.POST("/rooms", admin, h.Catalog.CreateRoom)
	secured.POST("/rooms/bulk", admin, h.Catalog.BulkCreateRooms)
	secured.GET("/timeslots", h.Catalog.ListTimeslots)
	secured.POST("/timeslots", admin, h.Catalog.CreateTimeslot)
	secured.GET("/courses", h.Catalog.ListCourses)
	secured.POST("/courses", admin, h.Catalog.CreateCourse)
	secured.GET("/teachers", h.Catalog.ListTeachers)
	secured.POST("/teachers", admin, h.Catalog.CreateTeacher)
	secured.POST("/teachers/bulk", admin, h.Catalog.BulkCreateTeachers)
	secured.GET("/sections", h.Catalog.ListSections)
	secured.POST("/sections", admin, h.Catalog.CreateSection)

	secured.POST("/schedule/generate", admin, h.Schedule.Generate)
	secured.POST("/schedules/generator", admin, h.Schedule.GenerateAlias)
	secured.POST("/schedules/save", admin, h.Schedule.Save)

	runs := secured.Group("/schedules/runs")
	runs.GET("", h.Schedule.List)
	runs.GET("/:id", h.Schedule.Get)
	runs.DELETE("/:id", admin, h.Schedule.Delete)
	runs.POST("/:id/publish", admin, h.Schedule.Publish)
	runs.GET("/:id/rooms", h.Schedule.Rooms)
	runs.GET("/:id/teachers/:teacherId", h.Schedule.Teacher)
	runs.GET("/:id/sections/:sectionId", h.Schedule.Section)
	runs.GET("/:id/students/:studentId", h.Schedule.Student)
	runs.GET("/:id/unplaced", h.Schedule.Unplaced)
	runs.GET("/:id/utilization", h.Schedule.Utilization)
	runs.GET("/:id/verify", h.Schedule.Verify)

	if h.Export != nil {
		runs.POST("/:id/exports", h.Export.Create)
		secured.GET("/exports/:id", h.Export.Status)
	}
	if h.TA != nil {
		secured.GET("/research-scholars", h.TA.ListScholars)
		secured.POST("/research-scholars", admin, h.TA.CreateScholar)
		secured.POST("/research-scholars/bulk", admin, h.TA.BulkCreateScholars)
		secured.GET("/ta-assignments", h.TA.ListAssignments)
		secured.POST("/ta-assignments/generate", admin, h.TA.Generate)
	}
	if h.Metrics != nil {
		secured.GET("/metrics/summary", admin, h.Metrics.Summary)
	}
}
