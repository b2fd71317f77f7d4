package dto

import (
	"time"

	"github.com/noah-isme/timetable-api/internal/models"
)

// CreateExportRequest asks for a rendered timetable of a stored run.
type CreateExportRequest struct {
	Format  string   `json:"format" validate:"required,oneof=csv pdf"`
	RoomIDs []string `json:"roomIds" validate:"omitempty,dive,required"`
}

// ExportStatusResponse reports job progress and, once finished, a signed download link.
type ExportStatusResponse struct {
	Job         models.ExportJob `json:"job"`
	DownloadURL *string          `json:"downloadUrl,omitempty"`
	ExpiresAt   *time.Time       `json:"expiresAt,omitempty"`
}
