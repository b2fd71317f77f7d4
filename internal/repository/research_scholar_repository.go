package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// ResearchScholarRepository manages scholars and the courses they may assist.
type ResearchScholarRepository struct {
	db *sqlx.DB
}

// NewResearchScholarRepository constructs a ResearchScholarRepository.
func NewResearchScholarRepository(db *sqlx.DB) *ResearchScholarRepository {
	return &ResearchScholarRepository{db: db}
}

// List returns every scholar with TA eligibility attached, ordered by id.
func (r *ResearchScholarRepository) List(ctx context.Context) ([]models.ResearchScholar, error) {
	const query = `SELECT id, full_name, created_at, updated_at FROM research_scholars ORDER BY id ASC`
	var scholars []models.ResearchScholar
	if err := r.db.SelectContext(ctx, &scholars, query); err != nil {
		return nil, fmt.Errorf("list research scholars: %w", err)
	}

	var links []models.ScholarCourse
	if err := r.db.SelectContext(ctx, &links, `SELECT scholar_id, course_id FROM scholar_ta_courses ORDER BY scholar_id ASC, course_id ASC`); err != nil {
		return nil, fmt.Errorf("list scholar ta courses: %w", err)
	}

	position := make(map[string]int, len(scholars))
	for i := range scholars {
		scholars[i].TACourseIDs = []string{}
		position[scholars[i].ID] = i
	}
	for _, link := range links {
		if i, ok := position[link.ScholarID]; ok {
			scholars[i].TACourseIDs = append(scholars[i].TACourseIDs, link.CourseID)
		}
	}
	return scholars, nil
}

// Create inserts a scholar and its eligibility rows. Pass a transaction as exec
// to make the inserts atomic.
func (r *ResearchScholarRepository) Create(ctx context.Context, exec sqlx.ExtContext, scholar *models.ResearchScholar) error {
	if scholar == nil {
		return fmt.Errorf("research scholar payload is nil")
	}
	if exec == nil {
		exec = r.db
	}
	now := time.Now().UTC()
	scholar.CreatedAt = now
	scholar.UpdatedAt = now

	const insertScholar = `INSERT INTO research_scholars (id, full_name, created_at, updated_at)
VALUES (:id, :full_name, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, insertScholar, scholar); err != nil {
		return fmt.Errorf("insert research scholar: %w", err)
	}

	const insertCourse = `INSERT INTO scholar_ta_courses (scholar_id, course_id) VALUES (:scholar_id, :course_id)`
	for _, courseID := range scholar.TACourseIDs {
		link := models.ScholarCourse{ScholarID: scholar.ID, CourseID: courseID}
		if _, err := sqlx.NamedExecContext(ctx, exec, insertCourse, link); err != nil {
			return fmt.Errorf("insert scholar ta course %s: %w", courseID, err)
		}
	}
	return nil
}

// TAAssignmentRepository persists the latest TA matching.
type TAAssignmentRepository struct {
	db *sqlx.DB
}

// NewTAAssignmentRepository constructs a TAAssignmentRepository.
func NewTAAssignmentRepository(db *sqlx.DB) *TAAssignmentRepository {
	return &TAAssignmentRepository{db: db}
}

// List returns current assignments with course and scholar names, ordered by course.
func (r *TAAssignmentRepository) List(ctx context.Context) ([]models.TAAssignment, error) {
	const query = `SELECT a.course_id, c.name AS course_name, a.scholar_id, s.full_name AS scholar_name, a.assigned_at
FROM ta_assignments a
JOIN courses c ON c.id = a.course_id
JOIN research_scholars s ON s.id = a.scholar_id
ORDER BY a.course_id ASC`
	var items []models.TAAssignment
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list ta assignments: %w", err)
	}
	return items, nil
}

// Replace clears every assignment and stores items. Callers pass a transaction
// so readers never see a half-written matching.
func (r *TAAssignmentRepository) Replace(ctx context.Context, exec sqlx.ExtContext, items []models.TAAssignment) error {
	if exec == nil {
		exec = r.db
	}
	if _, err := exec.ExecContext(ctx, `DELETE FROM ta_assignments`); err != nil {
		return fmt.Errorf("clear ta assignments: %w", err)
	}
	const insert = `INSERT INTO ta_assignments (course_id, scholar_id, assigned_at) VALUES (:course_id, :scholar_id, :assigned_at)`
	for i := range items {
		if _, err := sqlx.NamedExecContext(ctx, exec, insert, items[i]); err != nil {
			return fmt.Errorf("insert ta assignment %s: %w", items[i].CourseID, err)
		}
	}
	return nil
}
