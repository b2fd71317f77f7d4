package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// SectionRepository manages sections and their rosters.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs a SectionRepository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

func (r *SectionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns every section with its roster.
func (r *SectionRepository) List(ctx context.Context) ([]models.Section, error) {
	const query = `SELECT id, course_id, teacher_id, enrolled_count, created_at, updated_at FROM sections ORDER BY id ASC`
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}

	var roster []models.SectionStudent
	if err := r.db.SelectContext(ctx, &roster, `SELECT section_id, student_id FROM section_students ORDER BY section_id ASC, student_id ASC`); err != nil {
		return nil, fmt.Errorf("list section students: %w", err)
	}
	position := make(map[string]int, len(sections))
	for i := range sections {
		position[sections[i].ID] = i
	}
	for _, row := range roster {
		if i, ok := position[row.SectionID]; ok {
			sections[i].StudentIDs = append(sections[i].StudentIDs, row.StudentID)
		}
	}
	return sections, nil
}

// FindByID fetches a section with its roster.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	const query = `SELECT id, course_id, teacher_id, enrolled_count, created_at, updated_at FROM sections WHERE id = $1`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find section: %w", err)
	}
	if err := r.db.SelectContext(ctx, &section.StudentIDs, `SELECT student_id FROM section_students WHERE section_id = $1 ORDER BY student_id ASC`, id); err != nil {
		return nil, fmt.Errorf("load section students: %w", err)
	}
	return &section, nil
}

// Create inserts a section and its roster. A non-empty roster overrides enrolled_count.
func (r *SectionRepository) Create(ctx context.Context, exec sqlx.ExtContext, section *models.Section) error {
	if section == nil {
		return fmt.Errorf("section payload is nil")
	}
	if len(section.StudentIDs) > 0 {
		section.EnrolledCount = len(section.StudentIDs)
	}
	target := r.exec(exec)
	now := time.Now().UTC()
	section.CreatedAt = now
	section.UpdatedAt = now

	const insertSection = `INSERT INTO sections (id, course_id, teacher_id, enrolled_count, created_at, updated_at)
VALUES (:id, :course_id, :teacher_id, :enrolled_count, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertSection, section); err != nil {
		return fmt.Errorf("insert section: %w", err)
	}

	const insertStudent = `INSERT INTO section_students (section_id, student_id) VALUES (:section_id, :student_id)`
	for _, studentID := range section.StudentIDs {
		row := models.SectionStudent{SectionID: section.ID, StudentID: studentID}
		if _, err := sqlx.NamedExecContext(ctx, target, insertStudent, row); err != nil {
			return fmt.Errorf("insert section student %s: %w", studentID, err)
		}
	}
	return nil
}
