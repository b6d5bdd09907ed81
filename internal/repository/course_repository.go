package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campus-assist/rostering-api/internal/models"
)

// CourseRepository persists Course reference data and the CourseCapability
// many-to-many linking assistants to the courses they may tutor.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns every course.
func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	const query = `SELECT code, name FROM courses ORDER BY code ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// Create inserts a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	const query = `INSERT INTO courses (code, name) VALUES (:code, :name)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// CapabilitiesFor returns the course codes an assistant may tutor.
func (r *CourseRepository) CapabilitiesFor(ctx context.Context, assistantUsername string) ([]string, error) {
	const query = `SELECT course_code FROM course_capabilities WHERE assistant_username = $1`
	var codes []string
	if err := r.db.SelectContext(ctx, &codes, query, assistantUsername); err != nil {
		return nil, fmt.Errorf("list capabilities: %w", err)
	}
	return codes, nil
}

// CapableAssistants returns the usernames of assistants capable of a course.
func (r *CourseRepository) CapableAssistants(ctx context.Context, courseCode string) ([]string, error) {
	const query = `SELECT assistant_username FROM course_capabilities WHERE course_code = $1`
	var usernames []string
	if err := r.db.SelectContext(ctx, &usernames, query, courseCode); err != nil {
		return nil, fmt.Errorf("list capable assistants: %w", err)
	}
	return usernames, nil
}

// AllCapabilities loads the full (assistant, course) capability matrix for
// the scheduler's eligibility check, one round-trip instead of N.
func (r *CourseRepository) AllCapabilities(ctx context.Context) ([]models.CourseCapability, error) {
	const query = `SELECT assistant_username, course_code FROM course_capabilities`
	var caps []models.CourseCapability
	if err := r.db.SelectContext(ctx, &caps, query); err != nil {
		return nil, fmt.Errorf("load capability matrix: %w", err)
	}
	return caps, nil
}

// Exists reports whether an (assistant, course) capability row is present.
func (r *CourseRepository) Exists(ctx context.Context, assistantUsername, courseCode string) (bool, error) {
	const query = `SELECT 1 FROM course_capabilities WHERE assistant_username = $1 AND course_code = $2 LIMIT 1`
	var found int
	if err := r.db.GetContext(ctx, &found, query, assistantUsername, courseCode); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check capability: %w", err)
	}
	return true, nil
}

// Grant adds a capability row.
func (r *CourseRepository) Grant(ctx context.Context, cap *models.CourseCapability) error {
	const query = `INSERT INTO course_capabilities (assistant_username, course_code) VALUES (:assistant_username, :course_code)`
	if _, err := r.db.NamedExecContext(ctx, query, cap); err != nil {
		return fmt.Errorf("grant capability: %w", err)
	}
	return nil
}

// Revoke removes a capability row.
func (r *CourseRepository) Revoke(ctx context.Context, assistantUsername, courseCode string) error {
	const query = `DELETE FROM course_capabilities WHERE assistant_username = $1 AND course_code = $2`
	result, err := r.db.ExecContext(ctx, query, assistantUsername, courseCode)
	if err != nil {
		return fmt.Errorf("revoke capability: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke capability rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
