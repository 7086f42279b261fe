package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StudentRepository handles read access to student scoping data.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// Region returns the student's region ("" when unset) and whether the
// student exists.
func (r *StudentRepository) Region(ctx context.Context, studentID string) (string, bool, error) {
	var region *string
	err := r.pool.QueryRow(ctx, `SELECT region FROM students WHERE id = $1`, studentID).Scan(&region)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	if region == nil {
		return "", true, nil
	}
	return *region, true, nil
}

// HasTeacher reports whether an explicit teacher_student_access link exists.
func (r *StudentRepository) HasTeacher(ctx context.Context, teacherID, studentID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM teacher_student_access
			WHERE teacher_id = $1 AND student_id = $2
		)`, teacherID, studentID,
	).Scan(&exists)
	return exists, err
}
