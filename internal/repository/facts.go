package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/eduportal-backend/internal/model"
)

// Facts exposes the read-only ownership and assignment queries the
// permission predicates consult. Each call is an independent read; no
// transaction spans a permission check.
type Facts struct {
	Roles    *RoleRepository
	Users    *UserRepository
	Forms    *FormRepository
	Tasks    *TaskRepository
	Students *StudentRepository
}

// NewFacts wires all fact repositories over one pool.
func NewFacts(pool *pgxpool.Pool) *Facts {
	return &Facts{
		Roles:    NewRoleRepository(pool),
		Users:    NewUserRepository(pool),
		Forms:    NewFormRepository(pool),
		Tasks:    NewTaskRepository(pool),
		Students: NewStudentRepository(pool),
	}
}

func (f *Facts) FormCreatorID(ctx context.Context, formID string) (string, bool, error) {
	return f.Forms.CreatorID(ctx, formID)
}

func (f *Facts) FormGrant(ctx context.Context, formID, userID string, roleID int) (model.AccessType, bool, error) {
	return f.Forms.Grant(ctx, formID, userID, roleID)
}

func (f *Facts) TaskCreatorID(ctx context.Context, taskID string) (string, bool, error) {
	return f.Tasks.CreatorID(ctx, taskID)
}

func (f *Facts) TaskGrant(ctx context.Context, taskID, userID string, roleID int) (model.AccessType, bool, error) {
	return f.Tasks.Grant(ctx, taskID, userID, roleID)
}

func (f *Facts) StudentRegion(ctx context.Context, studentID string) (string, bool, error) {
	return f.Students.Region(ctx, studentID)
}

func (f *Facts) TeacherHasStudent(ctx context.Context, teacherID, studentID string) (bool, error) {
	return f.Students.HasTeacher(ctx, teacherID, studentID)
}

func (f *Facts) UserRegion(ctx context.Context, userID string) (string, error) {
	return f.Users.Region(ctx, userID)
}

func (f *Facts) UserRole(ctx context.Context, userID string) (*model.Role, error) {
	return f.Roles.GetByUserID(ctx, userID)
}
