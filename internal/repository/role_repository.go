package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/eduportal-backend/internal/model"
)

const roleColumns = `r.id, r.name, r.display_name, r.color, r."order", r.created_at`

// RoleRepository handles role data access.
type RoleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository creates a new RoleRepository.
func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

// GetByUserID returns the role assigned to a user, or nil when the user
// does not exist or has no role.
func (r *RoleRepository) GetByUserID(ctx context.Context, userID string) (*model.Role, error) {
	return r.queryOne(ctx,
		`SELECT `+roleColumns+`
		 FROM users u
		 JOIN roles r ON r.id = u.role_id
		 WHERE u.id = $1`, userID,
	)
}

// GetByName returns the role called name, or nil when none exists.
func (r *RoleRepository) GetByName(ctx context.Context, name model.RoleName) (*model.Role, error) {
	return r.queryOne(ctx, `SELECT `+roleColumns+` FROM roles r WHERE r.name = $1`, string(name))
}

// List returns all roles, most privileged first.
func (r *RoleRepository) List(ctx context.Context) ([]model.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles r ORDER BY r."order", r.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		var role model.Role
		if err := scanRole(rows, &role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *RoleRepository) queryOne(ctx context.Context, query string, args ...interface{}) (*model.Role, error) {
	var role model.Role
	if err := scanRole(r.pool.QueryRow(ctx, query, args...), &role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func scanRole(row pgx.Row, role *model.Role) error {
	var name string
	if err := row.Scan(&role.ID, &name, &role.DisplayName, &role.Color, &role.Order, &role.CreatedAt); err != nil {
		return err
	}
	role.Name = model.RoleName(name)
	return nil
}
