package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/eduportal-backend/internal/model"
)

// grantQuery picks the strongest grant held by a user id or role id.
// The table name is substituted by the caller; it is never user input.
const grantQuery = `SELECT access_type FROM %s
	 WHERE %s = $1 AND (user_id = $2 OR role_id = $3)
	 ORDER BY CASE access_type WHEN 'edit' THEN 0 ELSE 1 END
	 LIMIT 1`

// FormRepository handles read access to form ownership and sharing grants.
type FormRepository struct {
	pool *pgxpool.Pool
}

// NewFormRepository creates a new FormRepository.
func NewFormRepository(pool *pgxpool.Pool) *FormRepository {
	return &FormRepository{pool: pool}
}

// CreatorID returns the id of the user who created the form.
func (r *FormRepository) CreatorID(ctx context.Context, formID string) (string, bool, error) {
	return creatorID(ctx, r.pool, `SELECT creator_id FROM forms WHERE id = $1`, formID)
}

// Grant returns the strongest user_form_access grant for the user or role.
func (r *FormRepository) Grant(ctx context.Context, formID, userID string, roleID int) (model.AccessType, bool, error) {
	return grant(ctx, r.pool, "user_form_access", "form_id", formID, userID, roleID)
}

func creatorID(ctx context.Context, pool *pgxpool.Pool, query, id string) (string, bool, error) {
	var creator string
	if err := pool.QueryRow(ctx, query, id).Scan(&creator); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return creator, true, nil
}
