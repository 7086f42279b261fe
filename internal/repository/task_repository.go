package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/eduportal-backend/internal/model"
)

// TaskRepository handles read access to task ownership and assignment grants.
type TaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

// CreatorID returns the id of the user who created the task.
func (r *TaskRepository) CreatorID(ctx context.Context, taskID string) (string, bool, error) {
	return creatorID(ctx, r.pool, `SELECT creator_id FROM tasks WHERE id = $1`, taskID)
}

// Grant returns the strongest user_task_access grant for the user or role.
func (r *TaskRepository) Grant(ctx context.Context, taskID, userID string, roleID int) (model.AccessType, bool, error) {
	return grant(ctx, r.pool, "user_task_access", "task_id", taskID, userID, roleID)
}

func grant(ctx context.Context, pool *pgxpool.Pool, table, column, id, userID string, roleID int) (model.AccessType, bool, error) {
	var access string
	err := pool.QueryRow(ctx, fmt.Sprintf(grantQuery, table, column), id, userID, roleID).Scan(&access)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return model.AccessType(access), true, nil
}
