// Package todos provides a PostgreSQL-backed repository for task rows.
package todos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/synclist/internal/common"
	"github.com/dmitrijs2005/synclist/internal/dbx"
	"github.com/dmitrijs2005/synclist/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListWorkspace returns the task rows bound to workspaceID, oldest first.
func (r *PostgresRepository) ListWorkspace(ctx context.Context, userID, workspaceID string) ([]models.Todo, error) {
	query := `
		SELECT id, workspace_id, text, completed, created_at, updated_at
		FROM todos
		WHERE user_id = $1 AND workspace_id = $2
		ORDER BY created_at
	`
	return r.list(ctx, userID, query, userID, workspaceID)
}

// ListUnassigned returns legacy rows not bound to any workspace.
func (r *PostgresRepository) ListUnassigned(ctx context.Context, userID string) ([]models.Todo, error) {
	query := `
		SELECT id, workspace_id, text, completed, created_at, updated_at
		FROM todos
		WHERE user_id = $1 AND workspace_id = ''
		ORDER BY created_at
	`
	return r.list(ctx, userID, query, userID)
}

// Get returns one task row, or common.ErrNotFound.
func (r *PostgresRepository) Get(ctx context.Context, userID, id string) (*models.Todo, error) {
	query := `
		SELECT id, workspace_id, text, completed, created_at, updated_at
		FROM todos
		WHERE user_id = $1 AND id = $2
	`
	todo := models.Todo{UserID: userID}
	err := r.db.QueryRowContext(ctx, query, userID, id).Scan(
		&todo.ID, &todo.WorkspaceID, &todo.Text, &todo.Completed, &todo.CreatedAt, &todo.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &todo, nil
}

// ReplaceWorkspace swaps the workspace's task set for the given one.
// Run inside a transaction (dbx.WithTx) so a failed insert never leaves the
// workspace half-empty.
func (r *PostgresRepository) ReplaceWorkspace(ctx context.Context, userID, workspaceID string, todos []models.Todo) error {
	del := `
		DELETE FROM todos
		WHERE user_id = $1 AND workspace_id = $2
	`
	if _, err := r.db.ExecContext(ctx, del, userID, workspaceID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	ins := `
		INSERT INTO todos (id, user_id, workspace_id, text, completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, t := range todos {
		if _, err := r.db.ExecContext(ctx, ins,
			t.ID, userID, workspaceID, t.Text, t.Completed, t.CreatedAt, t.UpdatedAt); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

// AssignWorkspace binds every unassigned legacy row to workspaceID.
func (r *PostgresRepository) AssignWorkspace(ctx context.Context, userID, workspaceID string) error {
	query := `
		UPDATE todos
		SET workspace_id = $2
		WHERE user_id = $1 AND workspace_id = ''
	`
	if _, err := r.db.ExecContext(ctx, query, userID, workspaceID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) list(ctx context.Context, userID, query string, args ...any) ([]models.Todo, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.Todo{}
	for rows.Next() {
		todo := models.Todo{UserID: userID}
		if err := rows.Scan(&todo.ID, &todo.WorkspaceID, &todo.Text, &todo.Completed,
			&todo.CreatedAt, &todo.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
