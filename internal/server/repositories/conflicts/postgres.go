// Package conflicts provides a PostgreSQL-backed repository for divergent
// task pairs awaiting delivery to their owner.
package conflicts

import (
	"context"
	"fmt"

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

// Create records one conflict for later delivery.
func (r *PostgresRepository) Create(ctx context.Context, conflict *models.Conflict) error {
	query := `
		INSERT INTO conflicts (user_id, local_task, remote_task)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, conflict.UserID, conflict.Local, conflict.Remote); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// TakeForUser removes and returns every pending conflict for userID.
// Delivery is destructive: once a pull has collected the conflicts, the
// client owns them.
func (r *PostgresRepository) TakeForUser(ctx context.Context, userID string) ([]models.Conflict, error) {
	query := `
		DELETE FROM conflicts
		WHERE user_id = $1
		RETURNING id, local_task, remote_task
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.Conflict{}
	for rows.Next() {
		c := models.Conflict{UserID: userID}
		if err := rows.Scan(&c.ID, &c.Local, &c.Remote); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
