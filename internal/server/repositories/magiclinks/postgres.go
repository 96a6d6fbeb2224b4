// Package magiclinks provides a PostgreSQL-backed repository for single-use
// sign-in tokens.
package magiclinks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

// Create inserts a new link valid for now+validity.
func (r *PostgresRepository) Create(ctx context.Context, token, email string, validity time.Duration) error {
	query := `
		INSERT INTO magic_links (token, email, expires_at)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, token, email, time.Now().Add(validity)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Consume atomically marks an unconsumed, unexpired link as used and returns
// it. A missing, expired, or already-consumed token yields common.ErrNotFound,
// so a link can only ever sign in once.
func (r *PostgresRepository) Consume(ctx context.Context, token string) (*models.MagicLink, error) {
	query := `
		UPDATE magic_links
		SET consumed_at = now()
		WHERE token = $1 AND consumed_at IS NULL AND expires_at > now()
		RETURNING email, expires_at
	`
	link := &models.MagicLink{Token: token}
	if err := r.db.QueryRowContext(ctx, query, token).Scan(&link.Email, &link.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return link, nil
}
