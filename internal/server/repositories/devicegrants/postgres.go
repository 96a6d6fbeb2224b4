// Package devicegrants provides a PostgreSQL-backed repository for in-flight
// device-code activations.
package devicegrants

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

// Create inserts a new pending grant.
func (r *PostgresRepository) Create(ctx context.Context, grant *models.DeviceGrant) error {
	query := `
		INSERT INTO device_grants (device_code, user_code, device_name, status, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query,
		grant.DeviceCode, grant.UserCode, grant.DeviceName, string(grant.Status), grant.ExpiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// FindByDeviceCode returns the grant the device is polling for,
// or common.ErrNotFound.
func (r *PostgresRepository) FindByDeviceCode(ctx context.Context, deviceCode string) (*models.DeviceGrant, error) {
	query := `
		SELECT device_code, user_code, device_name, COALESCE(user_id::text, ''), status, expires_at
		FROM device_grants
		WHERE device_code = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, deviceCode))
}

// FindByUserCode returns the grant shown in the browser, or common.ErrNotFound.
func (r *PostgresRepository) FindByUserCode(ctx context.Context, userCode string) (*models.DeviceGrant, error) {
	query := `
		SELECT device_code, user_code, device_name, COALESCE(user_id::text, ''), status, expires_at
		FROM device_grants
		WHERE user_code = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, userCode))
}

// SetStatus moves a pending grant to approved or denied. Approval records the
// approving user; denial passes an empty userID. Only pending grants change,
// so a decided grant cannot flip.
func (r *PostgresRepository) SetStatus(ctx context.Context, userCode string, status models.GrantStatus, userID string) error {
	query := `
		UPDATE device_grants
		SET status = $2, user_id = NULLIF($3, '')::uuid
		WHERE user_code = $1 AND status = 'pending'
	`
	res, err := r.db.ExecContext(ctx, query, userCode, string(status), userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// Delete removes a grant once the device has collected its tokens.
func (r *PostgresRepository) Delete(ctx context.Context, deviceCode string) error {
	query := `
		DELETE FROM device_grants
		WHERE device_code = $1
	`
	if _, err := r.db.ExecContext(ctx, query, deviceCode); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.DeviceGrant, error) {
	grant := &models.DeviceGrant{}
	var status string
	if err := row.Scan(&grant.DeviceCode, &grant.UserCode, &grant.DeviceName,
		&grant.UserID, &status, &grant.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	grant.Status = models.GrantStatus(status)
	return grant, nil
}
