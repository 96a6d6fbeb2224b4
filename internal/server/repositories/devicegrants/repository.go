package devicegrants

import (
	"context"

	"github.com/dmitrijs2005/synclist/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, grant *models.DeviceGrant) error
	FindByDeviceCode(ctx context.Context, deviceCode string) (*models.DeviceGrant, error)
	FindByUserCode(ctx context.Context, userCode string) (*models.DeviceGrant, error)
	SetStatus(ctx context.Context, userCode string, status models.GrantStatus, userID string) error
	Delete(ctx context.Context, deviceCode string) error
}
