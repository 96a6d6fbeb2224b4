package conflicts

import (
	"context"

	"github.com/dmitrijs2005/synclist/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, conflict *models.Conflict) error
	TakeForUser(ctx context.Context, userID string) ([]models.Conflict, error)
}
