package magiclinks

import (
	"context"
	"time"

	"github.com/dmitrijs2005/synclist/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, token, email string, validity time.Duration) error
	Consume(ctx context.Context, token string) (*models.MagicLink, error)
}
