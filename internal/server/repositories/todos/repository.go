package todos

import (
	"context"

	"github.com/dmitrijs2005/synclist/internal/server/models"
)

type Repository interface {
	ListWorkspace(ctx context.Context, userID, workspaceID string) ([]models.Todo, error)
	ListUnassigned(ctx context.Context, userID string) ([]models.Todo, error)
	Get(ctx context.Context, userID, id string) (*models.Todo, error)
	ReplaceWorkspace(ctx context.Context, userID, workspaceID string, todos []models.Todo) error
	AssignWorkspace(ctx context.Context, userID, workspaceID string) error
}
