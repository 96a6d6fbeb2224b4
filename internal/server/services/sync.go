package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/synclist/internal/dbx"
	"github.com/dmitrijs2005/synclist/internal/server/models"
	"github.com/dmitrijs2005/synclist/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// PullResult is everything a client receives on pull: the workspace
// todos, legacy rows not yet assigned to any workspace, and conflicts
// recorded since the last pull. Conflict delivery is destructive, so a
// pull hands each conflict to exactly one client.
type PullResult struct {
	Todos      []models.Todo
	Unassigned []models.Todo
	Conflicts  []models.Conflict
}

type SyncService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewSyncService(db *sql.DB, m repomanager.RepositoryManager) *SyncService {
	return &SyncService{db: db, repomanager: m}
}

// Push replaces the workspace with the client's task list, using
// lastSyncAt (epoch ms, the client's watermark from its previous
// successful sync) to tell client deletions apart from rows it has never
// seen. When both sides edited the same task's text since the watermark,
// the server keeps its own version and records a conflict for the client
// to resolve.
func (s *SyncService) Push(ctx context.Context, userID, workspaceID string, incoming []models.Todo, lastSyncAt int64) error {

	current, err := s.repomanager.Todos(s.db).ListWorkspace(ctx, userID, workspaceID)
	if err != nil {
		return fmt.Errorf("error listing todos: %v", err)
	}

	currentByID := make(map[string]models.Todo, len(current))
	for _, t := range current {
		currentByID[t.ID] = t
	}

	incomingIDs := make(map[string]struct{}, len(incoming))

	final := make([]models.Todo, 0, len(incoming))
	var newConflicts []models.Conflict

	for _, t := range incoming {
		t.UserID = userID
		t.WorkspaceID = workspaceID
		incomingIDs[t.ID] = struct{}{}

		server, exists := currentByID[t.ID]
		if !exists || server.UpdatedAt <= lastSyncAt {
			// Unchanged on the server since the client last synced.
			final = append(final, t)
			continue
		}

		if server.Text != t.Text {
			conflict, err := buildConflict(userID, t, server)
			if err != nil {
				return err
			}
			newConflicts = append(newConflicts, conflict)
			final = append(final, server)
			continue
		}

		// Same text, both touched: latest edit wins.
		if t.UpdatedAt >= server.UpdatedAt {
			final = append(final, t)
		} else {
			final = append(final, server)
		}
	}

	// Server rows absent from the push: edited elsewhere after the
	// client's watermark means the client never saw them, so keep.
	// Otherwise the client deleted them.
	for _, server := range current {
		if _, ok := incomingIDs[server.ID]; ok {
			continue
		}
		if server.UpdatedAt > lastSyncAt {
			final = append(final, server)
		}
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Todos(tx).ReplaceWorkspace(ctx, userID, workspaceID, final); err != nil {
			return fmt.Errorf("error replacing workspace: %v", err)
		}
		conflictRepo := s.repomanager.Conflicts(tx)
		for i := range newConflicts {
			if err := conflictRepo.Create(ctx, &newConflicts[i]); err != nil {
				return fmt.Errorf("error recording conflict: %v", err)
			}
		}
		return nil
	})
}

// Pull returns the current workspace state plus any pending conflicts.
func (s *SyncService) Pull(ctx context.Context, userID, workspaceID string) (*PullResult, error) {

	repo := s.repomanager.Todos(s.db)

	todos, err := repo.ListWorkspace(ctx, userID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("error listing todos: %v", err)
	}

	unassigned, err := repo.ListUnassigned(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing unassigned todos: %v", err)
	}

	conflicts, err := s.repomanager.Conflicts(s.db).TakeForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error taking conflicts: %v", err)
	}

	return &PullResult{Todos: todos, Unassigned: unassigned, Conflicts: conflicts}, nil
}

// MigrateUnassigned adopts the user's legacy pre-workspace rows into the
// given workspace.
func (s *SyncService) MigrateUnassigned(ctx context.Context, userID, workspaceID string) error {
	return s.repomanager.Todos(s.db).AssignWorkspace(ctx, userID, workspaceID)
}

// taskDoc is the wire shape of a task inside a stored conflict. It
// matches the JSON the client exchanges on push/pull.
type taskDoc struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

func buildConflict(userID string, local, remote models.Todo) (models.Conflict, error) {
	localDoc, err := json.Marshal(toTaskDoc(local))
	if err != nil {
		return models.Conflict{}, fmt.Errorf("error encoding conflict: %v", err)
	}
	remoteDoc, err := json.Marshal(toTaskDoc(remote))
	if err != nil {
		return models.Conflict{}, fmt.Errorf("error encoding conflict: %v", err)
	}
	return models.Conflict{
		ID:     uuid.NewString(),
		UserID: userID,
		Local:  localDoc,
		Remote: remoteDoc,
	}, nil
}

func toTaskDoc(t models.Todo) taskDoc {
	return taskDoc{
		ID:        t.ID,
		Text:      t.Text,
		Completed: t.Completed,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
