// Package storage implements local persistence for the client: a SQLite
// metadata store for tokens and sync bookkeeping, and a JSON tasks file
// dual-written with an in-memory session copy.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/synclist/internal/client/models"
	"github.com/dmitrijs2005/synclist/internal/filex"
	"github.com/google/uuid"
)

const (
	tasksFileName    = "todos.json"
	metadataFileName = "metadata.db"
)

// TokenPair holds the stored session credentials. Either or both may be
// empty when signed out.
type TokenPair struct {
	Access  string
	Refresh string
}

// Store is the local persistence collaborator the session manager and sync
// engine depend on.
//
// Tasks are dual-written: an in-memory copy serves reads during the session,
// and a JSON file at <dir>/todos.json is kept in step so third-party tools
// can integrate. Once the file exists it is authoritative: reads prefer it
// over the in-memory copy.
type Store struct {
	db        *sql.DB
	meta      *MetadataRepository
	tasksPath string

	mu       sync.Mutex
	mem      []models.Task
	memValid bool
}

// tasksFile is the on-disk shape of todos.json.
type tasksFile struct {
	Todos     []models.Task `json:"todos"`
	UpdatedAt string        `json:"updatedAt"`
}

// Open prepares the storage directory, the metadata database, and the tasks
// file path. The directory is created if missing.
func Open(ctx context.Context, dir string) (*Store, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", filepath.Join(abs, metadataFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata db: %w", err)
	}
	if err := initMetadataSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:        db,
		meta:      NewMetadataRepository(db),
		tasksPath: filepath.Join(abs, tasksFileName),
	}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetTasks returns the current task list. The file wins over the in-memory
// copy once it exists; a missing file with no session copy yields an empty
// list.
func (s *Store) GetTasks(ctx context.Context) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.tasksPath)
	if err != nil {
		if os.IsNotExist(err) {
			if s.memValid {
				return append([]models.Task(nil), s.mem...), nil
			}
			return []models.Task{}, nil
		}
		return nil, fmt.Errorf("failed to read tasks file: %w", err)
	}

	var f tasksFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse tasks file: %w", err)
	}
	if f.Todos == nil {
		f.Todos = []models.Task{}
	}
	return f.Todos, nil
}

// SetTasks replaces the task list in both the session copy and the file.
func (s *Store) SetTasks(ctx context.Context, tasks []models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mem = append([]models.Task(nil), tasks...)
	s.memValid = true

	f := tasksFile{
		Todos:     tasks,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if f.Todos == nil {
		f.Todos = []models.Task{}
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tasks: %w", err)
	}
	return filex.WriteFileAtomic(s.tasksPath, data, 0o600)
}

// GetTokens loads the stored token pair. Absent tokens come back empty.
func (s *Store) GetTokens(ctx context.Context) (TokenPair, error) {
	access, err := s.meta.Get(ctx, keyAccessToken)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.meta.Get(ctx, keyRefreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// SetTokens persists the token pair.
func (s *Store) SetTokens(ctx context.Context, pair TokenPair) error {
	if err := s.meta.Set(ctx, keyAccessToken, pair.Access); err != nil {
		return err
	}
	return s.meta.Set(ctx, keyRefreshToken, pair.Refresh)
}

// ClearTokens removes both tokens.
func (s *Store) ClearTokens(ctx context.Context) error {
	if err := s.meta.Delete(ctx, keyAccessToken); err != nil {
		return err
	}
	return s.meta.Delete(ctx, keyRefreshToken)
}

// GetWorkspaceID returns the persistent workspace id, minting one on first
// use.
func (s *Store) GetWorkspaceID(ctx context.Context) (string, error) {
	id, err := s.meta.Get(ctx, keyWorkspaceID)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := s.meta.Set(ctx, keyWorkspaceID, id); err != nil {
		return "", err
	}
	return id, nil
}

// GetLastSyncTime returns the sync watermark in epoch milliseconds;
// absent means 0.
func (s *Store) GetLastSyncTime(ctx context.Context) (int64, error) {
	raw, err := s.meta.Get(ctx, keyLastSyncAt)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt watermark %q: %w", raw, err)
	}
	return v, nil
}

// SetLastSyncTime persists the watermark. Values below the current one are
// ignored: the watermark is monotonic non-decreasing.
func (s *Store) SetLastSyncTime(ctx context.Context, at int64) error {
	current, err := s.GetLastSyncTime(ctx)
	if err != nil {
		return err
	}
	if at < current {
		return nil
	}
	return s.meta.Set(ctx, keyLastSyncAt, strconv.FormatInt(at, 10))
}
