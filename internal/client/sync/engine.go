// Package sync owns the local task list and its reconciliation against the
// remote workspace: debounced pushes, pulls with first-time migration,
// the single-slot undo buffer, and conflict resolution.
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/synclist/internal/client/client"
	"github.com/dmitrijs2005/synclist/internal/client/models"
	"github.com/dmitrijs2005/synclist/internal/logging"
)

var (
	// ErrTaskNotFound is returned when an operation targets an unknown task id.
	ErrTaskNotFound = errors.New("task not found")

	// ErrNothingToUndo is the user-visible signal for an empty undo buffer.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrConflictNotFound is returned when resolving an unknown conflict id.
	ErrConflictNotFound = errors.New("conflict not found")

	// ErrInvalidPolicy is returned for a resolution policy outside the
	// known set.
	ErrInvalidPolicy = errors.New("invalid resolution policy")
)

// Session is the slice of the session manager the engine depends on.
type Session interface {
	AccessToken(ctx context.Context) string
	CanSync(ctx context.Context) bool
}

// Store is the slice of local persistence the engine depends on.
type Store interface {
	GetTasks(ctx context.Context) ([]models.Task, error)
	SetTasks(ctx context.Context, tasks []models.Task) error
	GetWorkspaceID(ctx context.Context) (string, error)
	GetLastSyncTime(ctx context.Context) (int64, error)
	SetLastSyncTime(ctx context.Context, at int64) error
}

// undoEntry is the single-slot undo buffer: the snapshot of the last
// removed-or-toggled task, overwritten by each destructive op and consumed
// exactly once.
type undoEntry struct {
	task    models.Task
	index   int
	removed bool
}

// Engine reconciles the local task list with the remote workspace.
//
// Every mutation persists locally first and then schedules a debounced push;
// network failures are swallowed (logged) and retried on the next natural
// trigger, so persistent failure degrades to local-only operation.
type Engine struct {
	client  client.Client
	session Session
	store   Store
	log     logging.Logger

	debounce time.Duration

	mu        sync.Mutex
	tasks     []models.Task
	conflicts []models.Conflict
	undo      *undoEntry
	pushTimer *time.Timer
}

// Option customizes an Engine.
type Option func(*Engine)

// WithDebounce overrides the push debounce window (default 1s).
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) { e.debounce = d }
}

// NewEngine constructs an Engine and loads the task list from local storage.
func NewEngine(ctx context.Context, c client.Client, sess Session, store Store, log logging.Logger, opts ...Option) (*Engine, error) {
	e := &Engine{
		client:   c,
		session:  sess,
		store:    store,
		log:      log,
		debounce: time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}

	tasks, err := store.GetTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	e.tasks = tasks
	return e, nil
}

// Close cancels any pending debounced push.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pushTimer != nil {
		e.pushTimer.Stop()
		e.pushTimer = nil
	}
}

// ActiveTasks returns the externally visible list: entries with
// Completed == false, in list order.
func (e *Engine) ActiveTasks() []models.Task {
	e.mu.Lock()
	defer e.mu.Unlock()

	active := make([]models.Task, 0, len(e.tasks))
	for _, t := range e.tasks {
		if !t.Completed {
			active = append(active, t)
		}
	}
	return active
}

// AddTask appends a new task and schedules a push.
func (e *Engine) AddTask(ctx context.Context, text string) (models.Task, error) {
	task, err := models.NewTask(text)
	if err != nil {
		return models.Task{}, err
	}

	e.mu.Lock()
	e.tasks = append(e.tasks, task)
	e.mu.Unlock()

	e.persist(ctx)
	e.schedulePush(ctx)
	return task, nil
}

// EditTask replaces the text of an existing task and schedules a push.
func (e *Engine) EditTask(ctx context.Context, id, text string) error {
	text, err := models.NormalizeText(text)
	if err != nil {
		return err
	}

	e.mu.Lock()
	i := e.indexLocked(id)
	if i < 0 {
		e.mu.Unlock()
		return ErrTaskNotFound
	}
	e.tasks[i].Text = text
	e.tasks[i].UpdatedAt = time.Now().UnixMilli()
	e.mu.Unlock()

	e.persist(ctx)
	e.schedulePush(ctx)
	return nil
}

// RemoveTask deletes a task, snapshots it into the undo buffer, and
// schedules a push.
func (e *Engine) RemoveTask(ctx context.Context, id string) error {
	e.mu.Lock()
	i := e.indexLocked(id)
	if i < 0 {
		e.mu.Unlock()
		return ErrTaskNotFound
	}
	e.undo = &undoEntry{task: e.tasks[i], index: i, removed: true}
	e.tasks = append(e.tasks[:i], e.tasks[i+1:]...)
	e.mu.Unlock()

	e.persist(ctx)
	e.schedulePush(ctx)
	return nil
}

// ToggleTask flips the completion flag, snapshots the prior state into the
// undo buffer, and schedules a push.
func (e *Engine) ToggleTask(ctx context.Context, id string) error {
	e.mu.Lock()
	i := e.indexLocked(id)
	if i < 0 {
		e.mu.Unlock()
		return ErrTaskNotFound
	}
	e.undo = &undoEntry{task: e.tasks[i], index: i}
	e.tasks[i].Completed = !e.tasks[i].Completed
	e.tasks[i].UpdatedAt = time.Now().UnixMilli()
	e.mu.Unlock()

	e.persist(ctx)
	e.schedulePush(ctx)
	return nil
}

// Undo restores the last removed-or-toggled task and clears the buffer.
// A removed task reappears active (Completed false) regardless of its state
// at removal time. A second Undo with no intervening destructive op returns
// ErrNothingToUndo.
func (e *Engine) Undo(ctx context.Context) (models.Task, error) {
	e.mu.Lock()
	entry := e.undo
	if entry == nil {
		e.mu.Unlock()
		return models.Task{}, ErrNothingToUndo
	}
	e.undo = nil

	task := entry.task
	if entry.removed {
		task.Completed = false
		i := min(entry.index, len(e.tasks))
		e.tasks = append(e.tasks[:i], append([]models.Task{task}, e.tasks[i:]...)...)
	} else if i := e.indexLocked(task.ID); i >= 0 {
		e.tasks[i] = task
	} else {
		e.tasks = append(e.tasks, task)
	}
	e.mu.Unlock()

	e.persist(ctx)
	e.schedulePush(ctx)
	return task, nil
}

// indexLocked returns the position of id in e.tasks, or -1.
func (e *Engine) indexLocked(id string) int {
	for i, t := range e.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// persist writes the in-memory list through the storage collaborator.
// Local persistence always happens, whatever the tier.
func (e *Engine) persist(ctx context.Context) {
	e.mu.Lock()
	snapshot := append([]models.Task(nil), e.tasks...)
	e.mu.Unlock()

	if err := e.store.SetTasks(ctx, snapshot); err != nil {
		e.log.Error(ctx, "failed to persist tasks", "err", err)
	}
}

// schedulePush arms the debounce timer. The timer is a single slot: each
// mutation resets it, so a burst of edits yields one push carrying the final
// state. Free-tier sessions skip cloud sync entirely.
func (e *Engine) schedulePush(ctx context.Context) {
	if !e.session.CanSync(ctx) {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pushTimer != nil {
		e.pushTimer.Stop()
	}
	e.pushTimer = time.AfterFunc(e.debounce, func() {
		e.Push(context.Background())
	})
}

// Push sends the current state and watermark to the server immediately.
// Failures are logged and swallowed; the next mutation, reconnect, or pull
// will try again.
func (e *Engine) Push(ctx context.Context) {
	e.mu.Lock()
	if e.pushTimer != nil {
		e.pushTimer.Stop()
		e.pushTimer = nil
	}
	snapshot := append([]models.Task(nil), e.tasks...)
	e.mu.Unlock()

	workspaceID, err := e.store.GetWorkspaceID(ctx)
	if err != nil {
		e.log.Error(ctx, "failed to resolve workspace", "err", err)
		return
	}
	lastSyncAt, err := e.store.GetLastSyncTime(ctx)
	if err != nil {
		e.log.Error(ctx, "failed to read watermark", "err", err)
		return
	}

	token := e.session.AccessToken(ctx)
	if err := e.client.Push(ctx, token, workspaceID, snapshot, lastSyncAt); err != nil {
		e.log.Warn(ctx, "push failed", "err", err)
		return
	}

	if err := e.store.SetLastSyncTime(ctx, time.Now().UnixMilli()); err != nil {
		e.log.Error(ctx, "failed to advance watermark", "err", err)
	}
	e.log.Debug(ctx, "push complete", "tasks", len(snapshot))
}

// Pull fetches the remote workspace state and reconciles.
//
// If the remote set is empty and the local one is not, this is a first-time
// migration: the local set is pushed up and kept unchanged — a fresh or
// stale server never wipes local data. Otherwise the remote set becomes the
// active list, minus anything the server still marks completed. Unassigned
// legacy items are returned for manual migration, never merged.
func (e *Engine) Pull(ctx context.Context) []models.Task {
	if !e.session.CanSync(ctx) {
		return nil
	}

	workspaceID, err := e.store.GetWorkspaceID(ctx)
	if err != nil {
		e.log.Error(ctx, "failed to resolve workspace", "err", err)
		return nil
	}

	token := e.session.AccessToken(ctx)
	result, err := e.client.Pull(ctx, token, workspaceID)
	if err != nil {
		e.log.Warn(ctx, "pull failed", "err", err)
		return nil
	}

	e.mu.Lock()
	localCount := len(e.tasks)
	e.mu.Unlock()

	if len(result.WorkspaceTodos) == 0 && localCount > 0 {
		e.log.Info(ctx, "remote workspace empty, migrating local tasks", "tasks", localCount)
		e.Push(ctx)
		return result.UnassignedTodos
	}

	if len(result.Conflicts) > 0 {
		e.AddConflicts(result.Conflicts)
	}

	e.mu.Lock()
	// The server keeps its own copy of a conflicted task, so the pulled set
	// carries the remote version. The local version stays on the list until
	// the conflict is resolved.
	localByID := make(map[string]models.Task, len(e.conflicts))
	for _, c := range e.conflicts {
		localByID[c.Local.ID] = c.Local
	}

	adopted := make([]models.Task, 0, len(result.WorkspaceTodos))
	for _, t := range result.WorkspaceTodos {
		if local, ok := localByID[t.ID]; ok {
			adopted = append(adopted, local)
			continue
		}
		if !t.Completed {
			adopted = append(adopted, t)
		}
	}
	e.tasks = adopted
	e.mu.Unlock()
	e.persist(ctx)

	if err := e.store.SetLastSyncTime(ctx, time.Now().UnixMilli()); err != nil {
		e.log.Error(ctx, "failed to advance watermark", "err", err)
	}
	return result.UnassignedTodos
}

// MigrateUnassigned asks the server to bind unassigned legacy items to the
// current workspace, then re-pulls.
func (e *Engine) MigrateUnassigned(ctx context.Context) {
	if !e.session.CanSync(ctx) {
		return
	}

	workspaceID, err := e.store.GetWorkspaceID(ctx)
	if err != nil {
		e.log.Error(ctx, "failed to resolve workspace", "err", err)
		return
	}

	token := e.session.AccessToken(ctx)
	if err := e.client.MigrateUnassigned(ctx, token, workspaceID); err != nil {
		e.log.Warn(ctx, "migrate failed", "err", err)
		return
	}
	e.Pull(ctx)
}
