package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/synclist/internal/client/models"
)

// AddConflicts appends server-detected conflicts to the pending queue.
// The realtime channel and pull both feed this; duplicates by conflict id
// are dropped so a reconnect does not double-report.
func (e *Engine) AddConflicts(conflicts []models.Conflict) {
	e.mu.Lock()
	defer e.mu.Unlock()

	seen := make(map[string]struct{}, len(e.conflicts))
	for _, c := range e.conflicts {
		seen[c.ID] = struct{}{}
	}
	for _, c := range conflicts {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		e.conflicts = append(e.conflicts, c)
		seen[c.ID] = struct{}{}
	}
}

// Conflicts returns the pending conflicts in arrival order.
func (e *Engine) Conflicts() []models.Conflict {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.Conflict(nil), e.conflicts...)
}

// ResolveConflict applies one resolution policy to a pending conflict:
//
//   - keep_local:  the local version stands, the remote one is discarded
//   - keep_remote: the remote version replaces the local one in place
//   - keep_both:   the remote version is appended under a derived id so
//     both entries survive
//
// The conflict leaves the queue in every case, and the outcome is persisted
// and pushed.
func (e *Engine) ResolveConflict(ctx context.Context, conflictID string, policy models.ResolutionPolicy) error {
	if !policy.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPolicy, policy)
	}

	e.mu.Lock()
	ci := -1
	for i, c := range e.conflicts {
		if c.ID == conflictID {
			ci = i
			break
		}
	}
	if ci < 0 {
		e.mu.Unlock()
		return ErrConflictNotFound
	}
	conflict := e.conflicts[ci]
	e.conflicts = append(e.conflicts[:ci], e.conflicts[ci+1:]...)

	switch policy {
	case models.KeepLocal:
		// Local copy already in place.
	case models.KeepRemote:
		if i := e.indexLocked(conflict.Local.ID); i >= 0 {
			e.tasks[i] = conflict.Remote
		} else {
			e.tasks = append(e.tasks, conflict.Remote)
		}
	case models.KeepBoth:
		remote := conflict.Remote
		remote.ID = fmt.Sprintf("%s-remote-%d", remote.ID, time.Now().UnixMilli())
		e.tasks = append(e.tasks, remote)
	}
	e.mu.Unlock()

	e.persist(ctx)
	e.schedulePush(ctx)
	return nil
}

// ResolveAll applies one policy to every pending conflict, in queue order.
func (e *Engine) ResolveAll(ctx context.Context, policy models.ResolutionPolicy) error {
	if !policy.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPolicy, policy)
	}

	for {
		e.mu.Lock()
		if len(e.conflicts) == 0 {
			e.mu.Unlock()
			return nil
		}
		id := e.conflicts[0].ID
		e.mu.Unlock()

		if err := e.ResolveConflict(ctx, id, policy); err != nil {
			return err
		}
	}
}
