package httpapi

// In-memory repository fakes backing the real services under test. The
// transactional plumbing still wants a *sql.DB, so tests open a throwaway
// in-memory sqlite handle.

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/synclist/internal/common"
	"github.com/dmitrijs2005/synclist/internal/dbx"
	"github.com/dmitrijs2005/synclist/internal/server/models"
	"github.com/dmitrijs2005/synclist/internal/server/repositories/conflicts"
	"github.com/dmitrijs2005/synclist/internal/server/repositories/devicegrants"
	"github.com/dmitrijs2005/synclist/internal/server/repositories/magiclinks"
	"github.com/dmitrijs2005/synclist/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/synclist/internal/server/repositories/todos"
	"github.com/dmitrijs2005/synclist/internal/server/repositories/users"

	_ "modernc.org/sqlite"
)

type memStore struct {
	mu     sync.Mutex
	users  map[string]models.User
	seq    int
	tokens map[string]models.RefreshToken
	grants map[string]models.DeviceGrant
	links  map[string]models.MagicLink
	todos  []models.Todo
	confls []models.Conflict
}

type memRepoManager struct {
	s *memStore
}

func newMemRepoManager() *memRepoManager {
	return &memRepoManager{s: &memStore{
		users:  map[string]models.User{},
		tokens: map[string]models.RefreshToken{},
		grants: map[string]models.DeviceGrant{},
		links:  map[string]models.MagicLink{},
	}}
}

func (m *memRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
func (m *memRepoManager) Users(db dbx.DBTX) users.Repository                  { return (*memUsers)(m.s) }
func (m *memRepoManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return (*memTokens)(m.s)
}
func (m *memRepoManager) DeviceGrants(db dbx.DBTX) devicegrants.Repository { return (*memGrants)(m.s) }
func (m *memRepoManager) MagicLinks(db dbx.DBTX) magiclinks.Repository     { return (*memLinks)(m.s) }
func (m *memRepoManager) Todos(db dbx.DBTX) todos.Repository               { return (*memTodos)(m.s) }
func (m *memRepoManager) Conflicts(db dbx.DBTX) conflicts.Repository       { return (*memConflicts)(m.s) }

type memUsers memStore

func (r *memUsers) Create(ctx context.Context, email string, tier common.Tier) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	u := models.User{ID: fmt.Sprintf("user-%d", r.seq), Email: email, Tier: tier, CreatedAt: time.Now()}
	r.users[u.ID] = u
	return &u, nil
}

func (r *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &u, nil
}

type memTokens memStore

func (r *memTokens) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (r *memTokens) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &t, nil
}

func (r *memTokens) Delete(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
	return nil
}

func (r *memTokens) DeleteForUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, t := range r.tokens {
		if t.UserID == userID {
			delete(r.tokens, token)
		}
	}
	return nil
}

type memGrants memStore

func (r *memGrants) Create(ctx context.Context, grant *models.DeviceGrant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grants[grant.DeviceCode] = *grant
	return nil
}

func (r *memGrants) FindByDeviceCode(ctx context.Context, deviceCode string) (*models.DeviceGrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.grants[deviceCode]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &g, nil
}

func (r *memGrants) FindByUserCode(ctx context.Context, userCode string) (*models.DeviceGrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.grants {
		if g.UserCode == userCode {
			g := g
			return &g, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memGrants) SetStatus(ctx context.Context, userCode string, status models.GrantStatus, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for code, g := range r.grants {
		if g.UserCode == userCode && g.Status == models.GrantPending {
			g.Status = status
			if userID != "" {
				g.UserID = userID
			}
			r.grants[code] = g
			return nil
		}
	}
	return common.ErrNotFound
}

func (r *memGrants) Delete(ctx context.Context, deviceCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.grants, deviceCode)
	return nil
}

type memLinks memStore

func (r *memLinks) Create(ctx context.Context, token, email string, validity time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[token] = models.MagicLink{Token: token, Email: email, ExpiresAt: time.Now().Add(validity)}
	return nil
}

func (r *memLinks) Consume(ctx context.Context, token string) (*models.MagicLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.links[token]
	if !ok || l.ConsumedAt != nil || l.ExpiresAt.Before(time.Now()) {
		return nil, common.ErrNotFound
	}
	now := time.Now()
	l.ConsumedAt = &now
	r.links[token] = l
	return &l, nil
}

type memTodos memStore

func (r *memTodos) ListWorkspace(ctx context.Context, userID, workspaceID string) ([]models.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Todo{}
	for _, t := range r.todos {
		if t.UserID == userID && t.WorkspaceID == workspaceID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memTodos) ListUnassigned(ctx context.Context, userID string) ([]models.Todo, error) {
	return r.ListWorkspace(ctx, userID, "")
}

func (r *memTodos) Get(ctx context.Context, userID, id string) (*models.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.todos {
		if t.UserID == userID && t.ID == id {
			t := t
			return &t, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memTodos) ReplaceWorkspace(ctx context.Context, userID, workspaceID string, todos []models.Todo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := make([]models.Todo, 0, len(r.todos))
	for _, t := range r.todos {
		if !(t.UserID == userID && t.WorkspaceID == workspaceID) {
			kept = append(kept, t)
		}
	}
	r.todos = append(kept, todos...)
	return nil
}

func (r *memTodos) AssignWorkspace(ctx context.Context, userID, workspaceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.todos {
		if t.UserID == userID && t.WorkspaceID == "" {
			r.todos[i].WorkspaceID = workspaceID
		}
	}
	return nil
}

type memConflicts memStore

func (r *memConflicts) Create(ctx context.Context, conflict *models.Conflict) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confls = append(r.confls, *conflict)
	return nil
}

func (r *memConflicts) TakeForUser(ctx context.Context, userID string) ([]models.Conflict, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	taken := []models.Conflict{}
	kept := make([]models.Conflict, 0, len(r.confls))
	for _, c := range r.confls {
		if c.UserID == userID {
			taken = append(taken, c)
		} else {
			kept = append(kept, c)
		}
	}
	r.confls = kept
	return taken, nil
}
