package services

// In-memory repository fakes. The service transactions still need a real
// *sql.DB to begin/commit against, so tests open a throwaway in-memory
// sqlite handle; all actual data lives in these fakes.

import (
	"context"
	"database/sql"
	"fmt"
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

type fakeRepoManager struct {
	users     *fakeUsers
	refresh   *fakeRefreshTokens
	grants    *fakeDeviceGrants
	links     *fakeMagicLinks
	todos     *fakeTodos
	conflicts *fakeConflicts
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:     &fakeUsers{byID: map[string]models.User{}},
		refresh:   &fakeRefreshTokens{byToken: map[string]models.RefreshToken{}},
		grants:    &fakeDeviceGrants{byDeviceCode: map[string]models.DeviceGrant{}},
		links:     &fakeMagicLinks{byToken: map[string]models.MagicLink{}},
		todos:     &fakeTodos{},
		conflicts: &fakeConflicts{},
	}
}

func (m *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository                  { return m.users }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository  { return m.refresh }
func (m *fakeRepoManager) DeviceGrants(db dbx.DBTX) devicegrants.Repository    { return m.grants }
func (m *fakeRepoManager) MagicLinks(db dbx.DBTX) magiclinks.Repository        { return m.links }
func (m *fakeRepoManager) Todos(db dbx.DBTX) todos.Repository                  { return m.todos }
func (m *fakeRepoManager) Conflicts(db dbx.DBTX) conflicts.Repository          { return m.conflicts }

type fakeUsers struct {
	byID map[string]models.User
	seq  int
}

func (r *fakeUsers) Create(ctx context.Context, email string, tier common.Tier) (*models.User, error) {
	r.seq++
	u := models.User{ID: fmt.Sprintf("user-%d", r.seq), Email: email, Tier: tier, CreatedAt: time.Now()}
	r.byID[u.ID] = u
	return &u, nil
}

func (r *fakeUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.byID {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &u, nil
}

type fakeRefreshTokens struct {
	byToken map[string]models.RefreshToken
}

func (r *fakeRefreshTokens) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	r.byToken[token] = models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (r *fakeRefreshTokens) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	t, ok := r.byToken[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &t, nil
}

func (r *fakeRefreshTokens) Delete(ctx context.Context, token string) error {
	delete(r.byToken, token)
	return nil
}

func (r *fakeRefreshTokens) DeleteForUser(ctx context.Context, userID string) error {
	for token, t := range r.byToken {
		if t.UserID == userID {
			delete(r.byToken, token)
		}
	}
	return nil
}

type fakeDeviceGrants struct {
	byDeviceCode map[string]models.DeviceGrant
}

func (r *fakeDeviceGrants) Create(ctx context.Context, grant *models.DeviceGrant) error {
	r.byDeviceCode[grant.DeviceCode] = *grant
	return nil
}

func (r *fakeDeviceGrants) FindByDeviceCode(ctx context.Context, deviceCode string) (*models.DeviceGrant, error) {
	g, ok := r.byDeviceCode[deviceCode]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &g, nil
}

func (r *fakeDeviceGrants) FindByUserCode(ctx context.Context, userCode string) (*models.DeviceGrant, error) {
	for _, g := range r.byDeviceCode {
		if g.UserCode == userCode {
			g := g
			return &g, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeDeviceGrants) SetStatus(ctx context.Context, userCode string, status models.GrantStatus, userID string) error {
	for code, g := range r.byDeviceCode {
		if g.UserCode == userCode && g.Status == models.GrantPending {
			g.Status = status
			if userID != "" {
				g.UserID = userID
			}
			r.byDeviceCode[code] = g
			return nil
		}
	}
	return common.ErrNotFound
}

func (r *fakeDeviceGrants) Delete(ctx context.Context, deviceCode string) error {
	delete(r.byDeviceCode, deviceCode)
	return nil
}

type fakeMagicLinks struct {
	byToken map[string]models.MagicLink
}

func (r *fakeMagicLinks) Create(ctx context.Context, token, email string, validity time.Duration) error {
	r.byToken[token] = models.MagicLink{Token: token, Email: email, ExpiresAt: time.Now().Add(validity)}
	return nil
}

func (r *fakeMagicLinks) Consume(ctx context.Context, token string) (*models.MagicLink, error) {
	l, ok := r.byToken[token]
	if !ok || l.ConsumedAt != nil || l.ExpiresAt.Before(time.Now()) {
		return nil, common.ErrNotFound
	}
	now := time.Now()
	l.ConsumedAt = &now
	r.byToken[token] = l
	return &l, nil
}

type fakeTodos struct {
	rows []models.Todo
}

func (r *fakeTodos) ListWorkspace(ctx context.Context, userID, workspaceID string) ([]models.Todo, error) {
	out := []models.Todo{}
	for _, t := range r.rows {
		if t.UserID == userID && t.WorkspaceID == workspaceID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTodos) ListUnassigned(ctx context.Context, userID string) ([]models.Todo, error) {
	return r.ListWorkspace(ctx, userID, "")
}

func (r *fakeTodos) Get(ctx context.Context, userID, id string) (*models.Todo, error) {
	for _, t := range r.rows {
		if t.UserID == userID && t.ID == id {
			t := t
			return &t, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeTodos) ReplaceWorkspace(ctx context.Context, userID, workspaceID string, todos []models.Todo) error {
	kept := r.rows[:0]
	for _, t := range r.rows {
		if !(t.UserID == userID && t.WorkspaceID == workspaceID) {
			kept = append(kept, t)
		}
	}
	r.rows = append(kept, todos...)
	return nil
}

func (r *fakeTodos) AssignWorkspace(ctx context.Context, userID, workspaceID string) error {
	for i, t := range r.rows {
		if t.UserID == userID && t.WorkspaceID == "" {
			r.rows[i].WorkspaceID = workspaceID
		}
	}
	return nil
}

type fakeConflicts struct {
	rows []models.Conflict
}

func (r *fakeConflicts) Create(ctx context.Context, conflict *models.Conflict) error {
	r.rows = append(r.rows, *conflict)
	return nil
}

func (r *fakeConflicts) TakeForUser(ctx context.Context, userID string) ([]models.Conflict, error) {
	taken := []models.Conflict{}
	kept := r.rows[:0]
	for _, c := range r.rows {
		if c.UserID == userID {
			taken = append(taken, c)
		} else {
			kept = append(kept, c)
		}
	}
	r.rows = kept
	return taken, nil
}
