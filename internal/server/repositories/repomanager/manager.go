package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/synclist/internal/dbx"
	"github.com/dmitrijs2005/synclist/internal/server/repositories/conflicts"
	"github.com/dmitrijs2005/synclist/internal/server/repositories/devicegrants"
	"github.com/dmitrijs2005/synclist/internal/server/repositories/magiclinks"
	"github.com/dmitrijs2005/synclist/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/synclist/internal/server/repositories/todos"
	"github.com/dmitrijs2005/synclist/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	DeviceGrants(db dbx.DBTX) devicegrants.Repository
	MagicLinks(db dbx.DBTX) magiclinks.Repository
	Todos(db dbx.DBTX) todos.Repository
	Conflicts(db dbx.DBTX) conflicts.Repository
}
