package cli

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/dmitrijs2005/synclist/internal/client/client"
	"github.com/dmitrijs2005/synclist/internal/client/config"
	"github.com/dmitrijs2005/synclist/internal/client/models"
	"github.com/dmitrijs2005/synclist/internal/client/realtime"
	"github.com/dmitrijs2005/synclist/internal/client/session"
	"github.com/dmitrijs2005/synclist/internal/client/storage"
	"github.com/dmitrijs2005/synclist/internal/client/sync"
	"github.com/dmitrijs2005/synclist/internal/logging"

	_ "modernc.org/sqlite"
)

// sessionManager is the slice of the session manager the commands use.
type sessionManager interface {
	StartActivation(ctx context.Context) (*session.PendingActivation, error)
	CancelActivation()
	CompleteViaMagicLink(ctx context.Context, token string) error
	SignOut(ctx context.Context)
	IsAuthenticated(ctx context.Context) bool
	CanSync(ctx context.Context) bool
	FetchUser(ctx context.Context) *models.User
	State() session.State
	Subscribe(fn func(session.State))
}

// taskEngine is the slice of the sync engine the commands use.
type taskEngine interface {
	ActiveTasks() []models.Task
	AddTask(ctx context.Context, text string) (models.Task, error)
	EditTask(ctx context.Context, id, text string) error
	RemoveTask(ctx context.Context, id string) error
	ToggleTask(ctx context.Context, id string) error
	Undo(ctx context.Context) (models.Task, error)
	Push(ctx context.Context)
	Pull(ctx context.Context) []models.Task
	Conflicts() []models.Conflict
	ResolveConflict(ctx context.Context, conflictID string, policy models.ResolutionPolicy) error
	ResolveAll(ctx context.Context, policy models.ResolutionPolicy) error
	MigrateUnassigned(ctx context.Context)
}

// App owns the client core and exposes it as REPL commands.
type App struct {
	config  *config.Config
	session sessionManager
	engine  taskEngine
	channel *realtime.Channel
	store   *storage.Store
	log     logging.Logger

	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens local storage and wires the API client, session manager, sync
// engine and realtime channel together.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	store, err := storage.Open(ctx, cfg.DataDir)
	if err != nil {
		return nil, err
	}

	var clientOpts []client.Option
	if cfg.DevIdentity != "" {
		clientOpts = append(clientOpts, client.WithDevIdentity(cfg.DevIdentity))
	}
	api := client.NewHTTPClient(cfg.ServerURL, clientOpts...)

	sess := session.NewManager(ctx, api, store, log, session.WithDeviceName(cfg.DeviceName))

	engine, err := sync.NewEngine(ctx, api, sess, store, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	var channelOpts []realtime.Option
	if cfg.DevIdentity != "" {
		channelOpts = append(channelOpts, realtime.WithDevIdentity(cfg.DevIdentity))
	}
	channel := realtime.NewChannel(cfg.WebsocketURL(), sess, log, channelOpts...)

	a := &App{
		config:  cfg,
		session: sess,
		engine:  engine,
		channel: channel,
		store:   store,
		log:     log,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}
	a.wireEvents()
	return a, nil
}

// wireEvents connects realtime frames and session transitions to the engine
// and the terminal.
func (a *App) wireEvents() {
	refresh := func(models.Event) {
		a.engine.Pull(context.Background())
	}
	// EventConnected covers the initial connect and every reconnect, so edits
	// made while offline are picked up without waiting for another push.
	a.channel.Subscribe(models.EventConnected, refresh)
	a.channel.Subscribe(models.EventTaskCreated, refresh)
	a.channel.Subscribe(models.EventTaskUpdated, refresh)
	a.channel.Subscribe(models.EventTaskDeleted, refresh)

	a.session.Subscribe(func(st session.State) {
		if st.Message != "" {
			printlnFn(st.Message)
		}
		// Activation completes on the polling goroutine; bring the realtime
		// channel and local list up as soon as the session allows sync.
		ctx := context.Background()
		if st.Status == session.StatusAuthenticated && a.session.CanSync(ctx) {
			a.channel.Connect(ctx)
			a.engine.Pull(ctx)
		}
	})
}

// Run enters the REPL, connecting the realtime channel first if a session
// already exists.
func (a *App) Run(ctx context.Context) {
	if a.session.CanSync(ctx) {
		a.channel.Connect(ctx)
		a.engine.Pull(ctx)
	}
	a.Root(ctx)
}

// Close releases the realtime connection and local storage.
func (a *App) Close() {
	a.channel.Disconnect()
	if e, ok := a.engine.(*sync.Engine); ok {
		e.Close()
	}
	_ = a.store.Close()
}
