package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/synclist/internal/client/models"
	"github.com/dmitrijs2005/synclist/internal/client/session"
)

// Login starts the device-code activation flow and prints the code the user
// has to enter in a browser. Completion happens asynchronously via polling.
func (a *App) Login(ctx context.Context) error {
	pending, err := a.session.StartActivation(ctx)
	if err != nil {
		if errors.Is(err, session.ErrActivationInProgress) {
			printlnFn("A sign-in is already in progress. Type 'cancel' to abort it.")
			return err
		}
		printlnFn("Could not start sign-in:", err)
		return err
	}

	printlnFn(fmt.Sprintf("Open %s and enter code: %s", pending.VerificationURI, pending.UserCode))
	printlnFn("Waiting for approval...")
	return nil
}

// Cancel aborts a pending sign-in.
func (a *App) Cancel(ctx context.Context) error {
	a.session.CancelActivation()
	return nil
}

// Link completes sign-in with a magic-link token pasted from an email.
func (a *App) Link(ctx context.Context, token string) error {
	if token == "" {
		printlnFn("Usage: link <token>")
		return nil
	}
	if err := a.session.CompleteViaMagicLink(ctx, token); err != nil {
		printlnFn(err.Error())
		return err
	}
	a.channel.Connect(ctx)
	a.engine.Pull(ctx)
	return nil
}

// Logout signs out and drops the realtime connection.
func (a *App) Logout(ctx context.Context) error {
	a.channel.Disconnect()
	a.session.SignOut(ctx)
	return nil
}

// Whoami prints the current profile.
func (a *App) Whoami(ctx context.Context) error {
	user := a.session.FetchUser(ctx)
	if user == nil {
		printlnFn("Not signed in.")
		return nil
	}
	printlnFn(fmt.Sprintf("%s (%s tier)", user.Email, user.Tier))
	return nil
}

// List prints the active tasks with their 1-based positions.
func (a *App) List(ctx context.Context) error {
	tasks := a.engine.ActiveTasks()
	if len(tasks) == 0 {
		printlnFn("No tasks.")
		return nil
	}
	for i, t := range tasks {
		printlnFn(fmt.Sprintf("%3d. %s", i+1, t.Text))
	}
	return nil
}

// Add creates a task from the argument text.
func (a *App) Add(ctx context.Context, text string) error {
	if _, err := a.engine.AddTask(ctx, text); err != nil {
		printlnFn(err.Error())
		return err
	}
	return nil
}

// Edit replaces the text of the task at the given position.
func (a *App) Edit(ctx context.Context, ref, text string) error {
	task, err := a.taskByRef(ref)
	if err != nil {
		printlnFn(err.Error())
		return err
	}
	if err := a.engine.EditTask(ctx, task.ID, text); err != nil {
		printlnFn(err.Error())
		return err
	}
	return nil
}

// Done toggles completion for the task at the given position.
func (a *App) Done(ctx context.Context, ref string) error {
	task, err := a.taskByRef(ref)
	if err != nil {
		printlnFn(err.Error())
		return err
	}
	if err := a.engine.ToggleTask(ctx, task.ID); err != nil {
		printlnFn(err.Error())
		return err
	}
	return nil
}

// Rm removes the task at the given position.
func (a *App) Rm(ctx context.Context, ref string) error {
	task, err := a.taskByRef(ref)
	if err != nil {
		printlnFn(err.Error())
		return err
	}
	if err := a.engine.RemoveTask(ctx, task.ID); err != nil {
		printlnFn(err.Error())
		return err
	}
	printlnFn(fmt.Sprintf("Removed %q. Type 'undo' to bring it back.", task.Text))
	return nil
}

// Undo restores the last removed or completed task.
func (a *App) Undo(ctx context.Context) error {
	task, err := a.engine.Undo(ctx)
	if err != nil {
		printlnFn(err.Error())
		return err
	}
	printlnFn(fmt.Sprintf("Restored %q.", task.Text))
	return nil
}

// Sync pulls the remote state, reports anything needing attention, and
// pushes the local state.
func (a *App) Sync(ctx context.Context) error {
	if !a.session.CanSync(ctx) {
		printlnFn("Cloud sync needs a pro account. Your tasks stay on this device.")
		return nil
	}

	unassigned := a.engine.Pull(ctx)
	if n := len(unassigned); n > 0 {
		printlnFn(fmt.Sprintf("%d task(s) from before sign-in are not in this workspace. Type 'migrate' to adopt them.", n))
	}
	if n := len(a.engine.Conflicts()); n > 0 {
		printlnFn(fmt.Sprintf("%d conflict(s) need your attention. Type 'conflicts' to review.", n))
	}
	a.engine.Push(ctx)
	printlnFn("Synced.")
	return nil
}

// ShowConflicts prints pending conflicts.
func (a *App) ShowConflicts(ctx context.Context) error {
	conflicts := a.engine.Conflicts()
	if len(conflicts) == 0 {
		printlnFn("No conflicts.")
		return nil
	}
	for _, c := range conflicts {
		printlnFn(fmt.Sprintf("%s:\n  local:  %s\n  remote: %s", c.ID, c.Local.Text, c.Remote.Text))
	}
	printlnFn("Resolve with: resolve <id|all> <keep_local|keep_remote|keep_both>")
	return nil
}

// Resolve applies a policy to one conflict, or to all of them.
func (a *App) Resolve(ctx context.Context, ref, policyArg string) error {
	policy := models.ResolutionPolicy(policyArg)
	var err error
	if ref == "all" {
		err = a.engine.ResolveAll(ctx, policy)
	} else {
		err = a.engine.ResolveConflict(ctx, ref, policy)
	}
	if err != nil {
		printlnFn(err.Error())
		return err
	}
	printlnFn("Resolved.")
	return nil
}

// Migrate adopts legacy unassigned tasks into the current workspace.
func (a *App) Migrate(ctx context.Context) error {
	a.engine.MigrateUnassigned(ctx)
	printlnFn("Migration requested.")
	return nil
}

// taskByRef resolves a 1-based list position to a task.
func (a *App) taskByRef(ref string) (models.Task, error) {
	n, err := strconv.Atoi(strings.TrimSpace(ref))
	if err != nil {
		return models.Task{}, fmt.Errorf("not a task number: %q", ref)
	}
	tasks := a.engine.ActiveTasks()
	if n < 1 || n > len(tasks) {
		return models.Task{}, fmt.Errorf("no task at position %d", n)
	}
	return tasks[n-1], nil
}

func (a *App) isLoggedIn(ctx context.Context) bool {
	return a.session.IsAuthenticated(ctx)
}
