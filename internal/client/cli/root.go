package cli

import (
	"bufio"
	"context"
	"os"

	"github.com/dmitrijs2005/synclist/internal/client/session"
)

// getStatus renders the prompt suffix from the current session snapshot.
func (a *App) getStatus() string {
	st := a.session.State()
	switch st.Status {
	case session.StatusAuthenticated:
		if st.User != nil {
			return "(" + st.User.Email + ")"
		}
		return "(signed in)"
	case session.StatusActivationPending:
		return "(waiting for approval)"
	default:
		return "(signed out)"
	}
}

// Root runs the interactive loop until EOF or an exit command.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to SyncList (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}
