package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn(ctx context.Context) bool
	Login(ctx context.Context) error
	Cancel(ctx context.Context) error
	Link(ctx context.Context, token string) error
	Logout(ctx context.Context) error
	Whoami(ctx context.Context) error
	List(ctx context.Context) error
	Add(ctx context.Context, text string) error
	Edit(ctx context.Context, ref, text string) error
	Done(ctx context.Context, ref string) error
	Rm(ctx context.Context, ref string) error
	Undo(ctx context.Context) error
	Sync(ctx context.Context) error
	ShowConflicts(ctx context.Context) error
	Resolve(ctx context.Context, ref, policy string) error
	Migrate(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the SyncList CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Always:
//	  - help               — show available commands
//	  - (l)ist             — list active tasks
//	  - add <text>         — add a task
//	  - edit <n> <text>    — replace the text of task n
//	  - done <n>           — toggle completion of task n
//	  - rm <n>             — remove task n
//	  - undo               — restore the last removed/completed task
//	  - exit | quit        — leave the program
//
//	Signed out:
//	  - login              — start device-code sign-in
//	  - link <token>       — complete sign-in with a magic-link token
//	  - cancel             — abort a pending sign-in
//
//	Signed in:
//	  - sync               — pull and push now
//	  - conflicts          — review pending conflicts
//	  - resolve <id> <p>   — resolve a conflict (keep_local|keep_remote|keep_both)
//	  - migrate            — adopt legacy unassigned tasks
//	  - whoami             — show the signed-in profile
//	  - logout             — sign out
//
// Any errors returned by command handlers are ignored here; handlers should
// report their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("sl> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			printlnFn("Tasks: (l)ist, add <text>, edit <n> <text>, done <n>, rm <n>, undo")
			if a.isLoggedIn(ctx) {
				printlnFn("Account: sync, conflicts, resolve <id|all> <policy>, migrate, whoami, logout, exit")
			} else {
				printlnFn("Account: login, link <token>, cancel, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "cancel":
			_ = a.Cancel(ctx)

		case "link":
			_ = a.Link(ctx, firstArg(args))

		case "logout":
			_ = a.Logout(ctx)

		case "whoami":
			_ = a.Whoami(ctx)

		case "l", "list":
			_ = a.List(ctx)

		case "add":
			_ = a.Add(ctx, strings.Join(args, " "))

		case "edit":
			if len(args) < 2 {
				printlnFn("Usage: edit <n> <text>")
				continue
			}
			_ = a.Edit(ctx, args[0], strings.Join(args[1:], " "))

		case "done":
			_ = a.Done(ctx, firstArg(args))

		case "rm":
			_ = a.Rm(ctx, firstArg(args))

		case "undo":
			_ = a.Undo(ctx)

		case "sync":
			_ = a.Sync(ctx)

		case "conflicts":
			_ = a.ShowConflicts(ctx)

		case "resolve":
			if len(args) < 2 {
				printlnFn("Usage: resolve <id|all> <keep_local|keep_remote|keep_both>")
				continue
			}
			_ = a.Resolve(ctx, args[0], args[1])

		case "migrate":
			_ = a.Migrate(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
