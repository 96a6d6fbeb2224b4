// Package cli wires the SyncList client core (storage, session, sync engine,
// realtime channel) into an interactive read–eval–print loop.
//
// The REPL accepts one command per line; task commands address tasks by the
// 1-based position shown by "list". Type "help" inside the loop for the full
// command table.
package cli
