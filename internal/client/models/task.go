// Package models defines the client-side data model: tasks, conflicts,
// users, and realtime events exchanged with the SyncList backend.
package models

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTaskTextLen is the maximum length of task text after trimming,
// counted in runes.
const MaxTaskTextLen = 500

var (
	// ErrEmptyText is returned when task text is empty after trimming.
	ErrEmptyText = errors.New("task text is empty")

	// ErrTextTooLong is returned when task text exceeds MaxTaskTextLen.
	ErrTextTooLong = errors.New("task text too long")
)

// Task is a single to-do item. Timestamps are epoch milliseconds so they
// survive JSON round-trips to the server without precision games.
type Task struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// NewTask mints a task with a client-side id and current timestamps.
// The text must be non-empty after trimming and within MaxTaskTextLen.
func NewTask(text string) (Task, error) {
	text, err := NormalizeText(text)
	if err != nil {
		return Task{}, err
	}
	now := time.Now().UnixMilli()
	return Task{
		ID:        MintID(),
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NormalizeText trims the text and validates length constraints.
func NormalizeText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	if utf8.RuneCountInString(text) > MaxTaskTextLen {
		return "", ErrTextTooLong
	}
	return text, nil
}

// MintID produces a client-side task id of the form "<unixms>-<random>".
// Server-assigned ids use a different shape; both are treated as opaque.
func MintID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), hex.EncodeToString(b))
}
