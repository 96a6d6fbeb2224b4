package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	task, err := NewTask("  Buy milk  ")
	require.NoError(t, err)

	assert.Equal(t, "Buy milk", task.Text)
	assert.False(t, task.Completed)
	assert.Equal(t, task.CreatedAt, task.UpdatedAt)
	assert.NotZero(t, task.CreatedAt)

	// Id shape: "<unixms>-<random>".
	parts := strings.SplitN(task.ID, "-", 2)
	require.Len(t, parts, 2)
	assert.NotEmpty(t, parts[0])
	assert.NotEmpty(t, parts[1])
}

func TestNewTask_Validation(t *testing.T) {
	_, err := NewTask("   ")
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = NewTask(strings.Repeat("x", MaxTaskTextLen+1))
	assert.ErrorIs(t, err, ErrTextTooLong)

	// Exactly at the limit is fine.
	_, err = NewTask(strings.Repeat("x", MaxTaskTextLen))
	assert.NoError(t, err)

	// The limit counts runes, not bytes: 500 three-byte characters pass.
	_, err = NewTask(strings.Repeat("日", MaxTaskTextLen))
	assert.NoError(t, err)

	_, err = NewTask(strings.Repeat("日", MaxTaskTextLen+1))
	assert.ErrorIs(t, err, ErrTextTooLong)
}

func TestMintID_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for range 100 {
		id := MintID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestResolutionPolicy_Valid(t *testing.T) {
	assert.True(t, KeepLocal.Valid())
	assert.True(t, KeepRemote.Valid())
	assert.True(t, KeepBoth.Valid())
	assert.False(t, ResolutionPolicy("merge").Valid())
}
