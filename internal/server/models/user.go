package models

import (
	"time"

	"github.com/dmitrijs2005/synclist/internal/common"
)

// User is an account row. Accounts are created implicitly the first time an
// email shows up through a magic link or a dev identity header.
type User struct {
	ID        string
	Email     string
	Tier      common.Tier
	CreatedAt time.Time
}
