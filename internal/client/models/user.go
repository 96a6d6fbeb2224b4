package models

import "github.com/dmitrijs2005/synclist/internal/common"

// User is the authenticated account profile as returned by GET /auth/me.
type User struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Tier  common.Tier `json:"tier"`
}
