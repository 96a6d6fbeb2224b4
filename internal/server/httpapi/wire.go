package httpapi

import (
	"encoding/json"

	"github.com/dmitrijs2005/synclist/internal/server/models"
)

// taskDoc is the wire shape of a task, shared by push, pull and stored
// conflicts. Timestamps are epoch milliseconds.
type taskDoc struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

type conflictDoc struct {
	ID     string          `json:"id"`
	Local  json.RawMessage `json:"localTask"`
	Remote json.RawMessage `json:"remoteTask"`
}

type userDoc struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Tier  string `json:"tier"`
}

type tokenPairDoc struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

func toTaskDoc(t models.Todo) taskDoc {
	return taskDoc{ID: t.ID, Text: t.Text, Completed: t.Completed, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt}
}

func toTaskDocs(todos []models.Todo) []taskDoc {
	out := make([]taskDoc, 0, len(todos))
	for _, t := range todos {
		out = append(out, toTaskDoc(t))
	}
	return out
}

func fromTaskDoc(d taskDoc) models.Todo {
	return models.Todo{ID: d.ID, Text: d.Text, Completed: d.Completed, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
}

func toConflictDocs(conflicts []models.Conflict) []conflictDoc {
	out := make([]conflictDoc, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, conflictDoc{ID: c.ID, Local: c.Local, Remote: c.Remote})
	}
	return out
}

func toUserDoc(u *models.User) userDoc {
	return userDoc{ID: u.ID, Email: u.Email, Tier: string(u.Tier)}
}
