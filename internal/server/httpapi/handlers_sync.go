package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/synclist/internal/server/models"
)

func (a *API) handlePush(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkspaceID string    `json:"workspaceId"`
		Todos       []taskDoc `json:"todos"`
		LastSyncAt  int64     `json:"lastSyncAt"`
	}
	if err := decodeJSON(r, &req); err != nil || req.WorkspaceID == "" {
		writeErrorCode(w, http.StatusBadRequest, "BAD_REQUEST")
		return
	}

	userID := userIDFromContext(r.Context())

	incoming := make([]models.Todo, 0, len(req.Todos))
	for _, d := range req.Todos {
		incoming = append(incoming, fromTaskDoc(d))
	}

	if err := a.sync.Push(r.Context(), userID, req.WorkspaceID, incoming, req.LastSyncAt); err != nil {
		a.log.Error(r.Context(), "push failed", "user_id", userID, "error", err)
		writeErrorCode(w, http.StatusInternalServerError, "INTERNAL")
		return
	}

	a.broadcastTaskUpdate(r.Context(), userID)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handlePull(w http.ResponseWriter, r *http.Request) {
	workspaceID := r.URL.Query().Get("workspaceId")
	if workspaceID == "" {
		writeErrorCode(w, http.StatusBadRequest, "BAD_REQUEST")
		return
	}

	userID := userIDFromContext(r.Context())

	res, err := a.sync.Pull(r.Context(), userID, workspaceID)
	if err != nil {
		a.log.Error(r.Context(), "pull failed", "user_id", userID, "error", err)
		writeErrorCode(w, http.StatusInternalServerError, "INTERNAL")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"workspaceTodos":  toTaskDocs(res.Todos),
		"unassignedTodos": toTaskDocs(res.Unassigned),
		"conflicts":       toConflictDocs(res.Conflicts),
	})
}

func (a *API) handleMigrate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkspaceID string `json:"workspaceId"`
	}
	if err := decodeJSON(r, &req); err != nil || req.WorkspaceID == "" {
		writeErrorCode(w, http.StatusBadRequest, "BAD_REQUEST")
		return
	}

	userID := userIDFromContext(r.Context())

	if err := a.sync.MigrateUnassigned(r.Context(), userID, req.WorkspaceID); err != nil {
		a.log.Error(r.Context(), "migration failed", "user_id", userID, "error", err)
		writeErrorCode(w, http.StatusInternalServerError, "INTERNAL")
		return
	}

	a.broadcastTaskUpdate(r.Context(), userID)
	w.WriteHeader(http.StatusNoContent)
}
