// internal/handlers/utils.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/averyhall/warcouncil/internal/battle"
	"github.com/averyhall/warcouncil/internal/lobby"
	"github.com/averyhall/warcouncil/internal/snapshot"
)

// trailingUUID parses the id segment after prefix in a path like
// /battle/ws/{id}.
func trailingUUID(path, prefix string) (uuid.UUID, error) {
	rest := strings.TrimPrefix(path, prefix)
	if idx := strings.Index(rest, "/"); idx != -1 {
		rest = rest[:idx]
	}
	return uuid.Parse(rest)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusForError maps engine failure kinds onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, lobby.ErrNotFound),
		errors.Is(err, battle.ErrNotFound),
		errors.Is(err, snapshot.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, lobby.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, lobby.ErrBattleInProgress),
		errors.Is(err, lobby.ErrCapacityExceeded),
		errors.Is(err, lobby.ErrInsufficientPlayers),
		errors.Is(err, battle.ErrNotYourTurn),
		errors.Is(err, battle.ErrPurchaseNotAllowedYet),
		errors.Is(err, battle.ErrCorruptSnapshot),
		errors.Is(err, snapshot.ErrIncompatibleVersion):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
