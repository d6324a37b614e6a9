// internal/handlers/lobby.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/averyhall/warcouncil/internal/auth"
	"github.com/averyhall/warcouncil/internal/models"
)

// CreateLobbyHandler builds an in-memory lobby with the caller seated as
// host. Guests are minted on the fly.
func (s *Server) CreateLobbyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	ident, err := auth.EnsureUser(w, r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var settings models.BattleSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil && err.Error() != "EOF" {
		writeError(w, http.StatusBadRequest, "bad settings payload")
		return
	}

	l := s.Lobbies.CreateLobby(ident.ID, ident.DisplayName, settings)
	writeJSON(w, http.StatusOK, l.View())
}

// ListLobbiesHandler returns the discovery snapshot of WAITING lobbies.
func (s *Server) ListLobbiesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Lobbies.ListOpen())
}

// GetBattleHandler returns the current session snapshot, the reconcile
// path for clients that missed a broadcast: /battle/get/{battle_id}.
func (s *Server) GetBattleHandler(w http.ResponseWriter, r *http.Request) {
	id, err := trailingUUID(r.URL.Path, "/battle/get/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid battle id")
		return
	}
	snap, err := s.Battles.Get(id)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
