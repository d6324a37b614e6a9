// internal/handlers/saves.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/averyhall/warcouncil/internal/models"
)

// CreateSaveHandler captures a battle into the snapshot store.
// Body: {"battleId": "...", "name": "..."}.
func (s *Server) CreateSaveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	var req struct {
		BattleID uuid.UUID `json:"battleId"`
		Name     string    `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad save request payload")
		return
	}

	snap, err := s.Battles.Get(req.BattleID)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	rec, err := s.Saves.Save(r.Context(), snap, req.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListSavesHandler lists save summaries, most recent first.
func (s *Server) ListSavesHandler(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.Saves.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// LoadSaveHandler loads a save for inspection, or with ?resume=1
// re-registers the session so it accepts actions again. Those are distinct
// operations on purpose.
func (s *Server) LoadSaveHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid save id")
		return
	}
	snap, err := s.Saves.Load(r.Context(), id)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	if r.URL.Query().Get("resume") == "1" {
		if _, err := s.Battles.Restore(snap); err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, snap)
}

// DeleteSaveHandler removes a save record.
func (s *Server) DeleteSaveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "POST or DELETE only")
		return
	}
	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid save id")
		return
	}
	deleted, err := s.Saves.Delete(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

// ExportSavesHandler dumps every save record keyed by save id.
func (s *Server) ExportSavesHandler(w http.ResponseWriter, r *http.Request) {
	recs, err := s.Saves.Export(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// ImportSavesHandler merges a save-id-to-record mapping into the store.
// Imported entries win on id collision.
func (s *Server) ImportSavesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	var recs map[uuid.UUID]models.SaveRecord
	if err := json.NewDecoder(r.Body).Decode(&recs); err != nil {
		writeError(w, http.StatusBadRequest, "bad import payload")
		return
	}
	if err := s.Saves.Import(r.Context(), recs); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": len(recs)})
}
