// internal/handlers/auth.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/averyhall/warcouncil/internal/auth"
)

type credentials struct {
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

// ClaimNameHandler reserves a display name behind a password and logs the
// caller in under it.
func (s *Server) ClaimNameHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.DisplayName == "" || creds.Password == "" {
		writeError(w, http.StatusBadRequest, "displayName and password required")
		return
	}
	if err := s.Names.Claim(creds.DisplayName, creds.Password); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, auth.ErrNameTaken) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}
	s.issueSession(w, creds.DisplayName)
}

// LoginHandler verifies a reserved name and mints a fresh session under it.
// A fresh session means a fresh connection id: identity continuity across
// reconnects is out of scope.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "displayName required")
		return
	}
	if err := s.Names.Verify(creds.DisplayName, creds.Password); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}
	s.issueSession(w, creds.DisplayName)
}

func (s *Server) issueSession(w http.ResponseWriter, displayName string) {
	id := uuid.New()
	token, err := auth.CreateJWT(id.String(), displayName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "mint session token")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, auth.Identity{ID: id, DisplayName: displayName})
}
