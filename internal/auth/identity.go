// internal/auth/identity.go
package auth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// Identity is what the rest of the engine knows about a caller: a
// connection-scoped id plus a display name. Identity continuity across
// reconnects is deliberately out of scope; a new connection is a new id.
type Identity struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"displayName"`
}

// ErrUnauthenticated is returned when no valid session token is present.
var ErrUnauthenticated = errors.New("unauthenticated")

const cookieName = "auth_token"

// CurrentUser resolves the caller's identity from the auth cookie.
func CurrentUser(r *http.Request) (Identity, error) {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return Identity{}, ErrUnauthenticated
	}
	sub, name, err := AuthenticateJWT(cookie.Value)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: malformed subject", ErrUnauthenticated)
	}
	return Identity{ID: id, DisplayName: name}, nil
}

// EnsureUser returns the caller's identity, minting a guest identity and
// setting its cookie when none exists. The optional displayName query
// parameter names new guests.
func EnsureUser(w http.ResponseWriter, r *http.Request) (Identity, error) {
	if ident, err := CurrentUser(r); err == nil {
		return ident, nil
	}

	id := uuid.New()
	name := r.URL.Query().Get("displayName")
	if name == "" {
		name = "Guest_" + id.String()[:8]
	}
	token, err := CreateJWT(id.String(), name)
	if err != nil {
		return Identity{}, fmt.Errorf("mint guest token: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return Identity{ID: id, DisplayName: name}, nil
}
