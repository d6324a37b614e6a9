// internal/handlers/lobby_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averyhall/warcouncil/internal/auth"
	"github.com/averyhall/warcouncil/internal/lobby"
	"github.com/averyhall/warcouncil/internal/models"
	"github.com/averyhall/warcouncil/internal/reaper"
	"github.com/averyhall/warcouncil/internal/snapshot"
)

func TestMain(m *testing.M) {
	auth.Init()
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(nil)
}

// authCookie mints a valid session cookie for the given identity.
func authCookie(t *testing.T, id uuid.UUID, displayName string) *http.Cookie {
	t.Helper()
	token, err := auth.CreateJWT(id.String(), displayName)
	require.NoError(t, err)
	return &http.Cookie{Name: "auth_token", Value: token}
}

func TestCreateLobbyMintsGuest(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/lobby/create?displayName=Alice", nil)
	rr := httptest.NewRecorder()
	srv.CreateLobbyHandler(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	// A guest identity was minted and its cookie set.
	var sessionCookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == "auth_token" {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie, "guest cookie issued")

	var v lobby.View
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	require.Len(t, v.Players, 1)
	assert.Equal(t, "Alice", v.Players[0].DisplayName)
	assert.True(t, v.Players[0].IsHost)
	assert.Equal(t, models.LobbyWaiting, v.Status)
}

func TestCreateLobbyReusesExistingSession(t *testing.T) {
	srv := newTestServer(t)
	host := uuid.New()

	body := bytes.NewBufferString(`{"maxPlayers": 4}`)
	req := httptest.NewRequest(http.MethodPost, "/lobby/create", body)
	req.AddCookie(authCookie(t, host, "Alice"))
	rr := httptest.NewRecorder()
	srv.CreateLobbyHandler(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var v lobby.View
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	assert.Equal(t, host, v.HostID)
	assert.Equal(t, 4, v.Settings.MaxPlayers)
}

func TestCreateLobbyRejectsGet(t *testing.T) {
	srv := newTestServer(t)
	rr := httptest.NewRecorder()
	srv.CreateLobbyHandler(rr, httptest.NewRequest(http.MethodGet, "/lobby/create", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestListLobbiesShowsOnlyWaiting(t *testing.T) {
	srv := newTestServer(t)
	srv.Lobbies.CreateLobby(uuid.New(), "Alice", models.BattleSettings{})
	started := srv.Lobbies.CreateLobby(uuid.New(), "Bob", models.BattleSettings{})
	started.Mu.Lock()
	started.Status = models.LobbyInProgress
	started.Mu.Unlock()

	rr := httptest.NewRecorder()
	srv.ListLobbiesHandler(rr, httptest.NewRequest(http.MethodGet, "/lobby/list", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var open []lobby.Summary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &open))
	require.Len(t, open, 1)
	assert.Equal(t, "Alice", open[0].HostDisplayName)
}

func TestGetBattleUnknownID(t *testing.T) {
	srv := newTestServer(t)
	path := "/battle/get/" + uuid.NewString()
	rr := httptest.NewRecorder()
	srv.GetBattleHandler(rr, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	srv.GetBattleHandler(rr, httptest.NewRequest(http.MethodGet, "/battle/get/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// startedBattle drives a lobby through join and start directly against the
// engine so the HTTP tests have a live session to work with.
func startedBattle(t *testing.T, srv *Server) models.BattleSnapshot {
	t.Helper()
	host := uuid.New()
	l := srv.Lobbies.CreateLobby(host, "Alice", models.BattleSettings{})
	_, err := srv.Lobbies.JoinLobby(l.ID, uuid.New(), "Bob", false)
	require.NoError(t, err)
	snap, err := srv.Battles.StartFromLobby(l, host)
	require.NoError(t, err)
	return snap
}

func TestGetBattleReturnsSnapshot(t *testing.T) {
	srv := newTestServer(t)
	snap := startedBattle(t, srv)

	rr := httptest.NewRecorder()
	srv.GetBattleHandler(rr, httptest.NewRequest(http.MethodGet, "/battle/get/"+snap.ID.String(), nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var got models.BattleSnapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, snap.ID, got.ID)
	assert.Len(t, got.Participants, 2)
}

func TestSaveLoadResumeOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	snap := startedBattle(t, srv)

	body := bytes.NewBufferString(fmt.Sprintf(`{"battleId": %q, "name": "checkpoint"}`, snap.ID))
	rr := httptest.NewRecorder()
	srv.CreateSaveHandler(rr, httptest.NewRequest(http.MethodPost, "/saves/create", body))
	require.Equal(t, http.StatusOK, rr.Code)

	var rec models.SaveRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, "checkpoint", rec.Name)
	assert.Equal(t, snap.ID, rec.Session.ID)

	// Load without resume only inspects.
	rr = httptest.NewRecorder()
	srv.LoadSaveHandler(rr, httptest.NewRequest(http.MethodGet, "/saves/load?id="+rec.ID.String(), nil))
	require.Equal(t, http.StatusOK, rr.Code)

	// Resume into a server with no live sessions re-registers it.
	cold := newTestServer(t)
	require.NoError(t, cold.Saves.Import(context.Background(),
		map[uuid.UUID]models.SaveRecord{rec.ID: rec}))
	rr = httptest.NewRecorder()
	cold.LoadSaveHandler(rr, httptest.NewRequest(http.MethodGet, "/saves/load?id="+rec.ID.String()+"&resume=1", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	got, err := cold.Battles.Get(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, got.ID)
}

func TestResumeRejectsCorruptImport(t *testing.T) {
	srv := newTestServer(t)
	snap := startedBattle(t, srv)
	snap.CurrentTurnIndex = 7 // points outside the participant list

	rec := models.SaveRecord{
		ID:            uuid.New(),
		Name:          "tampered",
		Session:       snap,
		SavedAt:       time.Now(),
		FormatVersion: snapshot.FormatVersion,
	}
	require.NoError(t, srv.Saves.Import(context.Background(),
		map[uuid.UUID]models.SaveRecord{rec.ID: rec}))

	rr := httptest.NewRecorder()
	srv.LoadSaveHandler(rr, httptest.NewRequest(http.MethodGet, "/saves/load?id="+rec.ID.String()+"&resume=1", nil))
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestClaimThenLogin(t *testing.T) {
	srv := newTestServer(t)

	claim := bytes.NewBufferString(`{"displayName": "Alice", "password": "hunter22"}`)
	rr := httptest.NewRecorder()
	srv.ClaimNameHandler(rr, httptest.NewRequest(http.MethodPost, "/auth/claim", claim))
	require.Equal(t, http.StatusOK, rr.Code)

	// Second claim of the same name conflicts.
	claim = bytes.NewBufferString(`{"displayName": "Alice", "password": "other"}`)
	rr = httptest.NewRecorder()
	srv.ClaimNameHandler(rr, httptest.NewRequest(http.MethodPost, "/auth/claim", claim))
	assert.Equal(t, http.StatusConflict, rr.Code)

	// Wrong password is rejected; the right one mints a session.
	login := bytes.NewBufferString(`{"displayName": "Alice", "password": "wrong"}`)
	rr = httptest.NewRecorder()
	srv.LoginHandler(rr, httptest.NewRequest(http.MethodPost, "/auth/login", login))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	login = bytes.NewBufferString(`{"displayName": "Alice", "password": "hunter22"}`)
	rr = httptest.NewRecorder()
	srv.LoginHandler(rr, httptest.NewRequest(http.MethodPost, "/auth/login", login))
	require.Equal(t, http.StatusOK, rr.Code)

	var ident auth.Identity
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ident))
	assert.Equal(t, "Alice", ident.DisplayName)
	assert.NotEqual(t, uuid.Nil, ident.ID)
}

func TestReapAdminEndpoints(t *testing.T) {
	srv := newTestServer(t)
	l := srv.Lobbies.CreateLobby(uuid.New(), "Alice", models.BattleSettings{})
	l.Mu.Lock()
	l.UpdatedAt = l.UpdatedAt.Add(-time.Hour)
	l.Mu.Unlock()

	rr := httptest.NewRecorder()
	srv.ScanReapHandler(rr, httptest.NewRequest(http.MethodGet, "/admin/reap/scan", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var scanned []reaper.ReapedLobbySummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &scanned))
	require.Len(t, scanned, 1)
	assert.Equal(t, l.ID, scanned[0].ID)

	// Sweep requires POST.
	rr = httptest.NewRecorder()
	srv.SweepReapHandler(rr, httptest.NewRequest(http.MethodGet, "/admin/reap/sweep", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = httptest.NewRecorder()
	srv.SweepReapHandler(rr, httptest.NewRequest(http.MethodPost, "/admin/reap/sweep", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, srv.Lobbies.ListOpen())
}
