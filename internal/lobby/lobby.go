// internal/lobby/lobby.go
package lobby

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/averyhall/warcouncil/internal/models"
)

// Lobby is the pre-game waiting room where participants assemble before a
// battle starts. All reads-then-writes against one lobby go through its
// mutex; the registry only guards its own map, never the entities.
//
// Once Status leaves WAITING the player list and settings are frozen; the
// only later mutation is the BattleID link written during start hand-off.
type Lobby struct {
	ID         uuid.UUID                      `json:"id"`
	HostID     uuid.UUID                      `json:"hostId"`
	Settings   models.BattleSettings          `json:"settings"`
	Status     models.LobbyStatus             `json:"status"`
	BattleID   uuid.UUID                      `json:"battleId,omitempty"`
	Players    []models.Player                `json:"players"`
	Spectators map[uuid.UUID]models.Spectator `json:"-"`
	CreatedAt  time.Time                      `json:"createdAt"`
	UpdatedAt  time.Time                      `json:"updatedAt"`

	// OnEmpty is invoked after the last player leaves, typically wired by
	// the registry to delete the lobby from its map.
	OnEmpty func(lobbyID uuid.UUID) `json:"-"`

	Mu sync.Mutex `json:"-"`
}

// New builds a WAITING lobby with the creator seated as sole host-player.
func New(hostID uuid.UUID, hostName string, settings models.BattleSettings) *Lobby {
	now := time.Now()
	return &Lobby{
		ID:       uuid.New(),
		HostID:   hostID,
		Settings: settings.Normalize(),
		Status:   models.LobbyWaiting,
		Players: []models.Player{
			{ID: hostID, DisplayName: hostName, IsHost: true},
		},
		Spectators: make(map[uuid.UUID]models.Spectator),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// HostDisplayName returns the current host's name. Assumes lock is held.
func (l *Lobby) HostDisplayName() string {
	for _, p := range l.Players {
		if p.IsHost {
			return p.DisplayName
		}
	}
	return ""
}

// Touch bumps UpdatedAt. Every membership or settings change calls it; the
// reaper reads UpdatedAt as the liveness signal. Assumes lock is held.
func (l *Lobby) Touch() {
	l.UpdatedAt = time.Now()
}

// findPlayer returns the index of the player with the given connection id,
// or -1. Assumes lock is held.
func (l *Lobby) findPlayer(id uuid.UUID) int {
	for i, p := range l.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// removePlayer drops the player at idx preserving join order, transferring
// the host role to the next player in join order if the departing player
// held it. Assumes lock is held.
func (l *Lobby) removePlayer(idx int) {
	wasHost := l.Players[idx].IsHost
	l.Players = append(l.Players[:idx], l.Players[idx+1:]...)
	if wasHost && len(l.Players) > 0 {
		l.Players[0].IsHost = true
		l.HostID = l.Players[0].ID
	}
}

// View is the event payload shape for lobby-updated and the per-lobby
// state sync. It is a full snapshot, not a delta.
type View struct {
	ID         uuid.UUID             `json:"id"`
	HostID     uuid.UUID             `json:"hostId"`
	Status     models.LobbyStatus    `json:"status"`
	BattleID   uuid.UUID             `json:"battleId,omitempty"`
	Settings   models.BattleSettings `json:"settings"`
	Players    []models.Player       `json:"players"`
	Spectators []models.Spectator    `json:"spectators"`
	UpdatedAt  time.Time             `json:"updatedAt"`
}

// view builds a copy-safe snapshot of the lobby. Assumes lock is held.
func (l *Lobby) view() View {
	players := append([]models.Player(nil), l.Players...)
	spectators := make([]models.Spectator, 0, len(l.Spectators))
	for _, s := range l.Spectators {
		spectators = append(spectators, s)
	}
	return View{
		ID:         l.ID,
		HostID:     l.HostID,
		Status:     l.Status,
		BattleID:   l.BattleID,
		Settings:   l.Settings,
		Players:    players,
		Spectators: spectators,
		UpdatedAt:  l.UpdatedAt,
	}
}

// ViewUnsafe returns the snapshot without locking. Assumes lock is held.
func (l *Lobby) ViewUnsafe() View {
	return l.view()
}

// View locks the lobby and returns its snapshot.
func (l *Lobby) View() View {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	return l.view()
}

// Summary is the discovery projection for lobby browsing. No raw
// connection ids leave this surface.
type Summary struct {
	ID              uuid.UUID `json:"id"`
	HostDisplayName string    `json:"hostDisplayName"`
	PlayerCount     int       `json:"playerCount"`
	MaxPlayers      int       `json:"maxPlayers"`
	SpectatorCount  int       `json:"spectatorCount"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// summary builds the discovery projection. Assumes lock is held.
func (l *Lobby) summary() Summary {
	return Summary{
		ID:              l.ID,
		HostDisplayName: l.HostDisplayName(),
		PlayerCount:     len(l.Players),
		MaxPlayers:      l.Settings.MaxPlayers,
		SpectatorCount:  len(l.Spectators),
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}
