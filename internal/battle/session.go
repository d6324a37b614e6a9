// internal/battle/session.go
package battle

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/averyhall/warcouncil/internal/lobby"
	"github.com/averyhall/warcouncil/internal/models"
)

// Session holds the authoritative state of one running battle. Every
// read-then-write goes through Mu; the single-current-turn invariant plus
// this lock is what serializes all mutation, so no two actions are ever
// applied concurrently to the same session.
type Session struct {
	Mu    sync.Mutex
	State models.BattleSnapshot
}

// newSessionFromLobby materializes a session from a started lobby. Assumes
// the lobby lock is held by the caller (the start hand-off). Participants
// keep join order, host first; settings are copied and frozen.
func newSessionFromLobby(l *lobby.Lobby) *Session {
	now := time.Now()
	participants := make([]models.Participant, 0, len(l.Players))
	for _, p := range l.Players {
		participants = append(participants, models.Participant{ID: p.ID, DisplayName: p.DisplayName})
	}

	settings := l.Settings
	if settings.Custom != nil {
		custom := make(map[string]interface{}, len(settings.Custom))
		for k, v := range settings.Custom {
			custom[k] = v
		}
		settings.Custom = custom
	}

	return &Session{
		State: models.BattleSnapshot{
			ID:                  uuid.New(),
			LobbyID:             l.ID,
			Participants:        participants,
			Settings:            settings,
			CurrentTurnIndex:    0,
			TurnStartedAt:       now,
			TurnCooldownSeconds: settings.TurnCooldownSec,
			UnitBuyFrequency:    settings.UnitBuyFrequency,
			Status:              models.BattleActive,
			ActionLog:           []models.ActionEntry{},
			CreatedAt:           now,
			UpdatedAt:           now,
		},
	}
}

// Snapshot returns a detached deep copy of the session state.
func (s *Session) Snapshot() models.BattleSnapshot {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.State.Clone()
}
