// internal/models/battle.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// LobbyStatus is the lobby lifecycle state. Transitions run strictly
// WAITING -> IN_PROGRESS -> COMPLETED, never backward.
type LobbyStatus string

const (
	LobbyWaiting    LobbyStatus = "WAITING"
	LobbyInProgress LobbyStatus = "IN_PROGRESS"
	LobbyCompleted  LobbyStatus = "COMPLETED"
)

// BattleStatus is the session lifecycle state. COMPLETED and ABANDONED are
// terminal; no action is accepted once a session leaves ACTIVE.
type BattleStatus string

const (
	BattleActive    BattleStatus = "ACTIVE"
	BattleCompleted BattleStatus = "COMPLETED"
	BattleAbandoned BattleStatus = "ABANDONED"
)

// BattleSnapshot is a complete, self-contained copy of a session's state at
// a point in time. It is the payload of every battle-updated event, the
// input and output of the combat resolver, and the unit the snapshot store
// persists. It carries no locks and no live references.
type BattleSnapshot struct {
	ID                         uuid.UUID      `json:"id"`
	LobbyID                    uuid.UUID      `json:"lobbyId"`
	Participants               []Participant  `json:"participants"`
	Settings                   BattleSettings `json:"settings"`
	CurrentTurnIndex           int            `json:"currentTurnIndex"`
	TurnStartedAt              time.Time      `json:"turnStartedAt"`
	TurnCooldownSeconds        int            `json:"turnCooldownSeconds"`
	TurnsSinceLastUnitPurchase int            `json:"turnsSinceLastUnitPurchase"`
	UnitBuyFrequency           int            `json:"unitBuyFrequency"`
	Status                     BattleStatus   `json:"status"`
	WinnerParticipantID        uuid.UUID      `json:"winnerParticipantId,omitempty"`
	ActionLog                  []ActionEntry  `json:"actionLog"`
	CreatedAt                  time.Time      `json:"createdAt"`
	UpdatedAt                  time.Time      `json:"updatedAt"`
}

// Clone returns a deep copy so resolver or store mutations can never alias
// the live session's slices.
func (s BattleSnapshot) Clone() BattleSnapshot {
	cp := s
	cp.Participants = append([]Participant(nil), s.Participants...)
	cp.ActionLog = append([]ActionEntry(nil), s.ActionLog...)
	if s.Settings.Custom != nil {
		custom := make(map[string]interface{}, len(s.Settings.Custom))
		for k, v := range s.Settings.Custom {
			custom[k] = v
		}
		cp.Settings.Custom = custom
	}
	return cp
}

// CurrentActor returns the participant holding the turn.
func (s BattleSnapshot) CurrentActor() Participant {
	return s.Participants[s.CurrentTurnIndex]
}
