// internal/models/action.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// ActionKind is the closed set of action classes the engine validates at the
// boundary. The payload of each action stays opaque to the engine and is
// interpreted only by the combat resolver.
type ActionKind string

const (
	ActionMove     ActionKind = "move"     // regular turn action, resolved externally
	ActionPurchase ActionKind = "purchase" // unit purchase, gated by UnitBuyFrequency
	ActionForfeit  ActionKind = "forfeit"  // concede; terminates the session
	ActionSpectate ActionKind = "spectate" // read-only snapshot request, never mutates
)

// Valid reports whether k is one of the known action kinds.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionMove, ActionPurchase, ActionForfeit, ActionSpectate:
		return true
	}
	return false
}

// BattleAction is a participant's submitted move.
type BattleAction struct {
	Kind    ActionKind             `json:"kind"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// ActionEntry is one applied action in a session's append-only log.
// Late marks actions accepted after the turn cooldown elapsed.
type ActionEntry struct {
	Index     int          `json:"index"`
	ActorID   uuid.UUID    `json:"actorId"`
	Action    BattleAction `json:"action"`
	Late      bool         `json:"late,omitempty"`
	AppliedAt time.Time    `json:"appliedAt"`
}
