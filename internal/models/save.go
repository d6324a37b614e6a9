// internal/models/save.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// SaveRecord is an immutable durable capture of a battle session. Loading a
// record whose FormatVersion differs from the running engine's fails closed.
type SaveRecord struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name,omitempty"`
	Session       BattleSnapshot `json:"sessionSnapshot"`
	SavedAt       time.Time      `json:"savedAt"`
	FormatVersion string         `json:"formatVersion"`
}

// SaveSummary is the listing projection of a SaveRecord.
type SaveSummary struct {
	ID        uuid.UUID    `json:"id"`
	Name      string       `json:"name,omitempty"`
	BattleID  uuid.UUID    `json:"battleId"`
	Status    BattleStatus `json:"status"`
	SavedAt   time.Time    `json:"savedAt"`
	TurnCount int          `json:"turnCount"`
}
