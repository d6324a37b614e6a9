// internal/models/settings.go
package models

// BattleSettings captures the game-time configuration negotiated in the
// lobby. The engine reads the turn pacing fields; everything under Custom
// belongs to the combat resolver and is passed through untouched.
type BattleSettings struct {
	// MaxPlayers bounds the lobby's player seats (spectators are unbounded).
	MaxPlayers int `json:"maxPlayers"`

	// TurnCooldownSec is how many seconds a turn may run before actions
	// submitted on it are flagged late (0 => no limit).
	TurnCooldownSec int `json:"turnCooldownSec"`

	// UnitBuyFrequency is how many turns must pass between unit purchases.
	UnitBuyFrequency int `json:"unitBuyFrequency"`

	// Custom is an opaque blob owned by the combat resolver and the UI.
	Custom map[string]interface{} `json:"custom,omitempty"`
}

// DefaultBattleSettings returns the settings applied when the host sends none.
func DefaultBattleSettings() BattleSettings {
	return BattleSettings{
		MaxPlayers:       2,
		TurnCooldownSec:  60,
		UnitBuyFrequency: 3,
	}
}

// Normalize fills zero-valued pacing fields from the defaults so a partial
// settings payload from a client never produces a lobby nobody can join.
func (s BattleSettings) Normalize() BattleSettings {
	def := DefaultBattleSettings()
	if s.MaxPlayers <= 0 {
		s.MaxPlayers = def.MaxPlayers
	}
	if s.TurnCooldownSec < 0 {
		s.TurnCooldownSec = def.TurnCooldownSec
	}
	if s.UnitBuyFrequency <= 0 {
		s.UnitBuyFrequency = def.UnitBuyFrequency
	}
	return s
}
