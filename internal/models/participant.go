// internal/models/participant.go
package models

import "github.com/google/uuid"

// Player is a seated lobby member with a place in the eventual turn order.
// The ID is a connection identifier, unique per transport session, not per
// person; a reconnecting user shows up as a brand new Player.
type Player struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"displayName"`
	IsHost      bool      `json:"isHost"`
}

// Spectator watches a lobby or battle without holding a seat.
type Spectator struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"displayName"`
}

// Participant is a player's seat in a running battle. Index 0 acts first.
type Participant struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"displayName"`
}
