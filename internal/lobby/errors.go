// internal/lobby/errors.go
package lobby

import "errors"

// Failure kinds surfaced to callers. All are recoverable: the caller can
// retry with corrected input, and the lobby state is left untouched.
var (
	ErrNotFound            = errors.New("lobby not found")
	ErrNotAuthorized       = errors.New("requester is not the lobby host")
	ErrInsufficientPlayers = errors.New("not enough players to start")
	ErrBattleInProgress    = errors.New("battle already in progress")
	ErrCapacityExceeded    = errors.New("lobby player slots are full")
)
