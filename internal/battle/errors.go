// internal/battle/errors.go
package battle

import "errors"

var (
	ErrNotFound              = errors.New("battle session not found or not active")
	ErrNotYourTurn           = errors.New("actor does not hold the current turn")
	ErrPurchaseNotAllowedYet = errors.New("unit purchase not allowed yet")
	ErrUnknownAction         = errors.New("unknown action kind")
	ErrCorruptSnapshot       = errors.New("corrupt battle snapshot")
)
