// internal/battle/resolver.go
package battle

import (
	"github.com/google/uuid"

	"github.com/averyhall/warcouncil/internal/models"
)

// Outcome describes how the combat resolver judged an applied action.
type Outcome string

const (
	OutcomeContinue Outcome = "CONTINUE"
	OutcomeWin      Outcome = "WIN"
	OutcomeDraw     Outcome = "DRAW"
)

// Result is the resolver's verdict: the mutated snapshot plus an outcome
// descriptor. WinnerID is read only when Outcome is OutcomeWin.
type Result struct {
	Snapshot models.BattleSnapshot
	Outcome  Outcome
	WinnerID uuid.UUID
}

// Resolver is the external combat-resolution boundary. The engine hands it
// a detached snapshot and the submitted action and trusts it for everything
// under Settings.Custom; turn ordering, status, and the action log remain
// engine-owned and are re-asserted after Apply returns.
//
// Implementations must be deterministic for identical inputs so a session
// can be replayed from its action log.
type Resolver interface {
	Apply(snapshot models.BattleSnapshot, actorID uuid.UUID, action models.BattleAction) (Result, error)
}

// PassResolver accepts every action without touching the snapshot. It is
// the default wiring when combat arithmetic runs in a separate service and
// the engine only arbitrates turns and fanout.
type PassResolver struct{}

func (PassResolver) Apply(snapshot models.BattleSnapshot, _ uuid.UUID, _ models.BattleAction) (Result, error) {
	return Result{Snapshot: snapshot, Outcome: OutcomeContinue}, nil
}
