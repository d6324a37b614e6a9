// internal/battle/store.go
package battle

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/averyhall/warcouncil/internal/events"
	"github.com/averyhall/warcouncil/internal/lobby"
	"github.com/averyhall/warcouncil/internal/models"
)

// Store owns all live battle sessions and the action-validation pipeline.
// The store mutex guards only the session map; each session serializes its
// own mutation through its entity lock. Publishes and the OnAction hook run
// after the entity lock is released.
type Store struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	bus      *events.Bus
	resolver Resolver
	logger   *logrus.Logger

	// OnAction, when set, observes every accepted action. The server wires
	// it to the redis action journal; failures there never roll back state.
	OnAction func(battleID uuid.UUID, entry models.ActionEntry)

	// OnTerminal, when set, fires once a session leaves ACTIVE. The server
	// wires it to the lobby registry so the source lobby moves to COMPLETED.
	OnTerminal func(lobbyID uuid.UUID)
}

// NewStore returns an empty session store applying actions through resolver.
func NewStore(bus *events.Bus, resolver Resolver, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if resolver == nil {
		resolver = PassResolver{}
	}
	return &Store{
		sessions: make(map[uuid.UUID]*Session),
		bus:      bus,
		resolver: resolver,
		logger:   logger,
	}
}

// StartFromLobby is the single cross-entity hand-off: it flips a WAITING
// lobby to IN_PROGRESS, materializes its session, and registers it, all
// under the lobby lock, so a concurrent Get sees either nothing started or
// a lobby that is IN_PROGRESS with a valid battle id and a live session.
//
// Fails with lobby.ErrNotAuthorized unless the requester is the current
// host and lobby.ErrInsufficientPlayers below two seated players.
func (st *Store) StartFromLobby(l *lobby.Lobby, requesterID uuid.UUID) (models.BattleSnapshot, error) {
	l.Mu.Lock()
	if l.HostID != requesterID {
		l.Mu.Unlock()
		return models.BattleSnapshot{}, lobby.ErrNotAuthorized
	}
	if l.Status != models.LobbyWaiting {
		l.Mu.Unlock()
		return models.BattleSnapshot{}, lobby.ErrBattleInProgress
	}
	if len(l.Players) < 2 {
		l.Mu.Unlock()
		return models.BattleSnapshot{}, lobby.ErrInsufficientPlayers
	}

	sess := newSessionFromLobby(l)
	st.mu.Lock()
	st.sessions[sess.State.ID] = sess
	st.mu.Unlock()

	l.Status = models.LobbyInProgress
	l.BattleID = sess.State.ID
	l.Touch()
	v := l.ViewUnsafe()
	l.Mu.Unlock()

	snap := sess.Snapshot()
	st.logger.WithFields(logrus.Fields{"battle": snap.ID, "lobby": snap.LobbyID}).Info("battle started")
	st.bus.Publish(events.LobbyChannel(snap.LobbyID), events.BattleStarted, snap)
	st.bus.Publish(events.BattleChannel(snap.ID), events.BattleStarted, snap)
	st.bus.Publish(events.Global, events.BattleCreated, v)
	return snap, nil
}

// Get returns a detached snapshot of the session, terminal or not.
func (st *Store) Get(id uuid.UUID) (models.BattleSnapshot, error) {
	st.mu.Lock()
	sess, ok := st.sessions[id]
	st.mu.Unlock()
	if !ok {
		return models.BattleSnapshot{}, ErrNotFound
	}
	return sess.Snapshot(), nil
}

// ExecuteAction is the central contract: validate the actor against the
// turn state, delegate mutation to the combat resolver, append to the
// action log, advance or terminate, then broadcast the new snapshot.
// A rejected action leaves the session byte-for-byte unchanged.
func (st *Store) ExecuteAction(sessionID, actorID uuid.UUID, action models.BattleAction) (models.BattleSnapshot, error) {
	st.mu.Lock()
	sess, ok := st.sessions[sessionID]
	st.mu.Unlock()
	if !ok {
		return models.BattleSnapshot{}, ErrNotFound
	}
	if !action.Kind.Valid() {
		return models.BattleSnapshot{}, ErrUnknownAction
	}

	sess.Mu.Lock()
	state := &sess.State
	if state.Status != models.BattleActive {
		sess.Mu.Unlock()
		return models.BattleSnapshot{}, ErrNotFound
	}

	// Spectate is the one read-only action class: anyone may issue it and
	// it never mutates state or touches the log.
	if action.Kind == models.ActionSpectate {
		snap := state.Clone()
		sess.Mu.Unlock()
		return snap, nil
	}

	if state.Participants[state.CurrentTurnIndex].ID != actorID {
		sess.Mu.Unlock()
		return models.BattleSnapshot{}, ErrNotYourTurn
	}
	if action.Kind == models.ActionPurchase && state.TurnsSinceLastUnitPurchase < state.UnitBuyFrequency {
		sess.Mu.Unlock()
		return models.BattleSnapshot{}, ErrPurchaseNotAllowedYet
	}

	now := time.Now()
	late := state.TurnCooldownSeconds > 0 &&
		now.Sub(state.TurnStartedAt) > time.Duration(state.TurnCooldownSeconds)*time.Second

	var outcome Outcome
	var winnerID uuid.UUID
	switch action.Kind {
	case models.ActionForfeit:
		// Forfeit terminates in-engine without consulting the resolver.
		// Head-to-head the remaining participant wins; with more seats
		// there is no decisive winner and the session completes drawn.
		if len(state.Participants) == 2 {
			outcome = OutcomeWin
			winnerID = state.Participants[(state.CurrentTurnIndex+1)%2].ID
		} else {
			outcome = OutcomeDraw
		}
	default:
		result, err := st.resolver.Apply(state.Clone(), actorID, action)
		if err != nil {
			sess.Mu.Unlock()
			return models.BattleSnapshot{}, fmt.Errorf("combat resolver rejected action: %w", err)
		}
		// Adopt the resolver's snapshot but re-assert every engine-owned
		// field so a misbehaving resolver cannot break turn invariants.
		resolved := result.Snapshot
		resolved.ID = state.ID
		resolved.LobbyID = state.LobbyID
		resolved.Participants = state.Participants
		resolved.CurrentTurnIndex = state.CurrentTurnIndex
		resolved.TurnStartedAt = state.TurnStartedAt
		resolved.TurnCooldownSeconds = state.TurnCooldownSeconds
		resolved.TurnsSinceLastUnitPurchase = state.TurnsSinceLastUnitPurchase
		resolved.UnitBuyFrequency = state.UnitBuyFrequency
		resolved.Status = state.Status
		resolved.WinnerParticipantID = state.WinnerParticipantID
		resolved.ActionLog = state.ActionLog
		resolved.CreatedAt = state.CreatedAt
		*state = resolved
		outcome = result.Outcome
		winnerID = result.WinnerID
	}

	entry := models.ActionEntry{
		Index:     len(state.ActionLog),
		ActorID:   actorID,
		Action:    action,
		Late:      late,
		AppliedAt: now,
	}
	state.ActionLog = append(state.ActionLog, entry)
	state.UpdatedAt = now

	switch outcome {
	case OutcomeWin:
		state.Status = models.BattleCompleted
		state.WinnerParticipantID = winnerID
	case OutcomeDraw:
		state.Status = models.BattleCompleted
	default:
		state.CurrentTurnIndex = (state.CurrentTurnIndex + 1) % len(state.Participants)
		state.TurnStartedAt = now
		if action.Kind == models.ActionPurchase {
			state.TurnsSinceLastUnitPurchase = 0
		} else {
			state.TurnsSinceLastUnitPurchase++
		}
	}
	snap := state.Clone()
	sess.Mu.Unlock()

	if st.OnAction != nil {
		st.OnAction(snap.ID, entry)
	}
	if snap.Status != models.BattleActive && st.OnTerminal != nil {
		st.OnTerminal(snap.LobbyID)
	}
	st.bus.Publish(events.BattleChannel(snap.ID), events.BattleUpdated, snap)
	return snap, nil
}

// Restore registers a session rebuilt from a loaded snapshot. Loading for
// inspection and loading for resumption are distinct steps; only this one
// makes the session addressable by ExecuteAction again.
//
// Snapshots arrive from the save store, which accepts imports from outside
// the process, so the turn invariants are re-validated here before the
// action pipeline is allowed to index into them.
func (st *Store) Restore(snap models.BattleSnapshot) (*Session, error) {
	if len(snap.Participants) == 0 {
		return nil, fmt.Errorf("%w: no participants", ErrCorruptSnapshot)
	}
	if snap.CurrentTurnIndex < 0 || snap.CurrentTurnIndex >= len(snap.Participants) {
		return nil, fmt.Errorf("%w: turn index %d outside %d participants",
			ErrCorruptSnapshot, snap.CurrentTurnIndex, len(snap.Participants))
	}
	switch snap.Status {
	case models.BattleActive, models.BattleCompleted, models.BattleAbandoned:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrCorruptSnapshot, snap.Status)
	}

	sess := &Session{State: snap.Clone()}
	st.mu.Lock()
	st.sessions[snap.ID] = sess
	st.mu.Unlock()
	st.logger.WithField("battle", snap.ID).Info("battle session restored")
	return sess, nil
}

// AbandonStale marks ACTIVE sessions with no accepted action inside the
// threshold as ABANDONED. This is deliberately separate from the lobby
// reaper: "nobody ever joined" and "someone is mid-battle but silent" are
// different staleness signals.
func (st *Store) AbandonStale(threshold time.Duration, now time.Time) []uuid.UUID {
	st.mu.Lock()
	all := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		all = append(all, s)
	}
	st.mu.Unlock()

	cutoff := now.Add(-threshold)
	var abandoned []uuid.UUID
	for _, sess := range all {
		sess.Mu.Lock()
		if sess.State.Status == models.BattleActive && sess.State.UpdatedAt.Before(cutoff) {
			sess.State.Status = models.BattleAbandoned
			sess.State.UpdatedAt = now
			snap := sess.State.Clone()
			sess.Mu.Unlock()
			abandoned = append(abandoned, snap.ID)
			st.logger.WithField("battle", snap.ID).Warn("battle abandoned after inactivity")
			if st.OnTerminal != nil {
				st.OnTerminal(snap.LobbyID)
			}
			st.bus.Publish(events.BattleChannel(snap.ID), events.BattleUpdated, snap)
			continue
		}
		sess.Mu.Unlock()
	}
	return abandoned
}
