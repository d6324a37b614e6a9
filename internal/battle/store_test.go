// internal/battle/store_test.go
package battle

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averyhall/warcouncil/internal/events"
	"github.com/averyhall/warcouncil/internal/lobby"
	"github.com/averyhall/warcouncil/internal/models"
)

// scriptedResolver returns a queued outcome per call, defaulting to
// CONTINUE, so tests can drive decisive endings deterministically.
type scriptedResolver struct {
	mu    sync.Mutex
	queue []Result
	err   error
}

func (r *scriptedResolver) Apply(snap models.BattleSnapshot, _ uuid.UUID, _ models.BattleAction) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return Result{}, r.err
	}
	if len(r.queue) > 0 {
		res := r.queue[0]
		r.queue = r.queue[1:]
		res.Snapshot = snap
		return res, nil
	}
	return Result{Snapshot: snap, Outcome: OutcomeContinue}, nil
}

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (e *eventLog) handler(ev events.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *eventLog) byName(name string) []events.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []events.Event
	for _, ev := range e.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	bus      *events.Bus
	registry *lobby.Registry
	store    *Store
	resolver *scriptedResolver
	lob      *lobby.Lobby
	alice    uuid.UUID
	bob      uuid.UUID
}

// setupBattle builds a started two-player session hosted by Alice.
func setupBattle(t *testing.T) (*fixture, models.BattleSnapshot) {
	t.Helper()
	f := &fixture{
		bus:      events.NewBus(nil),
		resolver: &scriptedResolver{},
		alice:    uuid.New(),
		bob:      uuid.New(),
	}
	f.registry = lobby.NewRegistry(f.bus, nil)
	f.store = NewStore(f.bus, f.resolver, nil)
	f.store.OnTerminal = f.registry.MarkCompleted

	f.lob = f.registry.CreateLobby(f.alice, "Alice", models.BattleSettings{
		MaxPlayers:       2,
		TurnCooldownSec:  60,
		UnitBuyFrequency: 2,
	})
	_, err := f.registry.JoinLobby(f.lob.ID, f.bob, "Bob", false)
	require.NoError(t, err)

	snap, err := f.store.StartFromLobby(f.lob, f.alice)
	require.NoError(t, err)
	return f, snap
}

func move() models.BattleAction {
	return models.BattleAction{Kind: models.ActionMove, Payload: map[string]interface{}{"target": "sector-7"}}
}

func TestStartFromLobbyHandOff(t *testing.T) {
	f, snap := setupBattle(t)

	require.Len(t, snap.Participants, 2)
	assert.Equal(t, f.alice, snap.Participants[0].ID, "host acts first")
	assert.Equal(t, f.bob, snap.Participants[1].ID)
	assert.Equal(t, 0, snap.CurrentTurnIndex)
	assert.Equal(t, models.BattleActive, snap.Status)

	// The hand-off is atomic from the outside: the lobby is IN_PROGRESS
	// with a valid battle link and the session is addressable.
	v := f.lob.View()
	assert.Equal(t, models.LobbyInProgress, v.Status)
	assert.Equal(t, snap.ID, v.BattleID)
	_, err := f.store.Get(snap.ID)
	assert.NoError(t, err)
}

func TestStartFromLobbyAuthorization(t *testing.T) {
	bus := events.NewBus(nil)
	registry := lobby.NewRegistry(bus, nil)
	store := NewStore(bus, nil, nil)

	alice := uuid.New()
	lob := registry.CreateLobby(alice, "Alice", models.BattleSettings{})

	// Below two players.
	_, err := store.StartFromLobby(lob, alice)
	assert.ErrorIs(t, err, lobby.ErrInsufficientPlayers)

	bob := uuid.New()
	_, err = registry.JoinLobby(lob.ID, bob, "Bob", false)
	require.NoError(t, err)

	// Non-host cannot start.
	_, err = store.StartFromLobby(lob, bob)
	assert.ErrorIs(t, err, lobby.ErrNotAuthorized)

	// Double start fails.
	_, err = store.StartFromLobby(lob, alice)
	require.NoError(t, err)
	_, err = store.StartFromLobby(lob, alice)
	assert.ErrorIs(t, err, lobby.ErrBattleInProgress)
}

func TestExecuteActionRoundRobin(t *testing.T) {
	f, snap := setupBattle(t)

	after, err := f.store.ExecuteAction(snap.ID, f.alice, move())
	require.NoError(t, err)
	assert.Equal(t, 1, after.CurrentTurnIndex)
	assert.Len(t, after.ActionLog, 1)

	// Alice again out of turn.
	_, err = f.store.ExecuteAction(snap.ID, f.alice, move())
	assert.ErrorIs(t, err, ErrNotYourTurn)

	// Rejections leave the log untouched.
	cur, err := f.store.Get(snap.ID)
	require.NoError(t, err)
	assert.Len(t, cur.ActionLog, 1)

	after, err = f.store.ExecuteAction(snap.ID, f.bob, move())
	require.NoError(t, err)
	assert.Equal(t, 0, after.CurrentTurnIndex, "turn cycles round-robin")
	assert.Len(t, after.ActionLog, 2)
}

func TestExecuteActionUnknownSession(t *testing.T) {
	f, _ := setupBattle(t)
	_, err := f.store.ExecuteAction(uuid.New(), f.alice, move())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSpectateIsReadOnly(t *testing.T) {
	f, snap := setupBattle(t)
	watcher := uuid.New()

	got, err := f.store.ExecuteAction(snap.ID, watcher, models.BattleAction{Kind: models.ActionSpectate})
	require.NoError(t, err, "spectate is permitted for anyone")
	assert.Empty(t, got.ActionLog)

	// Anything else from a non-participant is rejected.
	_, err = f.store.ExecuteAction(snap.ID, watcher, move())
	assert.ErrorIs(t, err, ErrNotYourTurn)
}

func TestPurchaseGating(t *testing.T) {
	f, snap := setupBattle(t)
	purchase := models.BattleAction{Kind: models.ActionPurchase}

	_, err := f.store.ExecuteAction(snap.ID, f.alice, purchase)
	assert.ErrorIs(t, err, ErrPurchaseNotAllowedYet)

	// Two full turns make a purchase legal again.
	_, err = f.store.ExecuteAction(snap.ID, f.alice, move())
	require.NoError(t, err)
	after, err := f.store.ExecuteAction(snap.ID, f.bob, move())
	require.NoError(t, err)
	require.Equal(t, 2, after.TurnsSinceLastUnitPurchase)

	after, err = f.store.ExecuteAction(snap.ID, f.alice, purchase)
	require.NoError(t, err)
	assert.Equal(t, 0, after.TurnsSinceLastUnitPurchase, "purchase resets the counter")
	assert.Equal(t, 1, after.CurrentTurnIndex)
}

func TestDecisiveOutcomeCompletesSession(t *testing.T) {
	f, snap := setupBattle(t)
	f.resolver.queue = []Result{{Outcome: OutcomeWin, WinnerID: f.alice}}

	after, err := f.store.ExecuteAction(snap.ID, f.alice, move())
	require.NoError(t, err)
	assert.Equal(t, models.BattleCompleted, after.Status)
	assert.Equal(t, f.alice, after.WinnerParticipantID)
	assert.Equal(t, 0, after.CurrentTurnIndex, "no advancement on a decisive action")
	assert.Equal(t, models.LobbyCompleted, f.lob.View().Status, "lobby follows its battle into COMPLETED")

	// Terminal sessions accept nothing further.
	_, err = f.store.ExecuteAction(snap.ID, f.bob, move())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestForfeitAwardsOpponent(t *testing.T) {
	f, snap := setupBattle(t)

	after, err := f.store.ExecuteAction(snap.ID, f.alice, models.BattleAction{Kind: models.ActionForfeit})
	require.NoError(t, err)
	assert.Equal(t, models.BattleCompleted, after.Status)
	assert.Equal(t, f.bob, after.WinnerParticipantID)
	assert.Equal(t, models.LobbyCompleted, f.lob.View().Status)
}

func TestLateActionFlaggedNotRejected(t *testing.T) {
	f, snap := setupBattle(t)

	// Age the running turn past its cooldown.
	f.store.mu.Lock()
	sess := f.store.sessions[snap.ID]
	f.store.mu.Unlock()
	sess.Mu.Lock()
	sess.State.TurnStartedAt = time.Now().Add(-2 * time.Minute)
	sess.Mu.Unlock()

	after, err := f.store.ExecuteAction(snap.ID, f.alice, move())
	require.NoError(t, err, "expired turns accept actions; they are only flagged")
	require.Len(t, after.ActionLog, 1)
	assert.True(t, after.ActionLog[0].Late)
	assert.Equal(t, 1, after.CurrentTurnIndex)
}

func TestResolverErrorLeavesStateUnchanged(t *testing.T) {
	f, snap := setupBattle(t)
	f.resolver.err = errors.New("illegal move")

	_, err := f.store.ExecuteAction(snap.ID, f.alice, move())
	require.Error(t, err)

	cur, err := f.store.Get(snap.ID)
	require.NoError(t, err)
	assert.Empty(t, cur.ActionLog)
	assert.Equal(t, 0, cur.CurrentTurnIndex)
}

func TestBattleUpdatedCarriesFullSnapshot(t *testing.T) {
	f, snap := setupBattle(t)
	log := &eventLog{}
	f.bus.Subscribe(events.BattleChannel(snap.ID), events.AnyEvent, log.handler)

	_, err := f.store.ExecuteAction(snap.ID, f.alice, move())
	require.NoError(t, err)
	_, err = f.store.ExecuteAction(snap.ID, f.bob, move())
	require.NoError(t, err)

	updates := log.byName(events.BattleUpdated)
	require.Len(t, updates, 2)
	payload, ok := updates[1].Payload.(models.BattleSnapshot)
	require.True(t, ok)
	assert.Len(t, payload.ActionLog, 2, "payload is the whole snapshot, not a delta")
}

func TestOnActionHookObservesAcceptedActions(t *testing.T) {
	f, snap := setupBattle(t)
	var mu sync.Mutex
	var seen []models.ActionEntry
	f.store.OnAction = func(id uuid.UUID, entry models.ActionEntry) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, snap.ID, id)
		seen = append(seen, entry)
	}

	_, err := f.store.ExecuteAction(snap.ID, f.alice, move())
	require.NoError(t, err)
	_, err = f.store.ExecuteAction(snap.ID, f.alice, move())
	assert.ErrorIs(t, err, ErrNotYourTurn)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1, "rejected actions are never journaled")
	assert.Equal(t, 0, seen[0].Index)
}

func TestRestoreMakesSessionAddressable(t *testing.T) {
	f, snap := setupBattle(t)
	_, err := f.store.ExecuteAction(snap.ID, f.alice, move())
	require.NoError(t, err)

	saved, err := f.store.Get(snap.ID)
	require.NoError(t, err)

	fresh := NewStore(events.NewBus(nil), &scriptedResolver{}, nil)
	_, err = fresh.Get(snap.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = fresh.Restore(saved)
	require.NoError(t, err)
	cur, err := fresh.Get(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ActionLog, cur.ActionLog)

	// Resumed sessions accept actions again, picking up the turn order.
	_, err = fresh.ExecuteAction(snap.ID, f.bob, move())
	assert.NoError(t, err)
}

// Imported save records come from outside the process, so a restore must
// reject anything the action pipeline cannot safely index into.
func TestRestoreRejectsCorruptSnapshot(t *testing.T) {
	f, snap := setupBattle(t)
	saved, err := f.store.Get(snap.ID)
	require.NoError(t, err)

	fresh := NewStore(events.NewBus(nil), &scriptedResolver{}, nil)

	badTurn := saved.Clone()
	badTurn.CurrentTurnIndex = 5
	_, err = fresh.Restore(badTurn)
	require.ErrorIs(t, err, ErrCorruptSnapshot)

	noSeats := saved.Clone()
	noSeats.Participants = nil
	_, err = fresh.Restore(noSeats)
	require.ErrorIs(t, err, ErrCorruptSnapshot)

	badStatus := saved.Clone()
	badStatus.Status = "EXPLODED"
	_, err = fresh.Restore(badStatus)
	require.ErrorIs(t, err, ErrCorruptSnapshot)

	// Nothing was registered; actions against the id fail cleanly.
	assert.NotPanics(t, func() {
		_, err = fresh.ExecuteAction(snap.ID, f.alice, move())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestAbandonStaleSessions(t *testing.T) {
	f, snap := setupBattle(t)

	f.store.mu.Lock()
	sess := f.store.sessions[snap.ID]
	f.store.mu.Unlock()
	sess.Mu.Lock()
	sess.State.UpdatedAt = time.Now().Add(-30 * time.Minute)
	sess.Mu.Unlock()

	abandoned := f.store.AbandonStale(15*time.Minute, time.Now())
	require.Equal(t, []uuid.UUID{snap.ID}, abandoned)

	cur, err := f.store.Get(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BattleAbandoned, cur.Status)
	assert.Equal(t, models.LobbyCompleted, f.lob.View().Status)

	// Terminal already; a second sweep finds nothing.
	assert.Empty(t, f.store.AbandonStale(15*time.Minute, time.Now()))
}
