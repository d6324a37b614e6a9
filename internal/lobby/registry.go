// internal/lobby/registry.go
package lobby

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/averyhall/warcouncil/internal/events"
	"github.com/averyhall/warcouncil/internal/models"
)

// Registry owns the in-memory map of live lobbies and the lobby lifecycle
// operations. The registry mutex guards only the map; each lobby carries
// its own mutex, so work on one lobby never blocks work on another.
//
// Every publish happens after the entity lock is released.
type Registry struct {
	mu      sync.Mutex
	lobbies map[uuid.UUID]*Lobby
	bus     *events.Bus
	logger  *logrus.Logger
}

// NewRegistry returns an empty registry publishing on bus.
func NewRegistry(bus *events.Bus, logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Registry{
		lobbies: make(map[uuid.UUID]*Lobby),
		bus:     bus,
		logger:  logger,
	}
}

// CreateLobby seats the creator as sole host-player of a fresh WAITING
// lobby and announces it on the global channel. Never fails on normal
// input; settings constraints belong to the combat resolver.
func (r *Registry) CreateLobby(hostID uuid.UUID, hostName string, settings models.BattleSettings) *Lobby {
	l := New(hostID, hostName, settings)
	l.OnEmpty = func(id uuid.UUID) { r.Delete(id) }

	r.mu.Lock()
	r.lobbies[l.ID] = l
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{"lobby": l.ID, "host": hostName}).Info("lobby created")
	r.bus.Publish(events.Global, events.LobbyCreated, l.View())
	return l
}

// Get returns the lobby or ErrNotFound.
func (r *Registry) Get(id uuid.UUID) (*Lobby, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lobbies[id]
	if !ok {
		return nil, ErrNotFound
	}
	return l, nil
}

// Delete removes a lobby from the registry map. Callers announce closure
// themselves when it matters (Leave and the reaper do).
func (r *Registry) Delete(id uuid.UUID) {
	r.mu.Lock()
	_, ok := r.lobbies[id]
	delete(r.lobbies, id)
	r.mu.Unlock()
	if ok {
		r.logger.WithField("lobby", id).Info("lobby deleted")
	}
}

// JoinLobby seats a caller in the lobby. Spectator joins are unbounded and
// allowed while a battle is running; player joins require a WAITING lobby
// with a free seat, failing with ErrBattleInProgress or ErrCapacityExceeded
// otherwise. On success the update is published on the global and
// lobby-scoped channels.
func (r *Registry) JoinLobby(id, connID uuid.UUID, displayName string, asSpectator bool) (View, error) {
	l, err := r.Get(id)
	if err != nil {
		return View{}, err
	}

	l.Mu.Lock()
	if l.Status == models.LobbyCompleted {
		l.Mu.Unlock()
		return View{}, ErrBattleInProgress
	}
	if !asSpectator {
		if l.Status != models.LobbyWaiting {
			l.Mu.Unlock()
			return View{}, ErrBattleInProgress
		}
		// A repeat join from an already seated connection is a no-op, not
		// a second seat.
		if l.findPlayer(connID) >= 0 {
			v := l.view()
			l.Mu.Unlock()
			return v, nil
		}
		if len(l.Players) >= l.Settings.MaxPlayers {
			l.Mu.Unlock()
			return View{}, ErrCapacityExceeded
		}
		l.Players = append(l.Players, models.Player{ID: connID, DisplayName: displayName})
	} else {
		l.Spectators[connID] = models.Spectator{ID: connID, DisplayName: displayName}
	}
	l.Touch()
	v := l.view()
	l.Mu.Unlock()

	r.logger.WithFields(logrus.Fields{
		"lobby":     id,
		"user":      connID,
		"spectator": asSpectator,
	}).Info("user joined lobby")
	r.bus.Publish(events.Global, events.LobbyUpdated, v)
	r.bus.Publish(events.LobbyChannel(id), events.LobbyUpdated, v)
	return v, nil
}

// UpdateSettings replaces the settings of a WAITING lobby. Host only.
func (r *Registry) UpdateSettings(id, requesterID uuid.UUID, settings models.BattleSettings) (View, error) {
	l, err := r.Get(id)
	if err != nil {
		return View{}, err
	}

	l.Mu.Lock()
	if l.HostID != requesterID {
		l.Mu.Unlock()
		return View{}, ErrNotAuthorized
	}
	if l.Status != models.LobbyWaiting {
		l.Mu.Unlock()
		return View{}, ErrBattleInProgress
	}
	l.Settings = settings.Normalize()
	l.Touch()
	v := l.view()
	l.Mu.Unlock()

	r.bus.Publish(events.Global, events.LobbyUpdated, v)
	r.bus.Publish(events.LobbyChannel(id), events.LobbyUpdated, v)
	return v, nil
}

// Leave removes a connection from the lobby's players or spectators. When
// the departing player held the host role and players remain, the role
// transfers to the next player in join order. The lobby is deleted, not
// merely marked, once no players remain.
func (r *Registry) Leave(id, connID uuid.UUID) error {
	l, err := r.Get(id)
	if err != nil {
		return err
	}

	l.Mu.Lock()
	if idx := l.findPlayer(connID); idx >= 0 {
		l.removePlayer(idx)
	} else if _, ok := l.Spectators[connID]; ok {
		delete(l.Spectators, connID)
	} else {
		l.Mu.Unlock()
		return ErrNotFound
	}
	l.Touch()
	empty := len(l.Players) == 0
	onEmpty := l.OnEmpty
	v := l.view()
	l.Mu.Unlock()

	if empty {
		if onEmpty != nil {
			onEmpty(id)
		}
		r.bus.Publish(events.Global, events.LobbyClosed, v)
		r.bus.Publish(events.LobbyChannel(id), events.LobbyClosed, v)
		return nil
	}
	r.bus.Publish(events.Global, events.LobbyUpdated, v)
	r.bus.Publish(events.LobbyChannel(id), events.LobbyUpdated, v)
	return nil
}

// ListOpen returns a point-in-time snapshot of WAITING lobbies for
// discovery, newest first. It is not a live subscription.
func (r *Registry) ListOpen() []Summary {
	r.mu.Lock()
	all := make([]*Lobby, 0, len(r.lobbies))
	for _, l := range r.lobbies {
		all = append(all, l)
	}
	r.mu.Unlock()

	out := make([]Summary, 0, len(all))
	for _, l := range all {
		l.Mu.Lock()
		if l.Status == models.LobbyWaiting {
			out = append(out, l.summary())
		}
		l.Mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// MarkCompleted flips an IN_PROGRESS lobby to COMPLETED once its battle
// terminates. No-op when the lobby is gone or not running; the transition
// chain only ever moves forward.
func (r *Registry) MarkCompleted(id uuid.UUID) {
	l, err := r.Get(id)
	if err != nil {
		return
	}

	l.Mu.Lock()
	if l.Status != models.LobbyInProgress {
		l.Mu.Unlock()
		return
	}
	l.Status = models.LobbyCompleted
	l.Touch()
	v := l.view()
	l.Mu.Unlock()

	r.logger.WithField("lobby", id).Info("lobby completed")
	r.bus.Publish(events.Global, events.LobbyUpdated, v)
	r.bus.Publish(events.LobbyChannel(id), events.LobbyUpdated, v)
}

// StaleWaiting returns summaries of WAITING lobbies whose UpdatedAt is
// older than now minus threshold. Read-only; the reaper composes this with
// Delete for the mutating sweep.
func (r *Registry) StaleWaiting(threshold time.Duration, now time.Time) []Summary {
	r.mu.Lock()
	all := make([]*Lobby, 0, len(r.lobbies))
	for _, l := range r.lobbies {
		all = append(all, l)
	}
	r.mu.Unlock()

	cutoff := now.Add(-threshold)
	var out []Summary
	for _, l := range all {
		l.Mu.Lock()
		if l.Status == models.LobbyWaiting && l.UpdatedAt.Before(cutoff) {
			out = append(out, l.summary())
		}
		l.Mu.Unlock()
	}
	return out
}

// Reap deletes the lobby only if it is still a stale WAITING lobby at
// deletion time, and announces closure. Returns false when the lobby was
// touched, started, or already removed since selection.
func (r *Registry) Reap(id uuid.UUID, threshold time.Duration, now time.Time) bool {
	l, err := r.Get(id)
	if err != nil {
		return false
	}

	l.Mu.Lock()
	stale := l.Status == models.LobbyWaiting && l.UpdatedAt.Before(now.Add(-threshold))
	v := l.view()
	l.Mu.Unlock()
	if !stale {
		return false
	}

	r.Delete(id)
	r.bus.Publish(events.Global, events.LobbyClosed, v)
	r.bus.Publish(events.LobbyChannel(id), events.LobbyClosed, v)
	return true
}
