// internal/reaper/reaper.go
package reaper

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/averyhall/warcouncil/internal/lobby"
)

// DefaultThreshold is how long a WAITING lobby may sit untouched before it
// is considered abandoned.
const DefaultThreshold = 300 * time.Second

// ReapedLobbySummary describes one lobby selected by a scan or deleted by
// a sweep.
type ReapedLobbySummary struct {
	ID              uuid.UUID `json:"id"`
	HostDisplayName string    `json:"hostDisplayName"`
	InactiveMinutes float64   `json:"inactiveMinutes"`
}

// Reaper sweeps abandoned WAITING lobbies out of the registry. It never
// touches IN_PROGRESS or COMPLETED lobbies; staleness of a running battle
// is a session-scoped concern handled by battle.Store.AbandonStale.
type Reaper struct {
	registry *lobby.Registry
	logger   *logrus.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New returns a reaper over the given registry.
func New(registry *lobby.Registry, logger *logrus.Logger) *Reaper {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Reaper{registry: registry, logger: logger, now: time.Now}
}

// Scan lists WAITING lobbies untouched for longer than threshold without
// deleting anything.
func (r *Reaper) Scan(threshold time.Duration) []ReapedLobbySummary {
	now := r.now()
	stale := r.registry.StaleWaiting(threshold, now)
	out := make([]ReapedLobbySummary, 0, len(stale))
	for _, s := range stale {
		out = append(out, ReapedLobbySummary{
			ID:              s.ID,
			HostDisplayName: s.HostDisplayName,
			InactiveMinutes: now.Sub(s.UpdatedAt).Minutes(),
		})
	}
	return out
}

// Sweep deletes every lobby Scan would report and returns what it removed.
// Idempotent: a second immediate sweep finds nothing because the first
// already deleted the matching lobbies. Each deletion re-checks staleness
// under the lobby lock, so a join racing the sweep wins.
func (r *Reaper) Sweep(threshold time.Duration) []ReapedLobbySummary {
	now := r.now()
	stale := r.registry.StaleWaiting(threshold, now)
	out := make([]ReapedLobbySummary, 0, len(stale))
	for _, s := range stale {
		if !r.registry.Reap(s.ID, threshold, now) {
			continue
		}
		r.logger.WithFields(logrus.Fields{
			"lobby": s.ID,
			"host":  s.HostDisplayName,
		}).Info("reaped inactive lobby")
		out = append(out, ReapedLobbySummary{
			ID:              s.ID,
			HostDisplayName: s.HostDisplayName,
			InactiveMinutes: now.Sub(s.UpdatedAt).Minutes(),
		})
	}
	return out
}

// Run sweeps on every tick until ctx-style stop via the returned cancel
// func is invoked. The server runs one of these per process.
func (r *Reaper) Run(interval, threshold time.Duration) (stop func()) {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				r.Sweep(threshold)
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}
