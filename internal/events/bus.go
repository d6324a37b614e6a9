// internal/events/bus.go
package events

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Channel names. Discovery traffic (lobby browser views) rides the single
// global channel; participants inside an entity subscribe to its own channel.
const Global = "global"

// LobbyChannel returns the per-lobby channel name.
func LobbyChannel(id uuid.UUID) string { return "lobby-" + id.String() }

// BattleChannel returns the per-battle channel name.
func BattleChannel(id uuid.UUID) string { return "battle-" + id.String() }

// Event names published by the engine.
const (
	LobbyCreated  = "lobby-created"
	LobbyUpdated  = "lobby-updated"
	LobbyClosed   = "lobby-closed"
	BattleCreated = "battle-created"
	BattleStarted = "battle-started"
	BattleUpdated = "battle-updated"
)

// AnyEvent subscribes a handler to every event on a channel. Used by the
// transport layer, which forwards whole channels to websocket clients.
const AnyEvent = "*"

// Event is a published notification. Payloads are full snapshots, not
// deltas, so a client that misses one event self-heals on the next.
type Event struct {
	Channel string      `json:"channel"`
	Name    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Handler receives published events. Handlers must not block; the
// transport layer hands events to buffered per-connection channels and
// drops on overflow rather than stalling a publish.
type Handler func(Event)

// Subscription is the handle returned by Subscribe. Hold on to it:
// releasing it via Unsubscribe is the only way to detach the handler, and
// a disconnecting client that skips teardown leaks its handler forever.
type Subscription struct {
	ID      uuid.UUID
	Channel string
	Name    string
}

// Bus is an in-process channel-addressed publish/subscribe fanout.
// Delivery is best-effort at-least-once: publishing never fails and never
// rolls anything back, state remains the source of truth.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[string]map[uuid.UUID]Handler // channel -> event -> sub id -> handler
	logger *logrus.Logger
}

// NewBus returns an empty bus. A nil logger falls back to the logrus default.
func NewBus(logger *logrus.Logger) *Bus {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Bus{
		subs:   make(map[string]map[string]map[uuid.UUID]Handler),
		logger: logger,
	}
}

// Subscribe registers handler for the named event on channel. Pass AnyEvent
// as name to receive everything published on the channel.
func (b *Bus) Subscribe(channel, name string, handler Handler) *Subscription {
	sub := &Subscription{ID: uuid.New(), Channel: channel, Name: name}

	b.mu.Lock()
	defer b.mu.Unlock()
	byEvent, ok := b.subs[channel]
	if !ok {
		byEvent = make(map[string]map[uuid.UUID]Handler)
		b.subs[channel] = byEvent
	}
	byID, ok := byEvent[name]
	if !ok {
		byID = make(map[uuid.UUID]Handler)
		byEvent[name] = byID
	}
	byID[sub.ID] = handler
	return sub
}

// Unsubscribe detaches the handler behind sub. Safe to call twice; the
// second call is a no-op.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	byEvent, ok := b.subs[sub.Channel]
	if !ok {
		return
	}
	byID, ok := byEvent[sub.Name]
	if !ok {
		return
	}
	delete(byID, sub.ID)
	if len(byID) == 0 {
		delete(byEvent, sub.Name)
	}
	if len(byEvent) == 0 {
		delete(b.subs, sub.Channel)
	}
}

// Publish delivers the event to every handler subscribed to (channel, name)
// and every AnyEvent handler on the channel. Handlers run on the caller's
// goroutine after the subscriber table lock is released, so publishers must
// call Publish with no entity locks held.
func (b *Bus) Publish(channel, name string, payload interface{}) {
	ev := Event{Channel: channel, Name: name, Payload: payload}

	b.mu.RLock()
	var handlers []Handler
	if byEvent, ok := b.subs[channel]; ok {
		for _, h := range byEvent[name] {
			handlers = append(handlers, h)
		}
		for _, h := range byEvent[AnyEvent] {
			handlers = append(handlers, h)
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
	b.logger.WithFields(logrus.Fields{
		"channel":  channel,
		"event":    name,
		"handlers": len(handlers),
	}).Debug("published event")
}
