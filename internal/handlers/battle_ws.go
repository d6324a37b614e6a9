// internal/handlers/battle_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/averyhall/warcouncil/internal/auth"
	"github.com/averyhall/warcouncil/internal/events"
	"github.com/averyhall/warcouncil/internal/models"
)

// battleClientMsg is what a battle client may send: actions only.
type battleClientMsg struct {
	Type   string              `json:"type"` // "action"
	Action models.BattleAction `json:"action"`
}

// BattleWSHandler is the live surface of a running battle:
// /battle/ws/{battle_id}. Every accepted action comes back to all
// subscribers as a battle-updated event carrying the full snapshot;
// rejected actions come back to the submitting client as an error message
// and mutate nothing.
func (s *Server) BattleWSHandler(w http.ResponseWriter, r *http.Request) {
	battleID, err := trailingUUID(r.URL.Path, "/battle/ws/")
	if err != nil {
		http.Error(w, "invalid battle_id", http.StatusBadRequest)
		return
	}

	ident, err := auth.EnsureUser(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	snap, err := s.Battles.Get(battleID)
	if err != nil {
		http.Error(w, "battle not found", http.StatusNotFound)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"battle"},
		OriginPatterns: []string{"*"}, // tighten in production
	})
	if err != nil {
		s.Logger.Warnf("websocket accept error for battle %s: %v", battleID, err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	if c.Subprotocol() != "battle" {
		c.Close(BadSubprotocolError, "client must speak the battle subprotocol")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	out := make(chan events.Event, 16)
	sub := s.Bus.Subscribe(events.BattleChannel(battleID), events.AnyEvent, func(ev events.Event) {
		select {
		case out <- ev:
		default:
			s.Logger.WithFields(logrus.Fields{
				"battle": battleID, "user": ident.ID, "event": ev.Name,
			}).Warn("battle out channel full, dropping event")
		}
	})

	// Initial sync: the full current snapshot, so late joiners and
	// reconnecting spectators start consistent.
	out <- events.Event{Channel: events.BattleChannel(battleID), Name: events.BattleUpdated, Payload: snap}

	go s.wsWritePump(ctx, c, out)
	s.battleReadPump(ctx, c, battleID, ident)

	s.Bus.Unsubscribe(sub)
	s.Logger.WithFields(logrus.Fields{"battle": battleID, "user": ident.ID}).Info("battle connection closed")
}

func (s *Server) battleReadPump(ctx context.Context, c *websocket.Conn, battleID uuid.UUID, ident auth.Identity) {
	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			return
		}
		var msg battleClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			s.wsSendError(ctx, c, "malformed message")
			continue
		}
		if msg.Type != "action" {
			s.wsSendError(ctx, c, "unknown message type")
			continue
		}

		snap, err := s.Battles.ExecuteAction(battleID, ident.ID, msg.Action)
		if err != nil {
			s.wsSendError(ctx, c, err.Error())
			continue
		}
		// Spectate is read-only and not broadcast; answer it directly.
		if msg.Action.Kind == models.ActionSpectate {
			payload, err := json.Marshal(events.Event{
				Channel: events.BattleChannel(battleID),
				Name:    events.BattleUpdated,
				Payload: snap,
			})
			if err != nil {
				continue
			}
			c.Write(ctx, websocket.MessageText, payload)
		}
	}
}
