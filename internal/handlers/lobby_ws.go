// internal/handlers/lobby_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/averyhall/warcouncil/internal/auth"
	"github.com/averyhall/warcouncil/internal/events"
	"github.com/averyhall/warcouncil/internal/models"
)

// lobbyClientMsg is the closed set of messages a lobby client may send.
type lobbyClientMsg struct {
	Type     string          `json:"type"` // "start", "leave", "chat", "settings"
	Msg      string          `json:"msg,omitempty"`
	Settings json.RawMessage `json:"settings,omitempty"`
}

// LobbyWSHandler is the participant surface of a lobby:
// /lobby/ws/{lobby_id}?spectate=1&displayName=...
// It joins the caller, forwards every event on the lobby channel to the
// socket, and feeds client commands into the registry. The bus
// subscription is torn down as part of disconnect handling.
func (s *Server) LobbyWSHandler(w http.ResponseWriter, r *http.Request) {
	lobbyID, err := trailingUUID(r.URL.Path, "/lobby/ws/")
	if err != nil {
		http.Error(w, "invalid lobby_id", http.StatusBadRequest)
		return
	}

	ident, err := auth.EnsureUser(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}
	asSpectator := r.URL.Query().Get("spectate") == "1"

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"lobby"},
		OriginPatterns: []string{"*"}, // tighten in production
	})
	if err != nil {
		s.Logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	if c.Subprotocol() != "lobby" {
		c.Close(BadSubprotocolError, "client must speak the lobby subprotocol")
		return
	}

	view, err := s.Lobbies.JoinLobby(lobbyID, ident.ID, ident.DisplayName, asSpectator)
	if err != nil {
		c.Close(InvalidLobbyIDError, err.Error())
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	out := make(chan events.Event, 16)
	sub := s.Bus.Subscribe(events.LobbyChannel(lobbyID), events.AnyEvent, func(ev events.Event) {
		select {
		case out <- ev:
		default:
			s.Logger.WithFields(logrus.Fields{
				"lobby": lobbyID, "user": ident.ID, "event": ev.Name,
			}).Warn("lobby out channel full, dropping event")
		}
	})

	// The full current state goes out first so the client never depends on
	// having seen earlier events.
	out <- events.Event{Channel: events.LobbyChannel(lobbyID), Name: events.LobbyUpdated, Payload: view}

	go s.wsWritePump(ctx, c, out)
	s.lobbyReadPump(ctx, c, lobbyID, ident)

	// Cleanup: drop the handler, then the seat. Leave is a no-op if the
	// client already left explicitly.
	s.Bus.Unsubscribe(sub)
	s.Lobbies.Leave(lobbyID, ident.ID)
	s.Logger.WithFields(logrus.Fields{"lobby": lobbyID, "user": ident.ID}).Info("lobby connection closed")
}

func (s *Server) lobbyReadPump(ctx context.Context, c *websocket.Conn, lobbyID uuid.UUID, ident auth.Identity) {
	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			return
		}
		var msg lobbyClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			s.wsSendError(ctx, c, "malformed message")
			continue
		}

		switch msg.Type {
		case "start":
			lob, err := s.Lobbies.Get(lobbyID)
			if err == nil {
				_, err = s.Battles.StartFromLobby(lob, ident.ID)
			}
			if err != nil {
				s.wsSendError(ctx, c, err.Error())
			}

		case "leave":
			s.Lobbies.Leave(lobbyID, ident.ID)
			return

		case "settings":
			var settings models.BattleSettings
			if err := json.Unmarshal(msg.Settings, &settings); err != nil {
				s.wsSendError(ctx, c, "malformed settings")
				continue
			}
			if _, err := s.Lobbies.UpdateSettings(lobbyID, ident.ID, settings); err != nil {
				s.wsSendError(ctx, c, err.Error())
			}

		case "chat":
			s.Bus.Publish(events.LobbyChannel(lobbyID), "chat", map[string]interface{}{
				"userId":      ident.ID.String(),
				"displayName": ident.DisplayName,
				"msg":         msg.Msg,
				"ts":          time.Now().Unix(),
			})

		default:
			s.wsSendError(ctx, c, "unknown message type")
		}
	}
}
