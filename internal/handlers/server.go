// internal/handlers/server.go
package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/averyhall/warcouncil/internal/auth"
	"github.com/averyhall/warcouncil/internal/battle"
	"github.com/averyhall/warcouncil/internal/events"
	"github.com/averyhall/warcouncil/internal/lobby"
	"github.com/averyhall/warcouncil/internal/middleware"
	"github.com/averyhall/warcouncil/internal/reaper"
	"github.com/averyhall/warcouncil/internal/snapshot"
)

// Server bundles the engine components the transport layer fronts.
type Server struct {
	Logger  *logrus.Logger
	Bus     *events.Bus
	Lobbies *lobby.Registry
	Battles *battle.Store
	Saves   *snapshot.Store
	Reaper  *reaper.Reaper
	Names   *auth.NameRegistry
}

// NewServer wires a server around fresh in-memory components. Production
// wiring in cmd/server swaps in the durable save backend and the journal.
func NewServer(logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	bus := events.NewBus(logger)
	registry := lobby.NewRegistry(bus, logger)
	battles := battle.NewStore(bus, battle.PassResolver{}, logger)
	battles.OnTerminal = registry.MarkCompleted
	return &Server{
		Logger:  logger,
		Bus:     bus,
		Lobbies: registry,
		Battles: battles,
		Saves:   snapshot.NewStore(nil, logger),
		Reaper:  reaper.New(registry, logger),
		Names:   auth.NewNameRegistry(),
	}
}

// Routes registers every endpoint on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	logged := middleware.LogMiddleware(s.Logger)

	mux.Handle("/auth/claim", logged(http.HandlerFunc(s.ClaimNameHandler)))
	mux.Handle("/auth/login", logged(http.HandlerFunc(s.LoginHandler)))

	mux.Handle("/lobby/create", logged(http.HandlerFunc(s.CreateLobbyHandler)))
	mux.Handle("/lobby/list", logged(http.HandlerFunc(s.ListLobbiesHandler)))
	mux.Handle("/lobby/ws/", logged(http.HandlerFunc(s.LobbyWSHandler)))

	mux.Handle("/battle/ws/", logged(http.HandlerFunc(s.BattleWSHandler)))
	mux.Handle("/battle/get/", logged(http.HandlerFunc(s.GetBattleHandler)))

	mux.Handle("/saves/create", logged(http.HandlerFunc(s.CreateSaveHandler)))
	mux.Handle("/saves/list", logged(http.HandlerFunc(s.ListSavesHandler)))
	mux.Handle("/saves/load", logged(http.HandlerFunc(s.LoadSaveHandler)))
	mux.Handle("/saves/delete", logged(http.HandlerFunc(s.DeleteSaveHandler)))
	mux.Handle("/saves/export", logged(http.HandlerFunc(s.ExportSavesHandler)))
	mux.Handle("/saves/import", logged(http.HandlerFunc(s.ImportSavesHandler)))

	mux.Handle("/admin/reap/scan", logged(http.HandlerFunc(s.ScanReapHandler)))
	mux.Handle("/admin/reap/sweep", logged(http.HandlerFunc(s.SweepReapHandler)))
}
