// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/averyhall/warcouncil/internal/auth"
	"github.com/averyhall/warcouncil/internal/database"
	"github.com/averyhall/warcouncil/internal/handlers"
	"github.com/averyhall/warcouncil/internal/journal"
	"github.com/averyhall/warcouncil/internal/models"
	"github.com/averyhall/warcouncil/internal/reaper"
	"github.com/averyhall/warcouncil/internal/snapshot"
)

func envSeconds(key string, def time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if sec, err := strconv.Atoi(s); err == nil && sec > 0 {
			return time.Duration(sec) * time.Second
		}
	}
	return def
}

func main() {
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	srv := handlers.NewServer(logger)
	ctx := context.Background()

	// Durable save backend is optional: without PG_HOST the in-memory
	// backend stays in place.
	if os.Getenv("PG_HOST") != "" {
		pool, err := database.Connect(ctx)
		if err != nil {
			log.Fatalf("postgres connect: %v", err)
		}
		backend := snapshot.NewPostgresBackend(pool)
		if err := backend.EnsureSchema(ctx); err != nil {
			log.Fatalf("postgres schema: %v", err)
		}
		srv.Saves = snapshot.NewStore(backend, logger)
		logger.Info("using postgres save backend")
	}

	// The action journal is optional the same way.
	if os.Getenv("REDIS_ADDR") != "" {
		pub, err := journal.Connect(ctx)
		if err != nil {
			log.Fatalf("redis connect: %v", err)
		}
		srv.Battles.OnAction = func(battleID uuid.UUID, entry models.ActionEntry) {
			go func() {
				pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := pub.Publish(pubCtx, journal.FromEntry(battleID, entry)); err != nil {
					logger.Warnf("journal publish failed: %v", err)
				}
			}()
		}
		logger.Info("action journal enabled")
	}

	// Background staleness sweeps: abandoned lobbies and silent battles.
	reapThreshold := envSeconds("LOBBY_REAP_SECONDS", reaper.DefaultThreshold)
	stopReaper := srv.Reaper.Run(time.Minute, reapThreshold)
	defer stopReaper()

	abandonThreshold := envSeconds("BATTLE_ABANDON_SECONDS", 15*time.Minute)
	abandonTicker := time.NewTicker(time.Minute)
	defer abandonTicker.Stop()
	go func() {
		for range abandonTicker.C {
			srv.Battles.AbandonStale(abandonThreshold, time.Now())
		}
	}()

	mux := http.NewServeMux()
	srv.Routes(mux)

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
