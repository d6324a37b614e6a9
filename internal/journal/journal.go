// internal/journal/journal.go
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/averyhall/warcouncil/internal/models"
)

// DefaultQueueName is the redis list that accepted actions are pushed to
// for replay and audit consumers.
var DefaultQueueName = "warcouncil_actions"

// Record is the wire shape of one journaled action. Together with a
// deterministic combat resolver, the per-battle sequence of records is
// enough to replay a session from scratch.
type Record struct {
	BattleID    uuid.UUID              `json:"battle_id"`
	ActionIndex int                    `json:"action_index"`
	ActorID     uuid.UUID              `json:"actor_id"`
	ActionKind  models.ActionKind      `json:"action_kind"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Late        bool                   `json:"late,omitempty"`
	Timestamp   int64                  `json:"timestamp"`
}

// Publisher pushes action records onto a redis queue. Journal writes are
// best-effort notification, never part of the state transition.
type Publisher struct {
	rdb   *redis.Client
	queue string
}

// Connect initializes a publisher from environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
//   - JOURNAL_QUEUE_NAME (default DefaultQueueName)
func Connect(ctx context.Context) (*Publisher, error) {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return &Publisher{rdb: rdb, queue: getEnv("JOURNAL_QUEUE_NAME", DefaultQueueName)}, nil
}

// Publish serializes the record and RPushes it onto the queue.
func (p *Publisher) Publish(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal action record: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("rpush to redis list %q: %w", p.queue, err)
	}
	return nil
}

// FromEntry builds a Record from an accepted action log entry.
func FromEntry(battleID uuid.UUID, entry models.ActionEntry) Record {
	return Record{
		BattleID:    battleID,
		ActionIndex: entry.Index,
		ActorID:     entry.ActorID,
		ActionKind:  entry.Action.Kind,
		Payload:     entry.Action.Payload,
		Late:        entry.Late,
		Timestamp:   entry.AppliedAt.Unix(),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
