// internal/snapshot/postgres.go
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/averyhall/warcouncil/internal/models"
)

// PostgresBackend stores save records in a single keyed table, one row per
// save id, with the session snapshot serialized as jsonb.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

// EnsureSchema creates the saves table if it does not exist yet.
func (p *PostgresBackend) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS battle_saves (
			id uuid PRIMARY KEY,
			name text NOT NULL DEFAULT '',
			session jsonb NOT NULL,
			saved_at timestamptz NOT NULL,
			format_version text NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure battle_saves schema: %w", err)
	}
	return nil
}

func (p *PostgresBackend) Put(ctx context.Context, rec models.SaveRecord) error {
	session, err := json.Marshal(rec.Session)
	if err != nil {
		return fmt.Errorf("marshal session snapshot: %w", err)
	}
	q := `
		INSERT INTO battle_saves (id, name, session, saved_at, format_version)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id)
		DO UPDATE SET name=$2, session=$3, saved_at=$4, format_version=$5
	`
	if _, err := p.pool.Exec(ctx, q, rec.ID, rec.Name, session, rec.SavedAt, rec.FormatVersion); err != nil {
		return fmt.Errorf("upsert save record: %w", err)
	}
	return nil
}

func (p *PostgresBackend) Get(ctx context.Context, id uuid.UUID) (models.SaveRecord, bool, error) {
	q := `SELECT id, name, session, saved_at, format_version FROM battle_saves WHERE id = $1`
	rec, err := scanRecord(p.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.SaveRecord{}, false, nil
	}
	if err != nil {
		return models.SaveRecord{}, false, err
	}
	return rec, true, nil
}

func (p *PostgresBackend) List(ctx context.Context) ([]models.SaveRecord, error) {
	q := `SELECT id, name, session, saved_at, format_version FROM battle_saves ORDER BY saved_at DESC`
	rows, err := p.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query save records: %w", err)
	}
	defer rows.Close()

	var out []models.SaveRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *PostgresBackend) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM battle_saves WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete save record: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanRecord(row pgx.Row) (models.SaveRecord, error) {
	var rec models.SaveRecord
	var session []byte
	if err := row.Scan(&rec.ID, &rec.Name, &session, &rec.SavedAt, &rec.FormatVersion); err != nil {
		return models.SaveRecord{}, err
	}
	if err := json.Unmarshal(session, &rec.Session); err != nil {
		return models.SaveRecord{}, fmt.Errorf("unmarshal session snapshot: %w", err)
	}
	return rec, nil
}
