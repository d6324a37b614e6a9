// internal/snapshot/store.go
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/averyhall/warcouncil/internal/models"
)

// FormatVersion is stamped onto every SaveRecord this engine writes.
// Loading enforces exact equality: a mismatch fails closed rather than
// risk resuming semantically incompatible state.
const FormatVersion = "1.0.0"

var (
	ErrNotFound            = errors.New("save record not found")
	ErrIncompatibleVersion = errors.New("save record format version mismatch")
)

// Backend is the keyed durable store for SaveRecords. The engine ships an
// in-memory backend and a postgres one; which to run is deployment choice.
type Backend interface {
	Put(ctx context.Context, rec models.SaveRecord) error
	Get(ctx context.Context, id uuid.UUID) (models.SaveRecord, bool, error)
	List(ctx context.Context) ([]models.SaveRecord, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// Store captures and restores battle snapshots. It depends only on the
// session data shapes: saving never mutates a live session and loading
// never re-registers one (battle.Store.Restore is that explicit step).
type Store struct {
	backend Backend
	logger  *logrus.Logger
}

// NewStore wraps backend. A nil backend gets an in-memory one.
func NewStore(backend Backend, logger *logrus.Logger) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Store{backend: backend, logger: logger}
}

// Save captures the snapshot verbatim under a fresh save id.
func (s *Store) Save(ctx context.Context, snap models.BattleSnapshot, name string) (models.SaveRecord, error) {
	rec := models.SaveRecord{
		ID:            uuid.New(),
		Name:          name,
		Session:       snap.Clone(),
		SavedAt:       time.Now(),
		FormatVersion: FormatVersion,
	}
	if err := s.backend.Put(ctx, rec); err != nil {
		return models.SaveRecord{}, fmt.Errorf("persist save record: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"save": rec.ID, "battle": snap.ID}).Info("session saved")
	return rec, nil
}

// Load returns the stored session with UpdatedAt refreshed to load time.
// Fails with ErrIncompatibleVersion unless the record was written by the
// same format version, and ErrNotFound for unknown ids.
func (s *Store) Load(ctx context.Context, id uuid.UUID) (models.BattleSnapshot, error) {
	rec, ok, err := s.backend.Get(ctx, id)
	if err != nil {
		return models.BattleSnapshot{}, fmt.Errorf("read save record: %w", err)
	}
	if !ok {
		return models.BattleSnapshot{}, ErrNotFound
	}
	if rec.FormatVersion != FormatVersion {
		return models.BattleSnapshot{}, fmt.Errorf("%w: record %s, engine %s",
			ErrIncompatibleVersion, rec.FormatVersion, FormatVersion)
	}
	snap := rec.Session.Clone()
	snap.UpdatedAt = time.Now()
	return snap, nil
}

// List returns save summaries, most recent first.
func (s *Store) List(ctx context.Context) ([]models.SaveSummary, error) {
	recs, err := s.backend.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list save records: %w", err)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].SavedAt.After(recs[j].SavedAt) })
	out := make([]models.SaveSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, models.SaveSummary{
			ID:        rec.ID,
			Name:      rec.Name,
			BattleID:  rec.Session.ID,
			Status:    rec.Session.Status,
			SavedAt:   rec.SavedAt,
			TurnCount: len(rec.Session.ActionLog),
		})
	}
	return out, nil
}

// Delete removes a save record, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.backend.Delete(ctx, id)
}

// Export returns every save record keyed by save id.
func (s *Store) Export(ctx context.Context) (map[uuid.UUID]models.SaveRecord, error) {
	recs, err := s.backend.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("export save records: %w", err)
	}
	out := make(map[uuid.UUID]models.SaveRecord, len(recs))
	for _, rec := range recs {
		out[rec.ID] = rec
	}
	return out, nil
}

// Import merges records into the store. Imported entries take precedence
// on id collision. Records from other format versions are stored as-is;
// they surface as ErrIncompatibleVersion at load time, not here.
func (s *Store) Import(ctx context.Context, recs map[uuid.UUID]models.SaveRecord) error {
	for id, rec := range recs {
		rec.ID = id
		if err := s.backend.Put(ctx, rec); err != nil {
			return fmt.Errorf("import save record %s: %w", id, err)
		}
	}
	return nil
}
