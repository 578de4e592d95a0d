package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"rics-valuation/internal/domain"
	"rics-valuation/internal/infrastructure/kvstore"
	"rics-valuation/internal/metrics"

	"github.com/rs/zerolog/log"
)

// Store owns the persisted collection of valuation records. The whole
// collection lives under one key and is rewritten in full on every change.
// The mutex only orders writers inside this process; two processes sharing a
// backend race with last-writer-wins.
type Store struct {
	KV       kvstore.Store
	Key      string
	Now      func() time.Time
	NewID    func() string
	Location *time.Location

	mu sync.Mutex
}

// NewStore returns a Store persisting under key.
func NewStore(kv kvstore.Store, key string) *Store {
	return &Store{
		KV:       kv,
		Key:      key,
		Now:      time.Now,
		NewID:    domain.NewRecordID,
		Location: time.Local,
	}
}

// LoadAll returns every stored record. A missing or unreadable collection is
// an empty one.
func (s *Store) LoadAll(ctx context.Context) []*domain.ValuationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(ctx)
}

// MigrateMissingIDs gives every record without an id a fresh one and
// persists records as the collection when anything changed.
func (s *Store) MigrateMissingIDs(ctx context.Context, records []*domain.ValuationRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range records {
		if r.ID == "" {
			r.ID = s.NewID()
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	log.Info().Int("count", n).Msg("assigned ids to legacy reports")
	return n, s.persist(ctx, records)
}

// MigrateStatuses rewrites legacy status values and persists records as the
// collection when anything changed.
func (s *Store) MigrateStatuses(ctx context.Context, records []*domain.ValuationRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range records {
		if r.Normalize() {
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	log.Info().Int("count", n).Msg("normalized legacy report statuses")
	return n, s.persist(ctx, records)
}

// Migrate runs both legacy migrations over the stored collection. Running it
// again is a no-op.
func (s *Store) Migrate(ctx context.Context) ([]*domain.ValuationRecord, error) {
	records := s.LoadAll(ctx)
	if _, err := s.MigrateMissingIDs(ctx, records); err != nil {
		return records, err
	}
	if _, err := s.MigrateStatuses(ctx, records); err != nil {
		return records, err
	}
	return records, nil
}

// Upsert stamps rec.UpdatedAt, then replaces the stored record with the same
// id or appends it. A copy is stored so rec stays a detached working copy.
func (s *Store) Upsert(ctx context.Context, rec *domain.ValuationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = s.NewID()
	}
	rec.UpdatedAt = s.Now()

	records := s.read(ctx)
	stored := rec.Clone()
	if i := indexOf(records, rec.ID); i >= 0 {
		records[i] = stored
	} else {
		records = append(records, stored)
	}
	return s.persist(ctx, records)
}

// Delete removes the record with id. It reports false, without writing
// anything, when no such record exists.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.read(ctx)
	i := indexOf(records, id)
	if i < 0 {
		return false, nil
	}
	records = append(records[:i], records[i+1:]...)
	if err := s.persist(ctx, records); err != nil {
		return false, err
	}
	return true, nil
}

// FindByID returns the stored record with id.
func (s *Store) FindByID(ctx context.Context, id string) (*domain.ValuationRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.read(ctx)
	if i := indexOf(records, id); i >= 0 {
		return records[i], true
	}
	return nil, false
}

// ChangeStatus sets the status of a stored record and stamps UpdatedAt.
func (s *Store) ChangeStatus(ctx context.Context, id string, status domain.Status) (*domain.ValuationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.read(ctx)
	i := indexOf(records, id)
	if i < 0 {
		return nil, domain.ErrReportNotFound
	}
	records[i].Status = status
	records[i].UpdatedAt = s.Now()
	if err := s.persist(ctx, records); err != nil {
		return nil, err
	}
	return records[i].Clone(), nil
}

// List returns the stored records matching f, in stored order.
func (s *Store) List(ctx context.Context, f Filter) []*domain.ValuationRecord {
	return f.Apply(s.LoadAll(ctx), s.Location)
}

// read decodes the collection. Caller holds mu.
func (s *Store) read(ctx context.Context) []*domain.ValuationRecord {
	empty := []*domain.ValuationRecord{}
	b, err := s.KV.Get(ctx, s.Key)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			log.Warn().Err(err).Str("key", s.Key).Msg("report collection unreadable, treating as empty")
		}
		return empty
	}
	var decoded []*domain.ValuationRecord
	if err := json.Unmarshal(b, &decoded); err != nil {
		log.Warn().Err(err).Str("key", s.Key).Int("bytes", len(b)).Msg("report collection unparseable, treating as empty")
		return empty
	}
	out := decoded[:0]
	for _, r := range decoded {
		if r == nil {
			continue
		}
		if r.Comparables == nil {
			r.Comparables = []domain.Comparable{}
		}
		out = append(out, r)
	}
	return out
}

// persist writes the full collection. Caller holds mu.
func (s *Store) persist(ctx context.Context, records []*domain.ValuationRecord) error {
	b, err := json.Marshal(records)
	if err != nil {
		metrics.ReportPersists.WithLabelValues(metrics.ResultError).Inc()
		return fmt.Errorf("encode reports: %w", err)
	}
	if err := s.KV.Set(ctx, s.Key, b, 0); err != nil {
		if errors.Is(err, kvstore.ErrQuotaExceeded) {
			metrics.ReportPersists.WithLabelValues(metrics.ResultQuota).Inc()
			log.Warn().Str("key", s.Key).Int("bytes", len(b)).Msg("report collection rejected by storage quota")
			return domain.ErrQuotaExceeded
		}
		metrics.ReportPersists.WithLabelValues(metrics.ResultError).Inc()
		return fmt.Errorf("persist reports: %w", err)
	}
	metrics.ReportPersists.WithLabelValues(metrics.ResultOK).Inc()
	log.Debug().Str("key", s.Key).Int("reports", len(records)).Int("bytes", len(b)).Msg("report collection saved")
	return nil
}

func indexOf(records []*domain.ValuationRecord, id string) int {
	for i, r := range records {
		if r.ID == id {
			return i
		}
	}
	return -1
}
