package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	settlement "cng-console/internal/settlement/domain"
)

// SettlementRepository is an in-memory repository for settlement records.
// It keeps one record per station/period.
type SettlementRepository struct {
	mu      sync.RWMutex
	byID    map[string]*settlement.SettlementRecord
	byKey   map[string]string
	now     func() time.Time
	inserts int
	updates int

	optimistic bool
}

// Option configures the repository.
type Option func(*SettlementRepository)

// WithOptimisticLock rejects updates whose version is not the stored one.
func WithOptimisticLock(enabled bool) Option {
	return func(r *SettlementRepository) {
		r.optimistic = enabled
	}
}

// NewSettlementRepository constructs a repository.
func NewSettlementRepository(opts ...Option) *SettlementRepository {
	repo := &SettlementRepository{
		byID:  make(map[string]*settlement.SettlementRecord),
		byKey: make(map[string]string),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ListByPeriod returns all records of a period ordered by station id.
func (r *SettlementRepository) ListByPeriod(ctx context.Context, period settlement.Period) ([]settlement.SettlementRecord, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []settlement.SettlementRecord
	for _, rec := range r.byID {
		if rec.Period == period {
			result = append(result, *rec)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StationID < result[j].StationID })
	return result, nil
}

// ListByStation returns all records of a station ordered by period.
func (r *SettlementRepository) ListByStation(ctx context.Context, stationID string) ([]settlement.SettlementRecord, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []settlement.SettlementRecord
	for _, rec := range r.byID {
		if rec.StationID == stationID {
			result = append(result, *rec)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Period.Before(result[j].Period) })
	return result, nil
}

// Insert stores a new record. A second insert for the same station/period
// overwrites the stored record instead of duplicating it.
func (r *SettlementRepository) Insert(ctx context.Context, record *settlement.SettlementRecord) (string, error) {
	_ = ctx
	if record == nil {
		return "", settlement.ErrNilRecord
	}
	if err := record.Validate(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	key := recordKey(record.StationID, record.Period)
	if id, ok := r.byKey[key]; ok {
		stored := r.byID[id]
		copy := record.Clone()
		copy.ID = id
		copy.CreatedAt = stored.CreatedAt
		copy.UpdatedAt = orNow(record.UpdatedAt, now)
		copy.Version = stored.Version + 1
		r.byID[id] = copy
		r.updates++
		writeBack(record, copy)
		return id, nil
	}

	copy := record.Clone()
	copy.ID = uuid.NewString()
	copy.CreatedAt = orNow(record.CreatedAt, now)
	copy.UpdatedAt = orNow(record.UpdatedAt, now)
	copy.Version = 1
	r.byID[copy.ID] = copy
	r.byKey[key] = copy.ID
	r.inserts++
	writeBack(record, copy)
	return copy.ID, nil
}

// Update overwrites the record stored under id.
func (r *SettlementRepository) Update(ctx context.Context, id string, record *settlement.SettlementRecord) error {
	_ = ctx
	if record == nil {
		return settlement.ErrNilRecord
	}
	if err := record.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return settlement.ErrRecordNotFound
	}
	if r.optimistic && record.Version != 0 && record.Version != stored.Version {
		return settlement.ErrVersionConflict
	}
	copy := record.Clone()
	copy.ID = id
	copy.CreatedAt = stored.CreatedAt
	copy.UpdatedAt = orNow(record.UpdatedAt, r.now())
	copy.Version = stored.Version + 1
	delete(r.byKey, recordKey(stored.StationID, stored.Period))
	r.byKey[recordKey(copy.StationID, copy.Period)] = id
	r.byID[id] = copy
	r.updates++
	writeBack(record, copy)
	return nil
}

// Count returns the number of stored records.
func (r *SettlementRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Writes returns how many inserts and updates were applied.
func (r *SettlementRepository) Writes() (inserts, updates int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.inserts, r.updates
}

func writeBack(dst, stored *settlement.SettlementRecord) {
	dst.ID = stored.ID
	dst.Version = stored.Version
	dst.CreatedAt = stored.CreatedAt
	dst.UpdatedAt = stored.UpdatedAt
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}

func recordKey(stationID string, period settlement.Period) string {
	return stationID + "|" + period.String()
}
