package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	masterdata "cng-console/internal/masterdata/domain"
)

// StationRepository keeps stations in memory.
type StationRepository struct {
	mu       sync.RWMutex
	stations map[string]masterdata.Station
}

// NewStationRepository constructs a repository.
func NewStationRepository() *StationRepository {
	return &StationRepository{stations: make(map[string]masterdata.Station)}
}

// Get loads a station by id. A missing station yields nil, nil.
func (r *StationRepository) Get(ctx context.Context, id string) (*masterdata.Station, error) {
	_ = ctx
	if id == "" {
		return nil, errors.New("station repo: empty id")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	station, ok := r.stations[id]
	if !ok {
		return nil, nil
	}
	return &station, nil
}

// List returns active stations ordered by name.
func (r *StationRepository) List(ctx context.Context) ([]masterdata.Station, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]masterdata.Station, 0, len(r.stations))
	for _, station := range r.stations {
		if station.Active {
			result = append(result, station)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Save upserts a station.
func (r *StationRepository) Save(ctx context.Context, station *masterdata.Station) error {
	_ = ctx
	if station == nil {
		return errors.New("station repo: nil station")
	}
	if err := station.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := r.stations[station.ID]; ok {
		station.CreatedAt = existing.CreatedAt
	} else if station.CreatedAt.IsZero() {
		station.CreatedAt = now
	}
	station.UpdatedAt = now
	r.stations[station.ID] = *station
	return nil
}
