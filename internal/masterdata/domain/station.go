package masterdata

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by a station cache holding no list.
var ErrCacheMiss = errors.New("station cache: miss")

// Station is a CNG filling station settlements are kept for.
type Station struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone"`
	Region    string    `json:"region"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks station invariants.
func (s Station) Validate() error {
	if s.ID == "" {
		return errors.New("station: empty id")
	}
	if s.Name == "" {
		return errors.New("station: empty name")
	}
	if s.Timezone == "" {
		return errors.New("station: empty timezone")
	}
	return nil
}

// StationRepository manages station persistence.
type StationRepository interface {
	Get(ctx context.Context, id string) (*Station, error)
	List(ctx context.Context) ([]Station, error)
	Save(ctx context.Context, station *Station) error
}
