package application

import (
	"context"
	"errors"
	"log"

	masterdata "cng-console/internal/masterdata/domain"
	"cng-console/internal/observability/metrics"
)

// StationListCache caches the active station list.
type StationListCache interface {
	GetStations(ctx context.Context) ([]masterdata.Station, error)
	SetStations(ctx context.Context, stations []masterdata.Station) error
	Invalidate(ctx context.Context) error
}

// StationService provides station commands and the cached station list.
type StationService struct {
	repo   masterdata.StationRepository
	cache  StationListCache
	logger *log.Logger
}

// NewStationService constructs a station service. cache may be nil.
func NewStationService(repo masterdata.StationRepository, cache StationListCache, logger *log.Logger) (*StationService, error) {
	if repo == nil {
		return nil, errors.New("station service: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &StationService{repo: repo, cache: cache, logger: logger}, nil
}

// UpsertStation validates and saves a station.
func (s *StationService) UpsertStation(ctx context.Context, station *masterdata.Station) error {
	if station == nil {
		return errors.New("station service: nil station")
	}
	if err := station.Validate(); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, station); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Printf("station cache: invalidate failed: err=%v", err)
		}
	}
	return nil
}

// ListStations returns active stations. Cache failures fall through to the repository.
func (s *StationService) ListStations(ctx context.Context) ([]masterdata.Station, error) {
	if s.cache != nil {
		stations, err := s.cache.GetStations(ctx)
		switch {
		case err == nil:
			metrics.IncStationCache(metrics.CacheHit)
			return stations, nil
		case errors.Is(err, masterdata.ErrCacheMiss):
			metrics.IncStationCache(metrics.CacheMiss)
		default:
			metrics.IncStationCache(metrics.CacheError)
			s.logger.Printf("station cache: read failed: err=%v", err)
		}
	}

	stations, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetStations(ctx, stations); err != nil {
			s.logger.Printf("station cache: write failed: err=%v", err)
		}
	}
	return stations, nil
}
