package masterdata

import (
	"context"
	"errors"

	masterdata "cng-console/internal/masterdata/domain"
	settlement "cng-console/internal/settlement/domain"
)

// StationLister lists active stations from masterdata.
type StationLister interface {
	ListStations(ctx context.Context) ([]masterdata.Station, error)
}

// StationDirectory exposes masterdata stations to the settlement engine.
type StationDirectory struct {
	stations StationLister
}

// NewStationDirectory constructs the adapter.
func NewStationDirectory(stations StationLister) (*StationDirectory, error) {
	if stations == nil {
		return nil, errors.New("station directory: nil station lister")
	}
	return &StationDirectory{stations: stations}, nil
}

// ListStations returns stations in masterdata order.
func (d *StationDirectory) ListStations(ctx context.Context) ([]settlement.Station, error) {
	stations, err := d.stations.ListStations(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]settlement.Station, 0, len(stations))
	for _, station := range stations {
		result = append(result, settlement.Station{ID: station.ID, Name: station.Name})
	}
	return result, nil
}
