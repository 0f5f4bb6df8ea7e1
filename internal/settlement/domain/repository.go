package settlement

import "context"

// Repository persists settlement records.
type Repository interface {
	ListByPeriod(ctx context.Context, period Period) ([]SettlementRecord, error)
	ListByStation(ctx context.Context, stationID string) ([]SettlementRecord, error)
	Insert(ctx context.Context, record *SettlementRecord) (string, error)
	Update(ctx context.Context, id string, record *SettlementRecord) error
}

// StationDirectory lists the stations settlements are kept for.
type StationDirectory interface {
	ListStations(ctx context.Context) ([]Station, error)
}
