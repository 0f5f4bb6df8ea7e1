package application

import (
	"context"
	"time"

	settlement "cng-console/internal/settlement/domain"
)

// PeriodCommitted is emitted after every record of a period was written.
type PeriodCommitted struct {
	Period             settlement.Period `json:"period"`
	StationIDs         []string          `json:"stationIds"`
	Inserted           int               `json:"inserted"`
	Updated            int               `json:"updated"`
	TotalAccruedAmount float64           `json:"totalAccruedAmount"`
	TotalPaid          float64           `json:"totalPaid"`
	OccurredAt         time.Time         `json:"occurredAt"`
}

// SettlementPublisher emits period committed events.
type SettlementPublisher interface {
	PublishPeriodCommitted(ctx context.Context, event PeriodCommitted) error
}
