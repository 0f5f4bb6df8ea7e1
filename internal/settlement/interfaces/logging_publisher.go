package interfaces

import (
	"context"
	"errors"
	"log"

	"cng-console/internal/settlement/application"
)

// LoggingPublisher logs period committed events.
type LoggingPublisher struct {
	logger *log.Logger
}

// NewLoggingPublisher constructs a logging publisher.
func NewLoggingPublisher(logger *log.Logger) *LoggingPublisher {
	if logger == nil {
		logger = log.Default()
	}
	return &LoggingPublisher{logger: logger}
}

// PublishPeriodCommitted logs the event.
func (p *LoggingPublisher) PublishPeriodCommitted(ctx context.Context, event application.PeriodCommitted) error {
	_ = ctx
	if p == nil {
		return errors.New("settlement publisher: nil publisher")
	}
	p.logger.Printf("settlement period committed: period=%s stations=%d inserted=%d updated=%d accrued=%.2f paid=%.2f",
		event.Period, len(event.StationIDs), event.Inserted, event.Updated, event.TotalAccruedAmount, event.TotalPaid)
	return nil
}
