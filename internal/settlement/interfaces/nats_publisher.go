package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"cng-console/internal/settlement/application"
)

// DefaultCommittedSubject is the subject period committed events go to.
const DefaultCommittedSubject = "settlement.period.committed"

// NATSPublisher publishes period committed events as JSON.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to url.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("cng-console"))
	if err != nil {
		return nil, fmt.Errorf("settlement publisher: connect nats: %w", err)
	}
	return NewNATSPublisherWithConn(conn, subject), nil
}

// NewNATSPublisherWithConn wraps an existing connection.
func NewNATSPublisherWithConn(conn *nats.Conn, subject string) *NATSPublisher {
	if subject == "" {
		subject = DefaultCommittedSubject
	}
	return &NATSPublisher{conn: conn, subject: subject}
}

// PublishPeriodCommitted publishes the event.
func (p *NATSPublisher) PublishPeriodCommitted(ctx context.Context, event application.PeriodCommitted) error {
	if p == nil || p.conn == nil {
		return errors.New("settlement publisher: nil nats connection")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(p.subject)
	msg.Data = payload
	msg.Header.Set("Nats-Msg-Id", fmt.Sprintf("%s-%d", event.Period, event.OccurredAt.UnixNano()))
	return p.conn.PublishMsg(msg)
}

// Close drains the connection.
func (p *NATSPublisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

// MultiPublisher fans an event out to several publishers and joins their errors.
type MultiPublisher []application.SettlementPublisher

// PublishPeriodCommitted publishes to every publisher.
func (m MultiPublisher) PublishPeriodCommitted(ctx context.Context, event application.PeriodCommitted) error {
	var errs []error
	for _, publisher := range m {
		if publisher == nil {
			continue
		}
		if err := publisher.PublishPeriodCommitted(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
