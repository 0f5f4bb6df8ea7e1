package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	settlement "cng-console/internal/settlement/domain"
)

const defaultSettlementTable = "gas_settlements"

const settlementColumns = `id, station_id, station_name, period,
	gas_price, start_balance, limit_m3, total_accrued_m3,
	meter_reading, config_error, low_pressure, act_calculation, meter_difference, other_m3,
	total_accrued_amount, paid, end_balance, version, created_at, updated_at`

// SettlementRepository is a Postgres implementation for settlement records.
type SettlementRepository struct {
	db         *sql.DB
	table      string
	optimistic bool
}

// NewSettlementRepository constructs a repository with defaults.
func NewSettlementRepository(db *sql.DB, opts ...RepositoryOption) *SettlementRepository {
	repo := &SettlementRepository{
		db:    db,
		table: defaultSettlementTable,
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RepositoryOption configures the repository.
type RepositoryOption func(*SettlementRepository)

// WithTable overrides the default table.
func WithTable(table string) RepositoryOption {
	return func(repo *SettlementRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// WithOptimisticLock makes Update fail with ErrVersionConflict when the
// stored version moved since the record was loaded.
func WithOptimisticLock(enabled bool) RepositoryOption {
	return func(repo *SettlementRepository) {
		repo.optimistic = enabled
	}
}

// ListByPeriod loads every record of a period.
func (r *SettlementRepository) ListByPeriod(ctx context.Context, period settlement.Period) ([]settlement.SettlementRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("settlement repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE period = $1
ORDER BY station_id ASC`, settlementColumns, r.table)
	return r.list(ctx, query, period.String())
}

// ListByStation loads every record of a station.
func (r *SettlementRepository) ListByStation(ctx context.Context, stationID string) ([]settlement.SettlementRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("settlement repo: nil db")
	}
	if stationID == "" {
		return nil, settlement.ErrEmptyStationID
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE station_id = $1
ORDER BY period ASC`, settlementColumns, r.table)
	return r.list(ctx, query, stationID)
}

// Insert writes a new record. The unique (station_id, period) index turns a
// racing second insert into an update of the same row.
func (r *SettlementRepository) Insert(ctx context.Context, record *settlement.SettlementRecord) (string, error) {
	if r == nil || r.db == nil {
		return "", errors.New("settlement repo: nil db")
	}
	if record == nil {
		return "", settlement.ErrNilRecord
	}
	if err := record.Validate(); err != nil {
		return "", err
	}
	now := time.Now().UTC()
	createdAt := orNow(record.CreatedAt, now)
	updatedAt := orNow(record.UpdatedAt, now)

	query := fmt.Sprintf(`
INSERT INTO %s AS s (
	id, station_id, station_name, period,
	gas_price, start_balance, limit_m3, total_accrued_m3,
	meter_reading, config_error, low_pressure, act_calculation, meter_difference, other_m3,
	total_accrued_amount, paid, end_balance, version, created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, 1, $18, $19
)
ON CONFLICT (station_id, period)
DO UPDATE SET
	station_name = EXCLUDED.station_name,
	gas_price = EXCLUDED.gas_price,
	start_balance = EXCLUDED.start_balance,
	limit_m3 = EXCLUDED.limit_m3,
	total_accrued_m3 = EXCLUDED.total_accrued_m3,
	meter_reading = EXCLUDED.meter_reading,
	config_error = EXCLUDED.config_error,
	low_pressure = EXCLUDED.low_pressure,
	act_calculation = EXCLUDED.act_calculation,
	meter_difference = EXCLUDED.meter_difference,
	other_m3 = EXCLUDED.other_m3,
	total_accrued_amount = EXCLUDED.total_accrued_amount,
	paid = EXCLUDED.paid,
	end_balance = EXCLUDED.end_balance,
	version = s.version + 1,
	updated_at = EXCLUDED.updated_at
RETURNING id, version, created_at, updated_at`, r.table)

	var stored settlement.SettlementRecord
	err := r.db.QueryRowContext(
		ctx,
		query,
		uuid.NewString(),
		record.StationID,
		record.StationName,
		record.Period.String(),
		record.GasPrice,
		record.StartBalance,
		record.Limit,
		record.TotalAccruedM3,
		record.MeterReading,
		record.ConfigError,
		record.LowPressure,
		record.ActCalculation,
		record.MeterDifference,
		record.Other,
		record.TotalAccruedAmount,
		record.Paid,
		record.EndBalance,
		createdAt,
		updatedAt,
	).Scan(&stored.ID, &stored.Version, &stored.CreatedAt, &stored.UpdatedAt)
	if err != nil {
		return "", err
	}
	writeBack(record, stored)
	return stored.ID, nil
}

// Update overwrites the record stored under id and bumps its version.
func (r *SettlementRepository) Update(ctx context.Context, id string, record *settlement.SettlementRecord) error {
	if r == nil || r.db == nil {
		return errors.New("settlement repo: nil db")
	}
	if record == nil {
		return settlement.ErrNilRecord
	}
	if id == "" {
		return settlement.ErrRecordNotFound
	}
	if err := record.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
UPDATE %s SET
	station_id = $2,
	station_name = $3,
	period = $4,
	gas_price = $5,
	start_balance = $6,
	limit_m3 = $7,
	total_accrued_m3 = $8,
	meter_reading = $9,
	config_error = $10,
	low_pressure = $11,
	act_calculation = $12,
	meter_difference = $13,
	other_m3 = $14,
	total_accrued_amount = $15,
	paid = $16,
	end_balance = $17,
	updated_at = $18,
	version = version + 1
WHERE id = $1 AND ($19 = 0 OR version = $19)
RETURNING id, version, created_at, updated_at`, r.table)

	expectedVersion := 0
	if r.optimistic {
		expectedVersion = record.Version
	}

	var stored settlement.SettlementRecord
	err := r.db.QueryRowContext(
		ctx,
		query,
		id,
		record.StationID,
		record.StationName,
		record.Period.String(),
		record.GasPrice,
		record.StartBalance,
		record.Limit,
		record.TotalAccruedM3,
		record.MeterReading,
		record.ConfigError,
		record.LowPressure,
		record.ActCalculation,
		record.MeterDifference,
		record.Other,
		record.TotalAccruedAmount,
		record.Paid,
		record.EndBalance,
		orNow(record.UpdatedAt, time.Now().UTC()),
		expectedVersion,
	).Scan(&stored.ID, &stored.Version, &stored.CreatedAt, &stored.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if expectedVersion > 0 && r.exists(ctx, id) {
				return settlement.ErrVersionConflict
			}
			return settlement.ErrRecordNotFound
		}
		return err
	}
	writeBack(record, stored)
	return nil
}

func (r *SettlementRepository) exists(ctx context.Context, id string) bool {
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE id = $1`, r.table)
	var one int
	return r.db.QueryRowContext(ctx, query, id).Scan(&one) == nil
}

func (r *SettlementRepository) list(ctx context.Context, query string, args ...any) ([]settlement.SettlementRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []settlement.SettlementRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (settlement.SettlementRecord, error) {
	var rec settlement.SettlementRecord
	var period string
	err := row.Scan(
		&rec.ID,
		&rec.StationID,
		&rec.StationName,
		&period,
		&rec.GasPrice,
		&rec.StartBalance,
		&rec.Limit,
		&rec.TotalAccruedM3,
		&rec.MeterReading,
		&rec.ConfigError,
		&rec.LowPressure,
		&rec.ActCalculation,
		&rec.MeterDifference,
		&rec.Other,
		&rec.TotalAccruedAmount,
		&rec.Paid,
		&rec.EndBalance,
		&rec.Version,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return settlement.SettlementRecord{}, err
	}
	rec.Period = settlement.Period(period)
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}

func writeBack(dst *settlement.SettlementRecord, stored settlement.SettlementRecord) {
	dst.ID = stored.ID
	dst.Version = stored.Version
	dst.CreatedAt = stored.CreatedAt.UTC()
	dst.UpdatedAt = stored.UpdatedAt.UTC()
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t.UTC()
}
