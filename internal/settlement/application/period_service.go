package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"cng-console/internal/observability/metrics"
	settlement "cng-console/internal/settlement/domain"
)

const (
	loadSourcePrior    = "prior"
	loadSourceExisting = "existing"

	maxContinuityPeriods = 120
)

// PeriodService opens, edits and commits the settlement records of a period.
type PeriodService struct {
	repo       settlement.Repository
	stations   settlement.StationDirectory
	publisher  SettlementPublisher
	clock      Clock
	logger     *log.Logger
	writeLimit int
}

// PeriodServiceOption configures the service.
type PeriodServiceOption func(*PeriodService)

// WithPublisher sets the committed event publisher.
func WithPublisher(publisher SettlementPublisher) PeriodServiceOption {
	return func(s *PeriodService) {
		s.publisher = publisher
	}
}

// WithClock overrides the clock used for record timestamps.
func WithClock(clock Clock) PeriodServiceOption {
	return func(s *PeriodService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *log.Logger) PeriodServiceOption {
	return func(s *PeriodService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithWriteLimit caps the number of concurrent writes of a commit. Zero means unlimited.
func WithWriteLimit(limit int) PeriodServiceOption {
	return func(s *PeriodService) {
		if limit > 0 {
			s.writeLimit = limit
		}
	}
}

// NewPeriodService constructs the service.
func NewPeriodService(repo settlement.Repository, stations settlement.StationDirectory, opts ...PeriodServiceOption) (*PeriodService, error) {
	if repo == nil {
		return nil, errors.New("period service: nil repository")
	}
	if stations == nil {
		return nil, errors.New("period service: nil station directory")
	}
	s := &PeriodService{
		repo:     repo,
		stations: stations,
		clock:    SystemClock{},
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// LoadPriorBalances returns the end balance and gas price of every station
// in the period before period. A failed query yields an empty map.
func (s *PeriodService) LoadPriorBalances(ctx context.Context, period settlement.Period) map[string]settlement.PriorBalance {
	previous := settlement.ResolvePreviousPeriod(period)
	records, err := s.load(ctx, loadSourcePrior, previous)
	if err != nil {
		s.logger.Printf("settlement: load prior balances failed: period=%s previous=%s err=%v", period, previous, err)
		return map[string]settlement.PriorBalance{}
	}
	return priorBalances(records)
}

// LoadExistingRecords returns the stored records of period keyed by station.
// A failed query yields an empty map.
func (s *PeriodService) LoadExistingRecords(ctx context.Context, period settlement.Period) map[string]settlement.SettlementRecord {
	records, err := s.load(ctx, loadSourceExisting, period)
	if err != nil {
		s.logger.Printf("settlement: load existing records failed: period=%s err=%v", period, err)
		return map[string]settlement.SettlementRecord{}
	}
	return recordsByStation(records)
}

// Open builds the working set of a period. When stationIDs is not empty only
// those stations are included. Failed loads fall back to defaults so the
// operator sees and can correct them before committing.
func (s *PeriodService) Open(ctx context.Context, period settlement.Period, stationIDs ...string) (*settlement.WorkingSet, error) {
	return s.open(ctx, period, stationIDs, false)
}

// open builds a working set. In strict mode any failed load is returned as
// ErrLoadFailed instead of falling back to defaults.
func (s *PeriodService) open(ctx context.Context, period settlement.Period, stationIDs []string, strict bool) (*settlement.WorkingSet, error) {
	period, err := settlement.ParsePeriod(period.String())
	if err != nil {
		return nil, err
	}
	stations, err := s.stations.ListStations(ctx)
	if err != nil {
		return nil, err
	}
	stations = filterStations(stations, stationIDs)

	if !strict {
		prior := s.LoadPriorBalances(ctx, period)
		existing := s.LoadExistingRecords(ctx, period)
		return settlement.BuildWorkingSet(stations, prior, existing, period), nil
	}

	previous := settlement.ResolvePreviousPeriod(period)
	priorRecords, err := s.load(ctx, loadSourcePrior, previous)
	if err != nil {
		return nil, fmt.Errorf("%w: period=%s: %w", settlement.ErrLoadFailed, previous, err)
	}
	existingRecords, err := s.load(ctx, loadSourceExisting, period)
	if err != nil {
		return nil, fmt.Errorf("%w: period=%s: %w", settlement.ErrLoadFailed, period, err)
	}
	return settlement.BuildWorkingSet(stations, priorBalances(priorRecords), recordsByStation(existingRecords), period), nil
}

func (s *PeriodService) load(ctx context.Context, source string, period settlement.Period) ([]settlement.SettlementRecord, error) {
	records, err := s.repo.ListByPeriod(ctx, period)
	if err != nil {
		metrics.IncSettlementLoad(source, metrics.ResultError)
		return nil, err
	}
	metrics.IncSettlementLoad(source, metrics.ResultSuccess)
	return records, nil
}

// Preview opens a period and applies edits without writing anything.
func (s *PeriodService) Preview(ctx context.Context, period settlement.Period, stationIDs []string, edits []settlement.Edit) (*settlement.WorkingSet, settlement.ApplyResult, error) {
	ws, err := s.Open(ctx, period, stationIDs...)
	if err != nil {
		return nil, settlement.ApplyResult{}, err
	}
	result, err := ws.Apply(edits...)
	if err != nil {
		return nil, settlement.ApplyResult{}, err
	}
	return ws, result, nil
}

// Save reloads the period, applies edits and commits every record of the
// working set. Unlike Open it refuses to build on a failed load.
func (s *PeriodService) Save(ctx context.Context, period settlement.Period, stationIDs []string, edits []settlement.Edit) (*settlement.WorkingSet, settlement.ApplyResult, error) {
	return s.SaveVersions(ctx, period, stationIDs, edits, nil)
}

// SaveVersions is Save with a check that the records listed in expected
// still have the id and version the client loaded. A mismatch returns a
// *settlement.VersionConflictError and writes nothing.
func (s *PeriodService) SaveVersions(
	ctx context.Context,
	period settlement.Period,
	stationIDs []string,
	edits []settlement.Edit,
	expected []settlement.RecordVersion,
) (*settlement.WorkingSet, settlement.ApplyResult, error) {
	ws, err := s.open(ctx, period, stationIDs, true)
	if err != nil {
		return nil, settlement.ApplyResult{}, err
	}
	if err := ws.CheckVersions(expected); err != nil {
		return nil, settlement.ApplyResult{}, err
	}
	result, err := ws.Apply(edits...)
	if err != nil {
		return nil, settlement.ApplyResult{}, err
	}
	if err := s.Commit(ctx, ws); err != nil {
		return ws, result, err
	}
	return ws, result, nil
}

// Commit writes every record of ws concurrently and waits for all writes to
// settle. Records with an id are updated, the rest inserted. Successful
// writes are kept even when a sibling write fails, in which case a
// *SaveError is returned.
func (s *PeriodService) Commit(ctx context.Context, ws *settlement.WorkingSet) error {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveSettlementCommit(result, time.Since(start))
	}()

	if ws == nil {
		result = metrics.ResultError
		return errors.New("period service: nil working set")
	}

	now := s.clock.Now().UTC()
	var (
		mu       sync.Mutex
		failed   = make(map[string]error)
		inserted int
		updated  int
	)

	var g errgroup.Group
	if s.writeLimit > 0 {
		g.SetLimit(s.writeLimit)
	}
	for _, rec := range ws.Records {
		rec := rec
		g.Go(func() error {
			op, err := s.write(ctx, rec, now)
			metricResult := metrics.ResultSuccess
			if err != nil {
				metricResult = metrics.ResultError
			}
			metrics.IncSettlementWrite(op, metricResult)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed[rec.StationID] = err
				return err
			}
			if op == metrics.WriteInsert {
				inserted++
			} else {
				updated++
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) > 0 {
		result = metrics.ResultError
		saveErr := &SaveError{Period: ws.Period, Saved: inserted + updated, Failed: failed}
		s.logger.Printf("settlement: commit failed: %v", saveErr)
		return saveErr
	}

	s.logger.Printf("settlement: period committed: period=%s inserted=%d updated=%d", ws.Period, inserted, updated)
	s.publishCommitted(ctx, ws, inserted, updated, now)
	return nil
}

// write persists one working record. The working record only changes when
// the write succeeded.
func (s *PeriodService) write(ctx context.Context, rec *settlement.WorkingRecord, now time.Time) (string, error) {
	record := rec.SettlementRecord
	record.UpdatedAt = now
	if record.IsPersisted() {
		if err := s.repo.Update(ctx, record.ID, &record); err != nil {
			return metrics.WriteUpdate, err
		}
		rec.SettlementRecord = record
		return metrics.WriteUpdate, nil
	}

	record.CreatedAt = now
	id, err := s.repo.Insert(ctx, &record)
	if err != nil {
		return metrics.WriteInsert, err
	}
	record.ID = id
	rec.SettlementRecord = record
	return metrics.WriteInsert, nil
}

func (s *PeriodService) publishCommitted(ctx context.Context, ws *settlement.WorkingSet, inserted, updated int, now time.Time) {
	if s.publisher == nil {
		return
	}
	event := PeriodCommitted{
		Period:     ws.Period,
		StationIDs: ws.StationIDs(),
		Inserted:   inserted,
		Updated:    updated,
		OccurredAt: now,
	}
	for _, rec := range ws.Records {
		event.TotalAccruedAmount += rec.TotalAccruedAmount
		event.TotalPaid += rec.Paid
	}
	if err := s.publisher.PublishPeriodCommitted(ctx, event); err != nil {
		s.logger.Printf("settlement: publish period committed failed: period=%s err=%v", ws.Period, err)
	}
}

// History returns every stored record of a station ordered by period.
func (s *PeriodService) History(ctx context.Context, stationID string) ([]settlement.SettlementRecord, error) {
	if stationID == "" {
		return nil, settlement.ErrEmptyStationID
	}
	return s.repo.ListByStation(ctx, stationID)
}

// CheckContinuity reports every station/period in from..to whose start
// balance differs from the previous period's end balance.
func (s *PeriodService) CheckContinuity(ctx context.Context, from, to settlement.Period) ([]settlement.ContinuityBreak, error) {
	from, err := settlement.ParsePeriod(from.String())
	if err != nil {
		return nil, err
	}
	to, err = settlement.ParsePeriod(to.String())
	if err != nil {
		return nil, err
	}
	periods := settlement.PeriodsBetween(from.Previous(), to)
	if len(periods) == 0 || len(periods) > maxContinuityPeriods+1 {
		return nil, settlement.ErrInvalidRange
	}

	loaded := make([][]settlement.SettlementRecord, len(periods))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, period := range periods {
		i, period := i, period
		g.Go(func() error {
			records, err := s.repo.ListByPeriod(gctx, period)
			if err != nil {
				return err
			}
			loaded[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var records []settlement.SettlementRecord
	for _, batch := range loaded {
		records = append(records, batch...)
	}
	return settlement.FindContinuityBreaks(records, from, to), nil
}

func priorBalances(records []settlement.SettlementRecord) map[string]settlement.PriorBalance {
	result := make(map[string]settlement.PriorBalance, len(records))
	for _, rec := range records {
		result[rec.StationID] = settlement.PriorBalance{
			EndBalance: rec.EndBalance,
			GasPrice:   rec.GasPrice,
		}
	}
	return result
}

func recordsByStation(records []settlement.SettlementRecord) map[string]settlement.SettlementRecord {
	result := make(map[string]settlement.SettlementRecord, len(records))
	for _, rec := range records {
		result[rec.StationID] = rec
	}
	return result
}

func filterStations(stations []settlement.Station, ids []string) []settlement.Station {
	if len(ids) == 0 {
		return stations
	}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	result := make([]settlement.Station, 0, len(ids))
	for _, station := range stations {
		if _, ok := wanted[station.ID]; ok {
			result = append(result, station)
		}
	}
	return result
}
