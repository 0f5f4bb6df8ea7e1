package application

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	settlement "cng-console/internal/settlement/domain"
	"cng-console/internal/settlement/infrastructure/memory"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type staticStations struct {
	stations []settlement.Station
	err      error
}

func (s staticStations) ListStations(ctx context.Context) ([]settlement.Station, error) {
	_ = ctx
	if s.err != nil {
		return nil, s.err
	}
	return s.stations, nil
}

// flakyRepository wraps a repository and fails selected calls.
type flakyRepository struct {
	settlement.Repository

	mu           sync.Mutex
	failList     bool
	failPeriods  map[settlement.Period]bool
	failStations map[string]bool
}

func (r *flakyRepository) ListByPeriod(ctx context.Context, period settlement.Period) ([]settlement.SettlementRecord, error) {
	r.mu.Lock()
	fail := r.failList || r.failPeriods[period]
	r.mu.Unlock()
	if fail {
		return nil, errors.New("connection refused")
	}
	return r.Repository.ListByPeriod(ctx, period)
}

func (r *flakyRepository) Insert(ctx context.Context, record *settlement.SettlementRecord) (string, error) {
	if r.shouldFail(record.StationID) {
		return "", errors.New("insert rejected")
	}
	return r.Repository.Insert(ctx, record)
}

func (r *flakyRepository) Update(ctx context.Context, id string, record *settlement.SettlementRecord) error {
	if r.shouldFail(record.StationID) {
		return errors.New("update rejected")
	}
	return r.Repository.Update(ctx, id, record)
}

func (r *flakyRepository) shouldFail(stationID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failStations[stationID]
}

func (r *flakyRepository) failPeriod(period settlement.Period) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failPeriods = map[settlement.Period]bool{period: true}
}

func (r *flakyRepository) heal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failList = false
	r.failPeriods = nil
	r.failStations = nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []PeriodCommitted
	err    error
}

func (p *recordingPublisher) PublishPeriodCommitted(ctx context.Context, event PeriodCommitted) error {
	_ = ctx
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

var testStations = []settlement.Station{
	{ID: "st-1", Name: "North"},
	{ID: "st-2", Name: "South"},
}

func newTestService(t *testing.T, repo settlement.Repository, opts ...PeriodServiceOption) *PeriodService {
	t.Helper()
	base := []PeriodServiceOption{
		WithClock(fixedClock{now: time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)}),
		WithLogger(log.New(io.Discard, "", 0)),
	}
	svc, err := NewPeriodService(repo, staticStations{stations: testStations}, append(base, opts...)...)
	require.NoError(t, err)
	return svc
}

func TestNewPeriodService_RejectsNilDependencies(t *testing.T) {
	_, err := NewPeriodService(nil, staticStations{})
	assert.Error(t, err)
	_, err = NewPeriodService(memory.NewSettlementRepository(), nil)
	assert.Error(t, err)
}

func TestPeriodService_CarryForwardScenario(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSettlementRepository()
	_, err := repo.Insert(ctx, &settlement.SettlementRecord{
		StationID: "st-1", StationName: "North", Period: "2024-01",
		GasPrice: 50, EndBalance: 2000,
	})
	require.NoError(t, err)

	svc := newTestService(t, repo)
	ws, err := svc.Open(ctx, "2024-02")
	require.NoError(t, err)
	require.Len(t, ws.Records, 2)

	north := ws.Find("st-1")
	require.NotNil(t, north)
	assert.True(t, north.HasPriorData)
	assert.Equal(t, 2000.0, north.StartBalance)
	assert.Equal(t, 50.0, north.GasPrice)
	assert.Equal(t, 2000.0, north.EndBalance)

	south := ws.Find("st-2")
	require.NotNil(t, south)
	assert.False(t, south.HasPriorData)
	assert.Zero(t, south.StartBalance)

	result, err := ws.Apply(
		settlement.Edit{StationID: "st-1", Field: settlement.FieldTotalAccruedM3, Value: 80},
		settlement.Edit{StationID: "st-1", Field: settlement.FieldStartBalance, Value: 999},
		settlement.Edit{StationID: "st-1", Field: settlement.FieldPaid, Value: 4000},
	)
	require.NoError(t, err)
	assert.Len(t, result.Skipped, 1)
	assert.Equal(t, 4000.0, north.TotalAccruedAmount)
	assert.Equal(t, 2000.0, north.StartBalance)
	assert.Equal(t, 2000.0, north.EndBalance)

	require.NoError(t, svc.Commit(ctx, ws))
	assert.NotEmpty(t, north.ID)
	assert.Equal(t, time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC), north.CreatedAt)

	reopened, err := svc.Open(ctx, "2024-02")
	require.NoError(t, err)
	again := reopened.Find("st-1")
	require.NotNil(t, again)
	assert.Equal(t, north.ID, again.ID)
	assert.Equal(t, 80.0, again.TotalAccruedM3)
	assert.Equal(t, 4000.0, again.Paid)
	assert.Equal(t, 2000.0, again.EndBalance)

	require.NoError(t, svc.Commit(ctx, reopened))
	inserts, updates := repo.Writes()
	assert.Equal(t, 3, inserts)
	assert.Equal(t, 2, updates)
	assert.Equal(t, 3, repo.Count())
}

func TestPeriodService_OpenDegradesOnLoadFailure(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewSettlementRepository()
	_, err := inner.Insert(ctx, &settlement.SettlementRecord{StationID: "st-1", Period: "2024-01", EndBalance: 500, GasPrice: 10})
	require.NoError(t, err)
	repo := &flakyRepository{Repository: inner, failList: true}

	svc := newTestService(t, repo)
	ws, err := svc.Open(ctx, "2024-02")
	require.NoError(t, err)
	require.Len(t, ws.Records, 2)
	for _, rec := range ws.Records {
		assert.False(t, rec.HasPriorData)
		assert.Zero(t, rec.StartBalance)
		assert.Zero(t, rec.GasPrice)
		assert.False(t, rec.IsPersisted())
	}
}

func TestPeriodService_OpenFailsWithoutStations(t *testing.T) {
	svc, err := NewPeriodService(memory.NewSettlementRepository(), staticStations{err: errors.New("directory down")},
		WithLogger(log.New(io.Discard, "", 0)))
	require.NoError(t, err)

	_, err = svc.Open(context.Background(), "2024-02")
	assert.EqualError(t, err, "directory down")
}

func TestPeriodService_OpenRejectsInvalidPeriod(t *testing.T) {
	svc := newTestService(t, memory.NewSettlementRepository())
	_, err := svc.Open(context.Background(), "2024-2")
	assert.ErrorIs(t, err, settlement.ErrInvalidPeriod)
}

func TestPeriodService_OpenFiltersStations(t *testing.T) {
	svc := newTestService(t, memory.NewSettlementRepository())
	ws, err := svc.Open(context.Background(), "2024-02", "st-2", "st-unknown")
	require.NoError(t, err)
	assert.Equal(t, []string{"st-2"}, ws.StationIDs())
}

func TestPeriodService_CommitPartialFailure(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewSettlementRepository()
	repo := &flakyRepository{Repository: inner, failStations: map[string]bool{"st-2": true}}
	publisher := &recordingPublisher{}
	svc := newTestService(t, repo, WithPublisher(publisher))

	ws, err := svc.Open(ctx, "2024-02")
	require.NoError(t, err)
	_, err = ws.Apply(
		settlement.Edit{StationID: "st-1", Field: settlement.FieldPaid, Value: 100},
		settlement.Edit{StationID: "st-2", Field: settlement.FieldPaid, Value: 200},
	)
	require.NoError(t, err)

	err = svc.Commit(ctx, ws)
	require.Error(t, err)
	assert.ErrorIs(t, err, settlement.ErrSaveFailed)
	var saveErr *SaveError
	require.True(t, errors.As(err, &saveErr))
	assert.Equal(t, []string{"st-2"}, saveErr.FailedStations())
	assert.Equal(t, 1, saveErr.Saved)
	assert.Empty(t, publisher.events)

	assert.True(t, ws.Find("st-1").IsPersisted())
	assert.False(t, ws.Find("st-2").IsPersisted())
	assert.Equal(t, 1, inner.Count())

	repo.heal()
	require.NoError(t, svc.Commit(ctx, ws))
	assert.Equal(t, 2, inner.Count())
	inserts, updates := inner.Writes()
	assert.Equal(t, 2, inserts)
	assert.Equal(t, 1, updates)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, 1, publisher.events[0].Inserted)
	assert.Equal(t, 1, publisher.events[0].Updated)
}

func TestPeriodService_CommitPublishes(t *testing.T) {
	ctx := context.Background()
	publisher := &recordingPublisher{err: errors.New("broker unavailable")}
	svc := newTestService(t, memory.NewSettlementRepository(), WithPublisher(publisher), WithWriteLimit(1))

	ws, _, err := svc.Save(ctx, "2024-02", nil, []settlement.Edit{
		{StationID: "st-1", Field: settlement.FieldGasPrice, Value: 50},
		{StationID: "st-1", Field: settlement.FieldTotalAccruedM3, Value: 10},
		{StationID: "st-2", Field: settlement.FieldPaid, Value: 30},
	})
	require.NoError(t, err)
	require.Len(t, publisher.events, 1)

	event := publisher.events[0]
	assert.Equal(t, settlement.Period("2024-02"), event.Period)
	assert.Equal(t, ws.StationIDs(), event.StationIDs)
	assert.Equal(t, 2, event.Inserted)
	assert.Equal(t, 500.0, event.TotalAccruedAmount)
	assert.Equal(t, 30.0, event.TotalPaid)
}

func TestPeriodService_PreviewDoesNotWrite(t *testing.T) {
	repo := memory.NewSettlementRepository()
	svc := newTestService(t, repo)

	ws, result, err := svc.Preview(context.Background(), "2024-02", nil, []settlement.Edit{
		{StationID: "st-2", Field: settlement.FieldStartBalance, Value: 150},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, 150.0, ws.Find("st-2").EndBalance)
	assert.Zero(t, repo.Count())

	_, _, err = svc.Preview(context.Background(), "2024-02", nil, []settlement.Edit{
		{StationID: "st-9", Field: settlement.FieldPaid, Value: 1},
	})
	assert.ErrorIs(t, err, settlement.ErrUnknownStation)
}

func TestPeriodService_History(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSettlementRepository()
	for _, period := range []settlement.Period{"2024-02", "2023-11", "2024-01"} {
		_, err := repo.Insert(ctx, &settlement.SettlementRecord{StationID: "st-1", Period: period})
		require.NoError(t, err)
	}
	svc := newTestService(t, repo)

	history, err := svc.History(ctx, "st-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, settlement.Period("2023-11"), history[0].Period)
	assert.Equal(t, settlement.Period("2024-02"), history[2].Period)

	_, err = svc.History(ctx, "")
	assert.ErrorIs(t, err, settlement.ErrEmptyStationID)
}

func TestPeriodService_CheckContinuity(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSettlementRepository()
	for _, rec := range []settlement.SettlementRecord{
		{StationID: "st-1", Period: "2023-12", EndBalance: 100},
		{StationID: "st-1", Period: "2024-01", StartBalance: 100, EndBalance: 300},
		{StationID: "st-1", Period: "2024-02", StartBalance: 250, EndBalance: 250},
	} {
		rec := rec
		_, err := repo.Insert(ctx, &rec)
		require.NoError(t, err)
	}
	svc := newTestService(t, repo)

	breaks, err := svc.CheckContinuity(ctx, "2024-01", "2024-02")
	require.NoError(t, err)
	require.Len(t, breaks, 1)
	assert.Equal(t, settlement.Period("2024-02"), breaks[0].Period)
	assert.Equal(t, -50.0, breaks[0].Delta)

	_, err = svc.CheckContinuity(ctx, "2024-03", "2024-01")
	assert.ErrorIs(t, err, settlement.ErrInvalidRange)
	_, err = svc.CheckContinuity(ctx, "bad", "2024-01")
	assert.ErrorIs(t, err, settlement.ErrInvalidPeriod)
}

func TestPeriodService_SaveRefusesExistingLoadFailure(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewSettlementRepository()
	repo := &flakyRepository{Repository: inner}
	svc := newTestService(t, repo)

	_, _, err := svc.Save(ctx, "2024-02", nil, []settlement.Edit{
		{StationID: "st-2", Field: settlement.FieldStartBalance, Value: 0},
		{StationID: "st-2", Field: settlement.FieldTotalAccruedM3, Value: 300},
		{StationID: "st-2", Field: settlement.FieldGasPrice, Value: 40},
		{StationID: "st-2", Field: settlement.FieldPaid, Value: 7000},
	})
	require.NoError(t, err)

	repo.failPeriod("2024-02")
	_, _, err = svc.Save(ctx, "2024-02", nil, []settlement.Edit{
		{StationID: "st-1", Field: settlement.FieldPaid, Value: 10},
	})
	assert.ErrorIs(t, err, settlement.ErrLoadFailed)

	stored, err := inner.ListByPeriod(ctx, "2024-02")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, rec := range stored {
		if rec.StationID != "st-2" {
			assert.Zero(t, rec.Paid)
			continue
		}
		assert.Equal(t, 300.0, rec.TotalAccruedM3)
		assert.Equal(t, 40.0, rec.GasPrice)
		assert.Equal(t, 7000.0, rec.Paid)
		assert.Equal(t, 5000.0, rec.EndBalance)
		assert.Equal(t, 1, rec.Version)
	}
}

func TestPeriodService_SaveRefusesPriorLoadFailure(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewSettlementRepository()
	_, err := inner.Insert(ctx, &settlement.SettlementRecord{StationID: "st-1", StationName: "North", Period: "2024-01", EndBalance: 800})
	require.NoError(t, err)
	repo := &flakyRepository{Repository: inner}
	repo.failPeriod("2024-01")
	svc := newTestService(t, repo)

	_, _, err = svc.Save(ctx, "2024-02", nil, nil)
	assert.ErrorIs(t, err, settlement.ErrLoadFailed)
	assert.Equal(t, 1, inner.Count())

	repo.heal()
	ws, _, err := svc.Save(ctx, "2024-02", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 800.0, ws.Find("st-1").StartBalance)
}

func TestPeriodService_SaveVersionsRejectsStaleClient(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSettlementRepository(memory.WithOptimisticLock(true))
	svc := newTestService(t, repo)

	_, _, err := svc.Save(ctx, "2024-02", []string{"st-1"}, []settlement.Edit{
		{StationID: "st-1", Field: settlement.FieldPaid, Value: 5},
	})
	require.NoError(t, err)

	loaded, err := svc.Open(ctx, "2024-02", "st-1")
	require.NoError(t, err)
	rec := loaded.Find("st-1")
	seen := []settlement.RecordVersion{{StationID: "st-1", ID: rec.ID, Version: rec.Version}}

	_, _, err = svc.SaveVersions(ctx, "2024-02", []string{"st-1"}, []settlement.Edit{
		{StationID: "st-1", Field: settlement.FieldPaid, Value: 20},
	}, seen)
	require.NoError(t, err)

	_, _, err = svc.SaveVersions(ctx, "2024-02", []string{"st-1"}, []settlement.Edit{
		{StationID: "st-1", Field: settlement.FieldPaid, Value: 30},
	}, seen)
	assert.ErrorIs(t, err, settlement.ErrVersionConflict)
	var conflict *settlement.VersionConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, []string{"st-1"}, conflict.Stations)

	stored, err := repo.ListByPeriod(ctx, "2024-02")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 20.0, stored[0].Paid)
	assert.Equal(t, 2, stored[0].Version)
}

func TestPeriodService_OpenKeepsStoredStationName(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSettlementRepository()
	_, err := repo.Insert(ctx, &settlement.SettlementRecord{StationID: "st-1", StationName: "North (old)", Period: "2024-02"})
	require.NoError(t, err)
	svc := newTestService(t, repo)

	ws, err := svc.Open(ctx, "2024-02")
	require.NoError(t, err)
	assert.Equal(t, "North (old)", ws.Find("st-1").StationName)
	assert.Equal(t, "South", ws.Find("st-2").StationName)

	require.NoError(t, svc.Commit(ctx, ws))
	stored, err := repo.ListByPeriod(ctx, "2024-02")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "North (old)", stored[0].StationName)
}
