package masterdata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	masterdata "cng-console/internal/masterdata/domain"
	settlement "cng-console/internal/settlement/domain"
)

type listerFunc func(ctx context.Context) ([]masterdata.Station, error)

func (f listerFunc) ListStations(ctx context.Context) ([]masterdata.Station, error) { return f(ctx) }

func TestStationDirectory_ListStations(t *testing.T) {
	dir, err := NewStationDirectory(listerFunc(func(context.Context) ([]masterdata.Station, error) {
		return []masterdata.Station{
			{ID: "st-1", Name: "North", Timezone: "UTC", Region: "N"},
			{ID: "st-2", Name: "South", Timezone: "UTC"},
		}, nil
	}))
	require.NoError(t, err)

	stations, err := dir.ListStations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []settlement.Station{{ID: "st-1", Name: "North"}, {ID: "st-2", Name: "South"}}, stations)
}

func TestStationDirectory_Errors(t *testing.T) {
	_, err := NewStationDirectory(nil)
	assert.Error(t, err)

	dir, err := NewStationDirectory(listerFunc(func(context.Context) ([]masterdata.Station, error) {
		return nil, errors.New("boom")
	}))
	require.NoError(t, err)
	_, err = dir.ListStations(context.Background())
	assert.EqualError(t, err, "boom")
}
