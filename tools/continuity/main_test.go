package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	settlement "cng-console/internal/settlement/domain"
)

func TestWriteBreaks(t *testing.T) {
	var buf bytes.Buffer
	err := writeBreaks(&buf, []settlement.ContinuityBreak{{
		StationID:    "st-1",
		StationName:  "North",
		Period:       "2024-03",
		PriorEnd:     100,
		StartBalance: 90.5,
		Delta:        -9.5,
	}})
	require.NoError(t, err)
	require.Equal(t,
		"station_id,station_name,period,prior_end_balance,start_balance,delta\n"+
			"st-1,North,2024-03,100.00,90.50,-9.50\n",
		buf.String())
}

func TestWriteBreaksEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeBreaks(&buf, nil))
	require.Equal(t, "station_id,station_name,period,prior_end_balance,start_balance,delta\n", buf.String())
}
