package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCountersAfterInit(t *testing.T) {
	Init(nil, nil)

	before := testutil.ToFloat64(settlementWriteTotal.WithLabelValues(WriteInsert, ResultSuccess))
	IncSettlementWrite(WriteInsert, "")
	require.Equal(t, before+1, testutil.ToFloat64(settlementWriteTotal.WithLabelValues(WriteInsert, ResultSuccess)))

	before = testutil.ToFloat64(settlementLoadTotal.WithLabelValues("unknown", ResultError))
	IncSettlementLoad("", ResultError)
	require.Equal(t, before+1, testutil.ToFloat64(settlementLoadTotal.WithLabelValues("unknown", ResultError)))

	before = testutil.ToFloat64(stationCacheTotal.WithLabelValues(CacheMiss))
	IncStationCache(CacheMiss)
	require.Equal(t, before+1, testutil.ToFloat64(stationCacheTotal.WithLabelValues(CacheMiss)))

	before = testutil.ToFloat64(settlementCommitTotal.WithLabelValues(ResultError))
	ObserveSettlementCommit(ResultError, 10*time.Millisecond)
	require.Equal(t, before+1, testutil.ToFloat64(settlementCommitTotal.WithLabelValues(ResultError)))

	ObserveReportExport("pdf", ResultSuccess, time.Millisecond)
	require.Equal(t, 1, testutil.CollectAndCount(reportExportLatency))
}
