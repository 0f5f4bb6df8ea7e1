package settlement

import (
	"math"
	"sort"
)

// ContinuityTolerance is the largest start/end balance gap still treated as equal.
const ContinuityTolerance = 0.005

// ContinuityBreak is a period whose start balance does not match the
// previous period's end balance for the same station.
type ContinuityBreak struct {
	StationID    string  `json:"stationId"`
	StationName  string  `json:"stationName"`
	Period       Period  `json:"period"`
	PriorEnd     float64 `json:"priorEndBalance"`
	StartBalance float64 `json:"startBalance"`
	Delta        float64 `json:"delta"`
}

// FindContinuityBreaks checks every period in from..to against the period
// before it. Stations missing either side of a pair are not reported.
func FindContinuityBreaks(records []SettlementRecord, from, to Period) []ContinuityBreak {
	index := make(map[string]SettlementRecord, len(records))
	stations := make(map[string]struct{})
	for _, rec := range records {
		index[recordIndexKey(rec.StationID, rec.Period)] = rec
		stations[rec.StationID] = struct{}{}
	}
	ids := make([]string, 0, len(stations))
	for id := range stations {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var breaks []ContinuityBreak
	for _, id := range ids {
		for _, period := range PeriodsBetween(from, to) {
			current, ok := index[recordIndexKey(id, period)]
			if !ok {
				continue
			}
			prior, ok := index[recordIndexKey(id, period.Previous())]
			if !ok {
				continue
			}
			delta := current.StartBalance - prior.EndBalance
			if math.Abs(delta) <= ContinuityTolerance {
				continue
			}
			breaks = append(breaks, ContinuityBreak{
				StationID:    id,
				StationName:  current.StationName,
				Period:       period,
				PriorEnd:     prior.EndBalance,
				StartBalance: current.StartBalance,
				Delta:        delta,
			})
		}
	}
	return breaks
}

func recordIndexKey(stationID string, period Period) string {
	return stationID + "|" + string(period)
}
