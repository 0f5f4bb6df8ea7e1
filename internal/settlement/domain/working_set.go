package settlement

// Station is the part of the station directory a settlement needs.
type Station struct {
	ID   string `json:"id"`
	Name string `json:"stationName"`
}

// PriorBalance is what a station carries in from the previous period.
type PriorBalance struct {
	EndBalance float64 `json:"endBalance"`
	GasPrice   float64 `json:"gasPrice"`
}

// WorkingRecord is a record being edited plus whether its start balance is
// carried forward from a prior-period record.
type WorkingRecord struct {
	SettlementRecord
	HasPriorData bool `json:"hasPriorData"`
}

// WorkingSet is the in-memory edit session for one period.
type WorkingSet struct {
	Period  Period           `json:"period"`
	Records []*WorkingRecord `json:"records"`
}

// BuildWorkingSet seeds one working record per station. Existing records are
// reused verbatim; other stations get a fresh record seeded from prior.
func BuildWorkingSet(stations []Station, prior map[string]PriorBalance, existing map[string]SettlementRecord, period Period) *WorkingSet {
	ws := &WorkingSet{Period: period, Records: make([]*WorkingRecord, 0, len(stations))}
	for _, station := range stations {
		balance, hasPrior := prior[station.ID]
		if rec, ok := existing[station.ID]; ok {
			ws.Records = append(ws.Records, &WorkingRecord{SettlementRecord: rec, HasPriorData: hasPrior})
			continue
		}
		ws.Records = append(ws.Records, &WorkingRecord{
			SettlementRecord: NewRecord(station, period, balance),
			HasPriorData:     hasPrior,
		})
	}
	return ws
}

// Find returns the working record for a station.
func (ws *WorkingSet) Find(stationID string) *WorkingRecord {
	if ws == nil {
		return nil
	}
	for _, rec := range ws.Records {
		if rec.StationID == stationID {
			return rec
		}
	}
	return nil
}

// StationIDs returns the station ids in working-set order.
func (ws *WorkingSet) StationIDs() []string {
	if ws == nil {
		return nil
	}
	ids := make([]string, 0, len(ws.Records))
	for _, rec := range ws.Records {
		ids = append(ids, rec.StationID)
	}
	return ids
}
