package settlement

import "time"

// SettlementRecord is one station's gas account for one period.
type SettlementRecord struct {
	ID          string `json:"id,omitempty"`
	StationID   string `json:"stationId"`
	StationName string `json:"stationName"`
	Period      Period `json:"period"`

	GasPrice     float64 `json:"gasPrice"`
	StartBalance float64 `json:"startBalance"`
	Limit        float64 `json:"limit"`

	TotalAccruedM3 float64 `json:"totalAccruedM3"`
	Breakdown

	TotalAccruedAmount float64 `json:"totalAccruedAmount"`
	Paid               float64 `json:"paid"`
	EndBalance         float64 `json:"endBalance"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Breakdown itemizes the accrued volume. It is stored as entered and is
// not reconciled against TotalAccruedM3.
type Breakdown struct {
	MeterReading    float64 `json:"meterReading"`
	ConfigError     float64 `json:"configError"`
	LowPressure     float64 `json:"lowPressure"`
	ActCalculation  float64 `json:"actCalculation"`
	MeterDifference float64 `json:"meterDifference"`
	Other           float64 `json:"other"`
}

// NewRecord seeds a fresh record for a station/period from the prior balance.
// Accruals and payment start at zero so the end balance equals the start balance.
func NewRecord(station Station, period Period, prior PriorBalance) SettlementRecord {
	rec := SettlementRecord{
		StationID:    station.ID,
		StationName:  station.Name,
		Period:       period,
		GasPrice:     prior.GasPrice,
		StartBalance: prior.EndBalance,
	}
	rec.recompute()
	return rec
}

// IsPersisted reports whether the record has a repository identifier.
func (r SettlementRecord) IsPersisted() bool { return r.ID != "" }

// Validate checks the identity fields.
func (r SettlementRecord) Validate() error {
	if r.StationID == "" {
		return ErrEmptyStationID
	}
	if _, err := ParsePeriod(string(r.Period)); err != nil {
		return err
	}
	return nil
}

// RecomputeVolume sets the accrued volume and refreshes the derived totals.
func (r *SettlementRecord) RecomputeVolume(totalAccruedM3 float64) {
	r.TotalAccruedM3 = finite(totalAccruedM3)
	r.recompute()
}

// RecomputePrice sets the gas price and refreshes the derived totals.
func (r *SettlementRecord) RecomputePrice(gasPrice float64) {
	r.GasPrice = finite(gasPrice)
	r.recompute()
}

// RecomputePayment sets the paid amount and refreshes the end balance.
func (r *SettlementRecord) RecomputePayment(paid float64) {
	r.Paid = finite(paid)
	r.EndBalance = r.StartBalance + r.TotalAccruedAmount - r.Paid
}

// RecomputeStartBalance sets the opening balance when the station has no
// prior-period record. It reports false and leaves the record untouched
// when the start balance is carried forward.
func (r *SettlementRecord) RecomputeStartBalance(startBalance float64, hasPriorData bool) bool {
	if hasPriorData {
		return false
	}
	r.StartBalance = finite(startBalance)
	r.EndBalance = r.StartBalance + r.TotalAccruedAmount - r.Paid
	return true
}

func (r *SettlementRecord) recompute() {
	r.TotalAccruedAmount = r.TotalAccruedM3 * r.GasPrice
	r.EndBalance = r.StartBalance + r.TotalAccruedAmount - r.Paid
}

// Clone returns a detached copy.
func (r *SettlementRecord) Clone() *SettlementRecord {
	if r == nil {
		return nil
	}
	copy := *r
	return &copy
}
