package settlement

// ReportTotals sums the money and volume columns of a period report.
type ReportTotals struct {
	StartBalance       float64 `json:"startBalance"`
	TotalAccruedM3     float64 `json:"totalAccruedM3"`
	TotalAccruedAmount float64 `json:"totalAccruedAmount"`
	Paid               float64 `json:"paid"`
	EndBalance         float64 `json:"endBalance"`
}

// PeriodReport is the committed state of one period.
type PeriodReport struct {
	Period Period             `json:"period"`
	Rows   []SettlementRecord `json:"rows"`
	Totals ReportTotals       `json:"totals"`
}

// BuildPeriodReport totals the given records.
func BuildPeriodReport(period Period, records []SettlementRecord) *PeriodReport {
	report := &PeriodReport{Period: period, Rows: make([]SettlementRecord, 0, len(records))}
	for _, rec := range records {
		report.Rows = append(report.Rows, rec)
		report.Totals.StartBalance += rec.StartBalance
		report.Totals.TotalAccruedM3 += rec.TotalAccruedM3
		report.Totals.TotalAccruedAmount += rec.TotalAccruedAmount
		report.Totals.Paid += rec.Paid
		report.Totals.EndBalance += rec.EndBalance
	}
	return report
}
