package settlement

import "fmt"

// Field names an editable settlement input.
type Field string

const (
	FieldGasPrice        Field = "gasPrice"
	FieldTotalAccruedM3  Field = "totalAccruedM3"
	FieldPaid            Field = "paid"
	FieldStartBalance    Field = "startBalance"
	FieldLimit           Field = "limit"
	FieldMeterReading    Field = "meterReading"
	FieldConfigError     Field = "configError"
	FieldLowPressure     Field = "lowPressure"
	FieldActCalculation  Field = "actCalculation"
	FieldMeterDifference Field = "meterDifference"
	FieldOther           Field = "other"
)

// Edit is one user change to one field of one station's record.
type Edit struct {
	StationID string `json:"stationId"`
	Field     Field  `json:"field"`
	Value     Amount `json:"value"`
}

// ApplyResult reports edits that were accepted but had no effect.
type ApplyResult struct {
	Skipped []Edit `json:"skipped,omitempty"`
}

// Apply runs edits in order against the working set. A start-balance edit
// on a station with prior data is skipped, not rejected.
func (ws *WorkingSet) Apply(edits ...Edit) (ApplyResult, error) {
	var result ApplyResult
	for i, edit := range edits {
		rec := ws.Find(edit.StationID)
		if rec == nil {
			return result, fmt.Errorf("edit %d: %w: %s", i, ErrUnknownStation, edit.StationID)
		}
		applied, err := rec.apply(edit.Field, edit.Value.Float64())
		if err != nil {
			return result, fmt.Errorf("edit %d: %w", i, err)
		}
		if !applied {
			result.Skipped = append(result.Skipped, edit)
		}
	}
	return result, nil
}

func (r *WorkingRecord) apply(field Field, value float64) (bool, error) {
	value = finite(value)
	switch field {
	case FieldGasPrice:
		r.RecomputePrice(value)
	case FieldTotalAccruedM3:
		r.RecomputeVolume(value)
	case FieldPaid:
		r.RecomputePayment(value)
	case FieldStartBalance:
		return r.RecomputeStartBalance(value, r.HasPriorData), nil
	case FieldLimit:
		r.Limit = value
	case FieldMeterReading:
		r.MeterReading = value
	case FieldConfigError:
		r.ConfigError = value
	case FieldLowPressure:
		r.LowPressure = value
	case FieldActCalculation:
		r.ActCalculation = value
	case FieldMeterDifference:
		r.MeterDifference = value
	case FieldOther:
		r.Other = value
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return true, nil
}
