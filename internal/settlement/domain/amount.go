package settlement

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseAmount parses user numeric input leniently.
// Blank, non-numeric, NaN and infinite input all yield 0.
func ParseAmount(raw string) float64 {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0
	}
	value = strings.ReplaceAll(value, " ", "")
	value = strings.ReplaceAll(value, "\u00a0", "")
	value = normalizeSeparators(value)
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return finite(parsed)
}

// normalizeSeparators turns the last of "," and "." into the decimal point
// when both occur and drops the other as grouping. A lone "," is a decimal
// separator.
func normalizeSeparators(value string) string {
	comma := strings.LastIndex(value, ",")
	dot := strings.LastIndex(value, ".")
	switch {
	case comma < 0:
		return value
	case dot < 0:
		return strings.ReplaceAll(value, ",", ".")
	case comma > dot:
		value = strings.ReplaceAll(value, ".", "")
		return strings.Replace(value, ",", ".", 1)
	default:
		return strings.ReplaceAll(value, ",", "")
	}
}

// Amount is a numeric form value that accepts a JSON number or string.
type Amount float64

// UnmarshalJSON implements lenient decoding.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var number float64
	if err := json.Unmarshal(data, &number); err == nil {
		*a = Amount(finite(number))
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*a = Amount(ParseAmount(text))
		return nil
	}
	*a = 0
	return nil
}

// Float64 returns the raw value.
func (a Amount) Float64() float64 { return float64(a) }

func finite(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}
