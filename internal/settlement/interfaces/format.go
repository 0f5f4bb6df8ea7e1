package interfaces

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	settlement "cng-console/internal/settlement/domain"
)

const (
	moneyScale  = 2
	volumeScale = 0
)

// Formatter renders amounts for display. Stored values are never rounded.
type Formatter struct {
	printer  *message.Printer
	currency string
}

// NewFormatter builds a formatter for a BCP 47 locale and an ISO 4217 currency.
// An empty currency omits the unit.
func NewFormatter(locale, currencyCode string) (*Formatter, error) {
	tag := language.English
	if strings.TrimSpace(locale) != "" {
		parsed, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("formatter: locale %q: %w", locale, err)
		}
		tag = parsed
	}
	code := ""
	if strings.TrimSpace(currencyCode) != "" {
		unit, err := currency.ParseISO(currencyCode)
		if err != nil {
			return nil, fmt.Errorf("formatter: currency %q: %w", currencyCode, err)
		}
		code = unit.String()
	}
	return &Formatter{printer: message.NewPrinter(tag), currency: code}, nil
}

// Money formats v half-up to two decimals with locale grouping.
func (f *Formatter) Money(v float64) string {
	out := f.printer.Sprint(number.Decimal(roundHalfUp(v, moneyScale), number.Scale(moneyScale)))
	if f.currency == "" {
		return out
	}
	return out + " " + f.currency
}

// Volume formats cubic meters without decimals.
func (f *Formatter) Volume(v float64) string {
	return f.printer.Sprint(number.Decimal(roundHalfUp(v, volumeScale), number.Scale(volumeScale)))
}

// Price formats a gas price per cubic meter.
func (f *Formatter) Price(v float64) string {
	return f.Money(v)
}

// FormattedRecord holds the display strings of one record.
type FormattedRecord struct {
	GasPrice           string `json:"gasPrice"`
	StartBalance       string `json:"startBalance"`
	Limit              string `json:"limit"`
	TotalAccruedM3     string `json:"totalAccruedM3"`
	TotalAccruedAmount string `json:"totalAccruedAmount"`
	Paid               string `json:"paid"`
	EndBalance         string `json:"endBalance"`
}

// Record formats a settlement record.
func (f *Formatter) Record(rec settlement.SettlementRecord) FormattedRecord {
	return FormattedRecord{
		GasPrice:           f.Price(rec.GasPrice),
		StartBalance:       f.Money(rec.StartBalance),
		Limit:              f.Volume(rec.Limit),
		TotalAccruedM3:     f.Volume(rec.TotalAccruedM3),
		TotalAccruedAmount: f.Money(rec.TotalAccruedAmount),
		Paid:               f.Money(rec.Paid),
		EndBalance:         f.Money(rec.EndBalance),
	}
}

// roundHalfUp rounds the shortest decimal representation of v, so 2.675
// becomes 2.68 rather than the binary-float 2.67.
func roundHalfUp(v float64, places int32) float64 {
	d, err := new(apd.Decimal).SetFloat64(v)
	if err != nil {
		return v
	}
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Rounding = apd.RoundHalfUp
	var rounded apd.Decimal
	if _, err := ctx.Quantize(&rounded, d, -places); err != nil {
		return v
	}
	out, err := rounded.Float64()
	if err != nil {
		return v
	}
	return out
}
