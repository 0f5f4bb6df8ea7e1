package interfaces

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	settlementapp "cng-console/internal/settlement/application"
	settlement "cng-console/internal/settlement/domain"
)

const (
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

var reportColumns = []string{
	"Station",
	"Gas price",
	"Start balance",
	"Limit (m3)",
	"Accrued (m3)",
	"Accrued amount",
	"Paid",
	"End balance",
}

const utf8FontFamily = "report"

// PDFOptions configures PDF rendering.
type PDFOptions struct {
	// FontPath is a UTF-8 TrueType font. Without it the built-in Arial is
	// used, which only covers cp1252 so Cyrillic text is not rendered.
	FontPath string
}

// Renderers returns the period report renderers keyed by format.
func Renderers(f *Formatter, pdfOpts PDFOptions) map[string]settlementapp.Renderer {
	return map[string]settlementapp.Renderer{
		FormatPDF: {
			ContentType: "application/pdf",
			Extension:   FormatPDF,
			Render: func(report *settlement.PeriodReport) ([]byte, error) {
				return BuildPeriodReportPDF(report, f, pdfOpts)
			},
		},
		FormatXLSX: {
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Extension:   FormatXLSX,
			Render:      BuildPeriodReportXLSX,
		},
		FormatCSV: {
			ContentType: "text/csv; charset=utf-8",
			Extension:   FormatCSV,
			Render:      BuildPeriodReportCSV,
		},
	}
}

// BuildPeriodReportPDF renders a landscape table of the period.
func BuildPeriodReportPDF(report *settlement.PeriodReport, f *Formatter, opts PDFOptions) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	family := "Arial"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if opts.FontPath != "" {
		pdf.AddUTF8Font(utf8FontFamily, "", opts.FontPath)
		pdf.AddUTF8Font(utf8FontFamily, "B", opts.FontPath)
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("report pdf: font %s: %w", opts.FontPath, err)
		}
		family = utf8FontFamily
		tr = func(s string) string { return s }
	}
	pdf.SetFont(family, "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Gas Settlement Report")
	pdf.Ln(10)
	pdf.SetFont(family, "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s", report.Period))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Stations: %d", len(report.Rows)))
	pdf.Ln(8)

	widths := []float64{60, 28, 30, 26, 26, 32, 28, 32}
	pdf.SetFont(family, "B", 9)
	for i, title := range reportColumns {
		pdf.CellFormat(widths[i], 6, title, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(family, "", 9)
	for _, row := range report.Rows {
		cells := []string{
			stationLabel(row),
			f.Price(row.GasPrice),
			f.Money(row.StartBalance),
			f.Volume(row.Limit),
			f.Volume(row.TotalAccruedM3),
			f.Money(row.TotalAccruedAmount),
			f.Money(row.Paid),
			f.Money(row.EndBalance),
		}
		for i, cell := range cells {
			align := "R"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 6, tr(cell), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont(family, "B", 9)
	totals := []string{
		"Total",
		"",
		f.Money(report.Totals.StartBalance),
		"",
		f.Volume(report.Totals.TotalAccruedM3),
		f.Money(report.Totals.TotalAccruedAmount),
		f.Money(report.Totals.Paid),
		f.Money(report.Totals.EndBalance),
	}
	for i, cell := range totals {
		pdf.CellFormat(widths[i], 6, tr(cell), "1", 0, "R", false, 0, "")
	}
	pdf.Ln(-1)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildPeriodReportXLSX renders the period with raw numeric cells.
func BuildPeriodReportXLSX(report *settlement.PeriodReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := "settlement"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(sheet, "A1", "Gas Settlement Report")
	_ = f.SetCellValue(sheet, "A2", "Period")
	_ = f.SetCellValue(sheet, "B2", report.Period.String())

	headerRow := 4
	for i, title := range reportColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, headerRow)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(sheet, cell, title)
	}

	for i, row := range report.Rows {
		values := []any{
			stationLabel(row),
			row.GasPrice,
			row.StartBalance,
			row.Limit,
			row.TotalAccruedM3,
			row.TotalAccruedAmount,
			row.Paid,
			row.EndBalance,
		}
		if err := setRow(f, sheet, headerRow+1+i, values); err != nil {
			return nil, err
		}
	}

	totalRow := headerRow + 1 + len(report.Rows)
	if err := setRow(f, sheet, totalRow, []any{
		"Total",
		nil,
		report.Totals.StartBalance,
		nil,
		report.Totals.TotalAccruedM3,
		report.Totals.TotalAccruedAmount,
		report.Totals.Paid,
		report.Totals.EndBalance,
	}); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildPeriodReportCSV renders one line per station with raw values.
func BuildPeriodReportCSV(report *settlement.PeriodReport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	_ = writer.Write([]string{
		"station_id",
		"station_name",
		"period",
		"gas_price",
		"start_balance",
		"limit_m3",
		"total_accrued_m3",
		"meter_reading",
		"config_error",
		"low_pressure",
		"act_calculation",
		"meter_difference",
		"other",
		"total_accrued_amount",
		"paid",
		"end_balance",
		"version",
	})
	for _, row := range report.Rows {
		_ = writer.Write([]string{
			row.StationID,
			row.StationName,
			row.Period.String(),
			formatFloat(row.GasPrice),
			formatFloat(row.StartBalance),
			formatFloat(row.Limit),
			formatFloat(row.TotalAccruedM3),
			formatFloat(row.MeterReading),
			formatFloat(row.ConfigError),
			formatFloat(row.LowPressure),
			formatFloat(row.ActCalculation),
			formatFloat(row.MeterDifference),
			formatFloat(row.Other),
			formatFloat(row.TotalAccruedAmount),
			formatFloat(row.Paid),
			formatFloat(row.EndBalance),
			strconv.Itoa(row.Version),
		})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	for i, value := range values {
		if value == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return err
		}
	}
	return nil
}

func stationLabel(rec settlement.SettlementRecord) string {
	if rec.StationName == "" {
		return rec.StationID
	}
	return rec.StationName
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
