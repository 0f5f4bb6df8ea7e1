package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cng-console/internal/observability/metrics"
	settlement "cng-console/internal/settlement/domain"
)

// ErrUnsupportedFormat is returned for an export format without a renderer.
var ErrUnsupportedFormat = errors.New("report service: unsupported format")

// RenderFunc turns a period report into a document.
type RenderFunc func(report *settlement.PeriodReport) ([]byte, error)

// Renderer describes one export format.
type Renderer struct {
	ContentType string
	Extension   string
	Render      RenderFunc
}

// BlobStore archives rendered documents.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
}

// ReportExport is a rendered period report.
type ReportExport struct {
	Report      *settlement.PeriodReport
	Format      string
	ContentType string
	FileName    string
	Content     []byte
	URL         string
}

// ReportService renders committed periods.
type ReportService struct {
	repo      settlement.Repository
	renderers map[string]Renderer
	archive   BlobStore
	clock     Clock
	logger    *log.Logger
}

// NewReportService constructs a report service. archive may be nil.
func NewReportService(repo settlement.Repository, renderers map[string]Renderer, archive BlobStore, logger *log.Logger) (*ReportService, error) {
	if repo == nil {
		return nil, errors.New("report service: nil repository")
	}
	if len(renderers) == 0 {
		return nil, errors.New("report service: no renderers")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ReportService{
		repo:      repo,
		renderers: renderers,
		archive:   archive,
		clock:     SystemClock{},
		logger:    logger,
	}, nil
}

// Report builds the committed report of a period.
func (s *ReportService) Report(ctx context.Context, period settlement.Period) (*settlement.PeriodReport, error) {
	period, err := settlement.ParsePeriod(period.String())
	if err != nil {
		return nil, err
	}
	records, err := s.repo.ListByPeriod(ctx, period)
	if err != nil {
		return nil, err
	}
	return settlement.BuildPeriodReport(period, records), nil
}

// Export renders the period report in format and archives it when a blob
// store is configured. Archive failures are logged and leave URL empty.
func (s *ReportService) Export(ctx context.Context, period settlement.Period, format string) (*ReportExport, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveReportExport(format, result, time.Since(start))
	}()

	renderer, ok := s.renderers[format]
	if !ok {
		result = metrics.ResultError
		return nil, ErrUnsupportedFormat
	}
	report, err := s.Report(ctx, period)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	content, err := renderer.Render(report)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}

	export := &ReportExport{
		Report:      report,
		Format:      format,
		ContentType: renderer.ContentType,
		FileName:    fmt.Sprintf("gas-settlement-%s.%s", report.Period, renderer.Extension),
		Content:     content,
	}
	if s.archive != nil {
		key := fmt.Sprintf("reports/%s/%s-%s", report.Period, s.clock.Now().UTC().Format("20060102T150405Z"), export.FileName)
		url, err := s.archive.Put(ctx, key, content)
		if err != nil {
			s.logger.Printf("report: archive failed: period=%s format=%s err=%v", report.Period, format, err)
		} else {
			export.URL = url
		}
	}
	return export, nil
}
