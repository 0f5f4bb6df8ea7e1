package interfaces

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"cng-console/internal/audit"
	"cng-console/internal/auth"
	settlementapp "cng-console/internal/settlement/application"
	settlement "cng-console/internal/settlement/domain"
)

const routePrefix = "/api/v1/gas-settlements/"

const maxEditBody = 1 << 20

// SettlementHandler serves the gas settlement API under /api/v1/gas-settlements/.
type SettlementHandler struct {
	periods     *settlementapp.PeriodService
	reports     *settlementapp.ReportService
	formatter   *Formatter
	auditLogger audit.Logger
	logger      *log.Logger
}

// NewSettlementHandler constructs a handler. auditLogger may be nil.
func NewSettlementHandler(
	periods *settlementapp.PeriodService,
	reports *settlementapp.ReportService,
	formatter *Formatter,
	auditLogger audit.Logger,
	logger *log.Logger,
) (*SettlementHandler, error) {
	if periods == nil {
		return nil, errors.New("settlement handler: nil period service")
	}
	if reports == nil {
		return nil, errors.New("settlement handler: nil report service")
	}
	if formatter == nil {
		return nil, errors.New("settlement handler: nil formatter")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &SettlementHandler{
		periods:     periods,
		reports:     reports,
		formatter:   formatter,
		auditLogger: auditLogger,
		logger:      logger,
	}, nil
}

type recordView struct {
	*settlement.WorkingRecord
	Formatted FormattedRecord `json:"formatted"`
}

type workingSetResponse struct {
	Period  settlement.Period `json:"period"`
	Records []recordView      `json:"records"`
	Skipped []settlement.Edit `json:"skipped,omitempty"`
}

type editRequest struct {
	Edits []settlement.Edit `json:"edits"`
	// Versions lists the id and version of each record as the client loaded it.
	Versions []settlement.RecordVersion `json:"versions,omitempty"`
}

// ServeHTTP routes settlement requests.
func (h *SettlementHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, routePrefix)
	if rest == r.URL.Path {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] == "continuity":
		if r.Method == http.MethodGet {
			h.handleContinuity(w, r)
			return
		}
	case len(parts) == 3 && parts[0] == "stations" && parts[2] == "history":
		if r.Method == http.MethodGet {
			h.handleHistory(w, r, parts[1])
			return
		}
	case len(parts) >= 2 && parts[0] == "periods":
		h.handlePeriod(w, r, parts[1], parts[2:])
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *SettlementHandler) handlePeriod(w http.ResponseWriter, r *http.Request, rawPeriod string, rest []string) {
	period, err := settlement.ParsePeriod(rawPeriod)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(rest) == 0 {
		if r.Method == http.MethodGet {
			h.handleOpen(w, r, period)
			return
		}
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if len(rest) != 1 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch action := rest[0]; action {
	case "preview":
		if r.Method == http.MethodPost {
			h.handlePreview(w, r, period)
			return
		}
	case "commit":
		if r.Method == http.MethodPost {
			h.handleCommit(w, r, period)
			return
		}
	default:
		if format, ok := strings.CutPrefix(action, "export."); ok && r.Method == http.MethodGet {
			h.handleExport(w, r, period, format)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusMethodNotAllowed)
}

func (h *SettlementHandler) handleOpen(w http.ResponseWriter, r *http.Request, period settlement.Period) {
	ws, err := h.periods.Open(r.Context(), period, stationFilter(r)...)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.workingSetResponse(ws, nil))
}

func (h *SettlementHandler) handlePreview(w http.ResponseWriter, r *http.Request, period settlement.Period) {
	req, err := decodeEdits(r)
	if err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	ws, result, err := h.periods.Preview(r.Context(), period, stationFilter(r), req.Edits)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.workingSetResponse(ws, result.Skipped))
}

func (h *SettlementHandler) handleCommit(w http.ResponseWriter, r *http.Request, period settlement.Period) {
	req, err := decodeEdits(r)
	if err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	ws, result, err := h.periods.SaveVersions(r.Context(), period, stationFilter(r), req.Edits, req.Versions)
	var saveErr *settlementapp.SaveError
	if errors.As(err, &saveErr) {
		status := http.StatusBadGateway
		if errors.Is(err, settlement.ErrVersionConflict) {
			status = http.StatusConflict
		}
		h.logAudit(r, period, "settlement.commit_failed", map[string]any{
			"edits":          len(req.Edits),
			"failedStations": saveErr.FailedStations(),
			"saved":          saveErr.Saved,
		})
		writeJSON(w, status, struct {
			Error          string   `json:"error"`
			FailedStations []string `json:"failedStations"`
			Saved          int      `json:"saved"`
			workingSetResponse
		}{
			Error:              "save failed",
			FailedStations:     saveErr.FailedStations(),
			Saved:              saveErr.Saved,
			workingSetResponse: h.workingSetResponse(ws, result.Skipped),
		})
		return
	}
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.workingSetResponse(ws, result.Skipped))
	h.logAudit(r, period, "settlement.commit", map[string]any{
		"edits":    len(req.Edits),
		"stations": ws.StationIDs(),
	})
}

func (h *SettlementHandler) handleExport(w http.ResponseWriter, r *http.Request, period settlement.Period, format string) {
	export, err := h.reports.Export(r.Context(), period, format)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName+`"`)
	if export.URL != "" {
		w.Header().Set("X-Report-URL", export.URL)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(export.Content)
	h.logAudit(r, period, "settlement.export", map[string]any{
		"format": format,
		"rows":   len(export.Report.Rows),
		"url":    export.URL,
	})
}

func (h *SettlementHandler) handleHistory(w http.ResponseWriter, r *http.Request, stationID string) {
	records, err := h.periods.History(r.Context(), stationID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	type historyRow struct {
		settlement.SettlementRecord
		Formatted FormattedRecord `json:"formatted"`
	}
	rows := make([]historyRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, historyRow{SettlementRecord: rec, Formatted: h.formatter.Record(rec)})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stationId": stationID,
		"records":   rows,
	})
}

func (h *SettlementHandler) handleContinuity(w http.ResponseWriter, r *http.Request) {
	from := settlement.Period(r.URL.Query().Get("from"))
	to := settlement.Period(r.URL.Query().Get("to"))
	breaks, err := h.periods.CheckContinuity(r.Context(), from, to)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if breaks == nil {
		breaks = []settlement.ContinuityBreak{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":   from,
		"to":     to,
		"breaks": breaks,
	})
}

func (h *SettlementHandler) workingSetResponse(ws *settlement.WorkingSet, skipped []settlement.Edit) workingSetResponse {
	resp := workingSetResponse{Skipped: skipped, Records: []recordView{}}
	if ws == nil {
		return resp
	}
	resp.Period = ws.Period
	for _, rec := range ws.Records {
		resp.Records = append(resp.Records, recordView{
			WorkingRecord: rec,
			Formatted:     h.formatter.Record(rec.SettlementRecord),
		})
	}
	return resp
}

func (h *SettlementHandler) logAudit(r *http.Request, period settlement.Period, action string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	payload, _ := json.Marshal(meta)
	err := h.auditLogger.Log(r.Context(), audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "gas_settlement_period",
		ResourceID:   period.String(),
		Period:       period.String(),
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
	if err != nil {
		h.logger.Printf("audit: write failed: action=%s period=%s err=%v", action, period, err)
	}
}

func (h *SettlementHandler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, settlement.ErrInvalidPeriod),
		errors.Is(err, settlement.ErrInvalidRange),
		errors.Is(err, settlement.ErrEmptyStationID),
		errors.Is(err, settlement.ErrUnknownStation),
		errors.Is(err, settlement.ErrUnknownField):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, settlement.ErrVersionConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, settlement.ErrLoadFailed):
		h.logger.Printf("settlement: commit refused: err=%v", err)
		http.Error(w, "stored settlements unavailable, retry", http.StatusServiceUnavailable)
	case errors.Is(err, settlementapp.ErrUnsupportedFormat):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.logger.Printf("settlement: request failed: err=%v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func decodeEdits(r *http.Request) (editRequest, error) {
	var req editRequest
	if r.Body == nil {
		return req, nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxEditBody)).Decode(&req)
	if errors.Is(err, io.EOF) {
		return editRequest{}, nil
	}
	return req, err
}

func stationFilter(r *http.Request) []string {
	var ids []string
	for _, value := range r.URL.Query()["station_id"] {
		for _, id := range strings.Split(value, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
