package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/wakala/feerecon/internal/domain"
	"github.com/wakala/feerecon/internal/ingestion"
	"github.com/wakala/feerecon/internal/reconciliation"
	"github.com/wakala/feerecon/internal/repository"
	"github.com/wakala/feerecon/internal/summary"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	logRepo      *repository.LogRepo
	runRepo      *repository.RunRepo
	compRepo     *repository.ComparisonRepo
	ingestionSvc *ingestion.Service
	reconSvc     *reconciliation.Service
	logger       *zap.Logger
}

// --- helpers ---

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encode response", zap.Error(err))
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

// resolveRun returns the run named by ?run_id=, or the latest run.
func (h *Handlers) resolveRun(w http.ResponseWriter, r *http.Request) (*repository.Run, bool) {
	var (
		run *repository.Run
		err error
	)
	if id := r.URL.Query().Get("run_id"); id != "" {
		run, err = h.runRepo.GetByID(id)
	} else {
		run, err = h.runRepo.Latest()
	}
	if errors.Is(err, sql.ErrNoRows) {
		h.writeError(w, http.StatusNotFound, "no reconciliation run found")
		return nil, false
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return run, true
}

func (h *Handlers) flaggedRows(w http.ResponseWriter, r *http.Request) (*repository.Run, []domain.MismatchRow, bool) {
	run, ok := h.resolveRun(w, r)
	if !ok {
		return nil, nil, false
	}
	rows, err := h.compRepo.ListAll(run.ID, true)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return nil, nil, false
	}
	return run, rows, true
}

// --- IngestLog ---

func (h *Handlers) IngestLog(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	kind := repository.LogKind(r.FormValue("kind"))
	switch kind {
	case repository.LogTrades, repository.LogTraffic, repository.LogOrders:
	default:
		h.writeError(w, http.StatusBadRequest, "kind must be one of: trades, traffic, orders")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "file field is required: "+err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "read file: "+err.Error())
		return
	}

	result, err := h.ingestionSvc.IngestLog(data, kind)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) ListLogFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.logRepo.ListFiles()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"files": files, "total": len(files)})
}

// --- Runs ---

func (h *Handlers) RunReconciliation(w http.ResponseWriter, r *http.Request) {
	run, err := h.reconSvc.RunFullReconciliation()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, run)
}

func (h *Handlers) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.resolveRun(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, run)
}

func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runRepo.GetByID(chi.URLParam(r, "id"))
	if errors.Is(err, sql.ErrNoRows) {
		h.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, run)
}

// --- Results ---

func (h *Handlers) ListComparisons(w http.ResponseWriter, r *http.Request) {
	h.listRows(w, r, false)
}

func (h *Handlers) ListMismatches(w http.ResponseWriter, r *http.Request) {
	h.listRows(w, r, true)
}

func (h *Handlers) listRows(w http.ResponseWriter, r *http.Request, flaggedOnly bool) {
	run, ok := h.resolveRun(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := repository.ComparisonFilter{
		RunID:       run.ID,
		TraceID:     q.Get("trace_id"),
		Side:        q.Get("side"),
		Role:        q.Get("role"),
		FlaggedOnly: flaggedOnly,
		Page:        parseIntDefault(q.Get("page"), 1),
		Limit:       parseIntDefault(q.Get("limit"), 50),
	}

	rows, total, err := h.compRepo.List(filter)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rows == nil {
		rows = []domain.MismatchRow{}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"run_id": run.ID,
		"rows":   rows,
		"total":  total,
		"page":   filter.Page,
		"limit":  filter.Limit,
	})
}

func (h *Handlers) GetMismatchSummary(w http.ResponseWriter, r *http.Request) {
	groupBy := r.URL.Query().Get("group_by")
	if groupBy == "" {
		groupBy = "side,role"
	}
	var cols []summary.Column
	for _, name := range strings.Split(groupBy, ",") {
		c, err := summary.ParseColumn(strings.TrimSpace(name))
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		cols = append(cols, c)
	}

	run, rows, ok := h.flaggedRows(w, r)
	if !ok {
		return
	}

	groups, err := summary.Group(rows, cols...)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"run_id":   run.ID,
		"group_by": cols,
		"groups":   groups,
	})
}

func (h *Handlers) GetMismatchReport(w http.ResponseWriter, r *http.Request) {
	run, rows, ok := h.flaggedRows(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"run_id": run.ID,
		"lines":  summary.Report(rows, domain.MismatchMode(run.Mode)),
	})
}

func (h *Handlers) GetMismatchCounts(w http.ResponseWriter, r *http.Request) {
	run, ok := h.resolveRun(w, r)
	if !ok {
		return
	}
	column := r.URL.Query().Get("column")
	counts, err := h.compRepo.CountBy(run.ID, column)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"run_id": run.ID,
		"column": column,
		"counts": counts,
	})
}

// GetMismatchInfluence reads every evaluated row of the run, flagged or not.
func (h *Handlers) GetMismatchInfluence(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	flag, err := summary.ParseColumn(q.Get("flag"))
	if err != nil || !flag.IsFlag() {
		h.writeError(w, http.StatusBadRequest, "flag must name a mismatch flag column")
		return
	}
	feature, err := summary.ParseColumn(q.Get("feature"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	run, ok := h.resolveRun(w, r)
	if !ok {
		return
	}
	rows, err := h.compRepo.ListAll(run.ID, false)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	stats, err := summary.Influence(rows, flag, feature)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"run_id":  run.ID,
		"flag":    flag,
		"feature": feature,
		"stats":   stats,
	})
}
