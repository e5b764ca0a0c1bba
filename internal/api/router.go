package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/wakala/feerecon/internal/ingestion"
	"github.com/wakala/feerecon/internal/reconciliation"
	"github.com/wakala/feerecon/internal/repository"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(
	logRepo *repository.LogRepo,
	runRepo *repository.RunRepo,
	compRepo *repository.ComparisonRepo,
	ingestionSvc *ingestion.Service,
	reconSvc *reconciliation.Service,
	logger *zap.Logger,
) http.Handler {
	h := &Handlers{
		logRepo:      logRepo,
		runRepo:      runRepo,
		compRepo:     compRepo,
		ingestionSvc: ingestionSvc,
		reconSvc:     reconSvc,
		logger:       logger,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Route("/api/v1", func(r chi.Router) {
		// Logs.
		r.Post("/logs/ingest", h.IngestLog)
		r.Get("/logs", h.ListLogFiles)

		// Runs.
		r.Post("/reconciliations", h.RunReconciliation)
		r.Get("/reconciliations/latest", h.GetLatestRun)
		r.Get("/reconciliations/{id}", h.GetRun)

		// Results.
		r.Get("/comparisons", h.ListComparisons)
		r.Get("/mismatches", h.ListMismatches)
		r.Get("/mismatches/summary", h.GetMismatchSummary)
		r.Get("/mismatches/report", h.GetMismatchReport)
		r.Get("/mismatches/counts", h.GetMismatchCounts)
		r.Get("/mismatches/influence", h.GetMismatchInfluence)
	})

	return r
}

// requestLogger logs one line per request through zap.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
			)
		})
	}
}
