package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/wakala/feerecon/internal/api"
	"github.com/wakala/feerecon/internal/config"
	"github.com/wakala/feerecon/internal/domain"
	"github.com/wakala/feerecon/internal/ingestion"
	"github.com/wakala/feerecon/internal/logging"
	"github.com/wakala/feerecon/internal/reconciliation"
	"github.com/wakala/feerecon/internal/repository"
)

func main() {
	configFile := flag.String("config", "", "path to YAML config file")
	seed := flag.Bool("seed", true, "ingest the configured input logs when the database is empty")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("initializing database", zap.String("path", cfg.Server.DBPath))
	db, err := repository.InitDB(cfg.Server.DBPath)
	if err != nil {
		logger.Fatal("failed to init DB", zap.Error(err))
	}
	defer db.Close()

	// Create repositories.
	logRepo := repository.NewLogRepo(db)
	runRepo := repository.NewRunRepo(db)
	compRepo := repository.NewComparisonRepo(db)

	// Create services.
	detector, err := reconciliation.NewDetector(domain.MismatchMode(cfg.Mismatch.Mode))
	if err != nil {
		logger.Fatal("invalid mismatch mode", zap.Error(err))
	}
	engine := reconciliation.NewEngine(
		reconciliation.NewComparator(cfg.Traffic.Filter(), logger.Named("comparator")),
		detector,
		logger.Named("reconciliation"),
	)
	reconSvc := reconciliation.NewService(engine, logRepo, runRepo, compRepo, logger.Named("reconciliation"))
	ingestionSvc := ingestion.NewService(logRepo, logger.Named("ingestion"))

	if *seed {
		seedLogs(cfg.Inputs, logRepo, ingestionSvc, logger)
	}

	router := api.NewRouter(logRepo, runRepo, compRepo, ingestionSvc, reconSvc, logger.Named("api"))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("fee reconciler listening",
		zap.String("addr", addr),
		zap.String("api_base", fmt.Sprintf("http://localhost%s/api/v1", addr)),
		zap.String("mode", cfg.Mismatch.Mode),
	)

	if err := http.ListenAndServe(addr, router); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// seedLogs ingests the configured input logs when no log file has been
// stored yet. Missing files are skipped with a warning.
func seedLogs(in config.InputsConfig, repo *repository.LogRepo, svc *ingestion.Service, logger *zap.Logger) {
	files, err := repo.ListFiles()
	if err != nil {
		logger.Warn("could not list stored logs", zap.Error(err))
		return
	}
	if len(files) > 0 {
		logger.Info("database already has logs, skipping seed", zap.Int("files", len(files)))
		return
	}

	seeds := []struct {
		path string
		kind repository.LogKind
	}{
		{in.TradeLog, repository.LogTrades},
		{in.DumpLog, repository.LogTraffic},
		{in.OrderLog, repository.LogOrders},
	}
	for _, s := range seeds {
		data, err := os.ReadFile(s.path)
		if err != nil {
			logger.Warn("seed log not loaded", zap.String("path", s.path), zap.Error(err))
			continue
		}
		res, err := svc.IngestLog(data, s.kind)
		if err != nil {
			logger.Warn("seed log rejected", zap.String("path", s.path), zap.Error(err))
			continue
		}
		logger.Info("seeded log", zap.String("path", s.path), zap.Int("records", res.RecordsIngested))
	}
}
