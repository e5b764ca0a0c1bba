package reconciliation

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/wakala/feerecon/internal/repository"
)

// Service runs reconciliations over the logs stored in the database and
// persists their results.
type Service struct {
	engine   *Engine
	logRepo  *repository.LogRepo
	runRepo  *repository.RunRepo
	compRepo *repository.ComparisonRepo
	logger   *zap.Logger

	mu sync.Mutex
}

// NewService creates a new reconciliation service.
func NewService(
	engine *Engine,
	logRepo *repository.LogRepo,
	runRepo *repository.RunRepo,
	compRepo *repository.ComparisonRepo,
	logger *zap.Logger,
) *Service {
	return &Service{
		engine:   engine,
		logRepo:  logRepo,
		runRepo:  runRepo,
		compRepo: compRepo,
		logger:   logger,
	}
}

// RunFullReconciliation recomputes every comparison from the stored logs and
// saves the outcome as a new run. Runs never overlap.
func (s *Service) RunFullReconciliation() (*repository.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs, err := s.logRepo.LoadAll()
	if err != nil {
		return nil, errors.Wrap(err, "load logs")
	}

	return s.Persist(s.engine.Run(logs))
}

// Persist stores an already computed result as a new run.
func (s *Service) Persist(res *Result) (*repository.Run, error) {
	run := &repository.Run{
		ID:              uuid.NewString(),
		Mode:            string(s.engine.detector.Mode()),
		StartedAt:       time.Now().UTC(),
		Trades:          res.Stats.Trades,
		Messages:        res.Stats.Messages,
		Comparisons:     res.Stats.Comparisons,
		Mismatches:      res.Stats.Mismatches,
		FeeMismatches:   res.Stats.FeeMismatches,
		AssetMismatches: res.Stats.AssetMismatches,
		SignMismatches:  res.Stats.SignMismatches,
		GTMismatches:    res.Stats.GTMismatches,
		UnmatchedTrades: res.Stats.UnmatchedTrades,
		ManualFeeTrades: res.Stats.ManualFeeTrades,
	}

	if err := s.runRepo.Insert(run); err != nil {
		return nil, errors.Wrap(err, "insert run")
	}
	if _, err := s.compRepo.BulkInsert(run.ID, res.Evaluated); err != nil {
		if derr := s.runRepo.Delete(run.ID); derr != nil {
			s.logger.Error("remove incomplete run", zap.String("run_id", run.ID), zap.Error(derr))
		}
		return nil, errors.Wrap(err, "insert comparisons")
	}

	s.logger.Info("run stored", zap.String("run_id", run.ID), zap.Int("mismatches", run.Mismatches))
	return run, nil
}
