// Command feecheck reconciles platform trade fees against the fees reported
// in exchange traffic and writes the comparison, mismatch and summary tables.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/wakala/feerecon/internal/config"
	"github.com/wakala/feerecon/internal/domain"
	"github.com/wakala/feerecon/internal/ingestion"
	"github.com/wakala/feerecon/internal/logging"
	"github.com/wakala/feerecon/internal/output"
	"github.com/wakala/feerecon/internal/reconciliation"
	"github.com/wakala/feerecon/internal/repository"
	"github.com/wakala/feerecon/internal/summary"
)

const (
	sideRoleFile      = "summary_by_side_role.csv"
	feeEvaluationFile = "summary_by_fee_evaluation.csv"
)

func main() {
	configFile := flag.String("config", "", "path to YAML config file")
	printConfig := flag.Bool("print-config", false, "print the effective config and exit")
	writeConfig := flag.String("write-config", "", "write the built-in default config to this path and exit")
	persist := flag.Bool("persist", false, "store the run in the SQLite database")
	flag.Parse()

	if *writeConfig != "" {
		if err := config.Default().WriteFile(*writeConfig); err != nil {
			fmt.Fprintf(os.Stderr, "write config: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if *printConfig {
		out, err := cfg.Dump()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(out)
		return
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, *persist, logger); err != nil {
		logger.Error("run failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, persist bool, logger *zap.Logger) error {
	logs, _, err := ingestion.LoadFiles(ingestion.Paths{
		TradeLog: cfg.Inputs.TradeLog,
		DumpLog:  cfg.Inputs.DumpLog,
		OrderLog: cfg.Inputs.OrderLog,
	}, logger.Named("ingestion"))
	if err != nil {
		return err
	}

	mode := domain.MismatchMode(cfg.Mismatch.Mode)
	detector, err := reconciliation.NewDetector(mode)
	if err != nil {
		return err
	}
	engine := reconciliation.NewEngine(
		reconciliation.NewComparator(cfg.Traffic.Filter(), logger.Named("comparator")),
		detector,
		logger.Named("reconciliation"),
	)
	res := engine.Run(logs)

	if err := writeTables(cfg.Output.Dir, mode, res, logger); err != nil {
		return err
	}

	if persist {
		return persistRun(cfg.Server.DBPath, engine, res, logger)
	}
	return nil
}

func writeTables(dir string, mode domain.MismatchMode, res *reconciliation.Result, logger *zap.Logger) error {
	w, err := output.NewWriter(dir)
	if err != nil {
		return err
	}

	if err := w.WriteComparisons(res.Comparisons); err != nil {
		return err
	}
	if err := w.WriteMismatches(res.Mismatches, mode); err != nil {
		return err
	}

	groups := []struct {
		file string
		cols []summary.Column
	}{
		{sideRoleFile, []summary.Column{summary.ColSide, summary.ColRole}},
		{feeEvaluationFile, []summary.Column{summary.ColFeeEvaluated}},
	}
	for _, g := range groups {
		stats, err := summary.Group(res.Mismatches, g.cols...)
		if err != nil {
			return err
		}
		if err := w.WriteGroups(g.file, g.cols, stats); err != nil {
			return err
		}
	}

	if err := w.WriteReport(summary.Report(res.Mismatches, mode)); err != nil {
		return err
	}

	for _, col := range summary.FlagColumns(mode) {
		stats, err := summary.Influence(res.Evaluated, col, summary.ColSide)
		if err != nil {
			return err
		}
		if err := w.WriteInfluence(col, summary.ColSide, stats); err != nil {
			return err
		}
	}

	logger.Info("output written", zap.String("dir", dir), zap.Int("mismatches", len(res.Mismatches)))
	return nil
}

func persistRun(dbPath string, engine *reconciliation.Engine, res *reconciliation.Result, logger *zap.Logger) error {
	db, err := repository.InitDB(dbPath)
	if err != nil {
		return errors.Wrap(err, "open database")
	}
	defer db.Close()

	svc := reconciliation.NewService(
		engine,
		repository.NewLogRepo(db),
		repository.NewRunRepo(db),
		repository.NewComparisonRepo(db),
		logger.Named("reconciliation"),
	)
	_, err = svc.Persist(res)
	return err
}
