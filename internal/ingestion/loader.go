package ingestion

import (
	"io"
	"io/fs"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/wakala/feerecon/internal/domain"
)

// Paths locates the three input logs of a batch run.
type Paths struct {
	TradeLog string
	DumpLog  string
	OrderLog string
}

// LoadReport holds per-log row statistics of a batch load.
type LoadReport struct {
	Trades  LoadStats `json:"trades"`
	Traffic LoadStats `json:"traffic"`
	Orders  LoadStats `json:"orders"`
}

// LoadFiles reads all three logs. Every path is checked before any file is
// parsed, so a missing input fails the run before anything is produced.
func LoadFiles(p Paths, logger *zap.Logger) (*domain.LogSet, *LoadReport, error) {
	for _, path := range []string{p.TradeLog, p.DumpLog, p.OrderLog} {
		if err := checkInput(path); err != nil {
			return nil, nil, err
		}
	}

	var (
		logs   domain.LogSet
		report LoadReport
		err    error
	)

	err = withFile(p.TradeLog, func(r io.Reader) error {
		logs.Trades, report.Trades, err = ParseTradeLog(r, logger)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	err = withFile(p.DumpLog, func(r io.Reader) error {
		logs.Messages, report.Traffic, err = ParseDumpLog(r, logger)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	err = withFile(p.OrderLog, func(r io.Reader) error {
		logs.Orders, report.Orders, err = ParseOrderLog(r, logger)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Info("input logs loaded",
		zap.Int("trades", len(logs.Trades)),
		zap.Int("messages", len(logs.Messages)),
		zap.Int("orders", len(logs.Orders)),
		zap.Int("rejected", report.Trades.Rejected+report.Traffic.Rejected+report.Orders.Rejected),
	)
	return &logs, &report, nil
}

func checkInput(path string) error {
	if path == "" {
		return errors.Wrap(ErrInputMissing, "empty path")
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errors.Wrapf(ErrInputMissing, "%s", path)
		}
		return errors.Wrapf(err, "stat %s", path)
	}
	if info.IsDir() {
		return errors.Wrapf(ErrInputMissing, "%s is a directory", path)
	}
	return nil
}

func withFile(path string, fn func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return errors.Wrapf(fn(f), "parse %s", path)
}
