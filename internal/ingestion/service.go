package ingestion

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/wakala/feerecon/internal/repository"
)

// IngestResult is returned from a successful ingestion.
type IngestResult struct {
	FileID          string `json:"file_id"`
	Kind            string `json:"kind"`
	RecordsIngested int    `json:"records_ingested"`
	RowsRejected    int    `json:"rows_rejected"`
	AlreadyIngested bool   `json:"already_ingested"`
}

// Service stores uploaded log files.
type Service struct {
	logRepo *repository.LogRepo
	logger  *zap.Logger
}

// NewService creates a new ingestion service.
func NewService(logRepo *repository.LogRepo, logger *zap.Logger) *Service {
	return &Service{logRepo: logRepo, logger: logger}
}

// IngestLog parses one log file and stores its rows. A file whose content
// was already ingested is skipped.
//
// kind must be one of: trades, traffic, orders
func (s *Service) IngestLog(data []byte, kind repository.LogKind) (*IngestResult, error) {
	hash := fmt.Sprintf("%x", sha256.Sum256(data))
	exists, err := s.logRepo.FileExistsByHash(hash)
	if err != nil {
		return nil, errors.Wrap(err, "check hash")
	}
	if exists {
		return &IngestResult{Kind: string(kind), AlreadyIngested: true}, nil
	}

	fileID := fmt.Sprintf("LOG-%s-%d", kind, time.Now().UnixNano())
	file := &repository.LogFile{
		ID:         fileID,
		Kind:       kind,
		FileHash:   hash,
		IngestedAt: time.Now(),
	}

	r := bytes.NewReader(data)
	var (
		stats  LoadStats
		insert func() (int, error)
	)

	switch kind {
	case repository.LogTrades:
		trades, st, err := ParseTradeLog(r, s.logger)
		if err != nil {
			return nil, err
		}
		stats = st
		insert = func() (int, error) { return s.logRepo.InsertTrades(fileID, trades) }
	case repository.LogTraffic:
		msgs, st, err := ParseDumpLog(r, s.logger)
		if err != nil {
			return nil, err
		}
		stats = st
		insert = func() (int, error) { return s.logRepo.InsertMessages(fileID, msgs) }
	case repository.LogOrders:
		orders, st, err := ParseOrderLog(r, s.logger)
		if err != nil {
			return nil, err
		}
		stats = st
		insert = func() (int, error) { return s.logRepo.InsertOrders(fileID, orders) }
	default:
		return nil, errors.Errorf("unsupported log kind: %s", kind)
	}

	file.RecordCount = stats.Rows - stats.Rejected
	file.RejectedCount = stats.Rejected
	if err := s.logRepo.InsertFile(file); err != nil {
		return nil, errors.Wrap(err, "insert file")
	}

	inserted, err := insert()
	if err != nil {
		return nil, errors.Wrap(err, "insert rows")
	}

	s.logger.Info("log ingested",
		zap.String("file_id", fileID),
		zap.String("kind", string(kind)),
		zap.Int("records", inserted),
		zap.Int("rejected", stats.Rejected),
	)

	return &IngestResult{
		FileID:          fileID,
		Kind:            string(kind),
		RecordsIngested: inserted,
		RowsRejected:    stats.Rejected,
	}, nil
}
