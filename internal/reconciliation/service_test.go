package reconciliation

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wakala/feerecon/internal/domain"
	"github.com/wakala/feerecon/internal/repository"
)

func newTestService(t *testing.T) (*Service, *repository.LogRepo, *repository.ComparisonRepo) {
	t.Helper()
	db, err := repository.InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newTestServiceOn(t, db)
}

func newTestServiceOn(t *testing.T, db *sql.DB) (*Service, *repository.LogRepo, *repository.ComparisonRepo) {
	t.Helper()

	logRepo := repository.NewLogRepo(db)
	compRepo := repository.NewComparisonRepo(db)
	svc := NewService(
		newTestEngine(t, domain.ModeGTAware),
		logRepo,
		repository.NewRunRepo(db),
		compRepo,
		zap.NewNop(),
	)
	return svc, logRepo, compRepo
}

func storeLogs(t *testing.T, repo *repository.LogRepo, logs *domain.LogSet) {
	t.Helper()
	for _, f := range []repository.LogFile{
		{ID: "LOG-trades-1", Kind: repository.LogTrades, FileHash: "a"},
		{ID: "LOG-traffic-1", Kind: repository.LogTraffic, FileHash: "b"},
	} {
		f.IngestedAt = time.Now()
		require.NoError(t, repo.InsertFile(&f))
	}
	_, err := repo.InsertTrades("LOG-trades-1", logs.Trades)
	require.NoError(t, err)
	_, err = repo.InsertMessages("LOG-traffic-1", logs.Messages)
	require.NoError(t, err)
}

func TestRunFullReconciliation(t *testing.T) {
	svc, logRepo, compRepo := newTestService(t)
	storeLogs(t, logRepo, sampleLogs())

	run, err := svc.RunFullReconciliation()
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, string(domain.ModeGTAware), run.Mode)
	assert.Equal(t, 4, run.Trades)
	assert.Equal(t, 3, run.Comparisons)
	assert.Equal(t, 2, run.Mismatches)
	assert.Equal(t, 1, run.UnmatchedTrades)

	all, err := compRepo.ListAll(run.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	flagged, err := compRepo.ListAll(run.ID, true)
	require.NoError(t, err)
	require.Len(t, flagged, 2)
	assert.Equal(t, "2", flagged[0].TraceID)
	assert.True(t, flagged[0].SignMismatch)
}

func TestRunFullReconciliation_EmptyStore(t *testing.T) {
	svc, _, _ := newTestService(t)

	run, err := svc.RunFullReconciliation()
	require.NoError(t, err)
	assert.Zero(t, run.Comparisons)
	assert.Zero(t, run.Mismatches)
}

func TestPersist_EachRunIsNew(t *testing.T) {
	svc, _, _ := newTestService(t)
	res := newTestEngine(t, domain.ModeGTAware).Run(sampleLogs())

	first, err := svc.Persist(res)
	require.NoError(t, err)
	second, err := svc.Persist(res)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestPersist_FailedRowsLeaveNoRun(t *testing.T) {
	db, err := repository.InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	svc, _, _ := newTestServiceOn(t, db)

	_, err = db.Exec(`CREATE TRIGGER reject_rows BEFORE INSERT ON fee_comparisons
		BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
	require.NoError(t, err)

	res := newTestEngine(t, domain.ModeGTAware).Run(sampleLogs())
	require.NotEmpty(t, res.Evaluated)

	run, err := svc.Persist(res)
	assert.Error(t, err)
	assert.Nil(t, run)

	_, err = repository.NewRunRepo(db).Latest()
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
