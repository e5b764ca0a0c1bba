package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wakala/feerecon/internal/domain"
	"github.com/wakala/feerecon/internal/ingestion"
	"github.com/wakala/feerecon/internal/reconciliation"
	"github.com/wakala/feerecon/internal/repository"
)

const (
	tradeLog = `trace_id,fee_amount,fee_asset_name,base_asset_name,quote_asset_name,side,role,is_fee_evaluated,price,base_amount
T1,0.1,USDT,BTC,USDT,sell,taker,true,100,1
T2,0.1,USDT,BTC,USDT,buy,maker,true,100,1
T3,0.1,USDT,BTC,USDT,sell,maker,true,100,1
`
	dumpLog = `trace_id,direction,message_name,message_kind,message
T1,In,WsPayload,Regular,"{""data"":{""result"":{""fee"":""0.1"",""fee_currency"":""USDT""}}}"
T2,In,WsPayload,Regular,"{""data"":{""result"":[{""fee"":""-0.2"",""fee_currency"":""BTC""}]}}"
T3,In,WsPayload,Regular,"{""data"":{""result"":{""fee"":""0.1"",""fee_currency"":""USDT"",""gt_fee"":""0.5""}}}"
`
	orderLog = "trace_id,status,side\nT1,filled,sell\n"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := repository.InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logRepo := repository.NewLogRepo(db)
	runRepo := repository.NewRunRepo(db)
	compRepo := repository.NewComparisonRepo(db)

	detector, err := reconciliation.NewDetector(domain.ModeGTAware)
	require.NoError(t, err)
	filter := domain.TrafficFilter{Direction: "In", MessageName: "WsPayload", MessageKind: "Regular"}
	engine := reconciliation.NewEngine(reconciliation.NewComparator(filter, zap.NewNop()), detector, zap.NewNop())

	router := NewRouter(
		logRepo, runRepo, compRepo,
		ingestion.NewService(logRepo, zap.NewNop()),
		reconciliation.NewService(engine, logRepo, runRepo, compRepo, zap.NewNop()),
		zap.NewNop(),
	)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func upload(t *testing.T, srv *httptest.Server, kind, content string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("kind", kind))
	fw, err := mw.CreateFormFile("file", kind+".csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/v1/logs/ingest", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func get(t *testing.T, srv *httptest.Server, path string, v any) int {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	decode(t, resp, v)
	return resp.StatusCode
}

func seed(t *testing.T, srv *httptest.Server) repository.Run {
	t.Helper()
	for kind, content := range map[string]string{"trades": tradeLog, "traffic": dumpLog, "orders": orderLog} {
		resp := upload(t, srv, kind, content)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	resp, err := http.Post(srv.URL+"/api/v1/reconciliations", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var run repository.Run
	decode(t, resp, &run)
	return run
}

func TestIngestLog(t *testing.T) {
	srv := newTestServer(t)

	var res ingestion.IngestResult
	resp := upload(t, srv, "trades", tradeLog)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &res)
	assert.Equal(t, 3, res.RecordsIngested)

	resp = upload(t, srv, "trades", tradeLog)
	decode(t, resp, &res)
	assert.True(t, res.AlreadyIngested)

	var files struct {
		Total int `json:"total"`
	}
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/v1/logs", &files))
	assert.Equal(t, 1, files.Total)
}

func TestIngestLog_BadRequests(t *testing.T) {
	srv := newTestServer(t)

	resp := upload(t, srv, "settlements", tradeLog)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = upload(t, srv, "orders", "trace_id\nT1\n")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Post(srv.URL+"/api/v1/logs/ingest", "text/plain", bytes.NewBufferString("x"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestRuns(t *testing.T) {
	srv := newTestServer(t)

	var errBody map[string]string
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/v1/reconciliations/latest", &errBody))

	run := seed(t, srv)
	assert.Equal(t, 3, run.Trades)
	assert.Equal(t, 3, run.Comparisons)
	assert.Equal(t, 2, run.Mismatches)
	assert.Equal(t, "gt_aware", run.Mode)

	var latest repository.Run
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/v1/reconciliations/latest", &latest))
	assert.Equal(t, run.ID, latest.ID)

	var byID repository.Run
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/v1/reconciliations/"+run.ID, &byID))
	assert.Equal(t, run.ID, byID.ID)

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/v1/reconciliations/nope", &errBody))
}

type rowsPage struct {
	RunID string               `json:"run_id"`
	Rows  []domain.MismatchRow `json:"rows"`
	Total int                  `json:"total"`
}

func TestComparisonsAndMismatches(t *testing.T) {
	srv := newTestServer(t)
	run := seed(t, srv)

	var all rowsPage
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/v1/comparisons", &all))
	assert.Equal(t, run.ID, all.RunID)
	assert.Equal(t, 3, all.Total)
	require.Len(t, all.Rows, 3)
	assert.Equal(t, "filled", all.Rows[0].OrderStatus)

	var flagged rowsPage
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/v1/mismatches?run_id="+run.ID, &flagged))
	require.Equal(t, 2, flagged.Total)
	assert.Equal(t, "T2", flagged.Rows[0].TraceID)
	assert.True(t, flagged.Rows[0].SignMismatch)
	assert.True(t, flagged.Rows[0].AssetMismatch)
	assert.Equal(t, "T3", flagged.Rows[1].TraceID)
	assert.True(t, flagged.Rows[1].GTFeeMismatch)

	var page rowsPage
	get(t, srv, "/api/v1/mismatches?limit=1&page=2", &page)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "T3", page.Rows[0].TraceID)

	var bySide rowsPage
	get(t, srv, "/api/v1/comparisons?side=sell", &bySide)
	assert.Equal(t, 2, bySide.Total)
}

func TestMismatchSummary(t *testing.T) {
	srv := newTestServer(t)
	seed(t, srv)

	var body struct {
		Groups []struct {
			Keys  []string `json:"keys"`
			Count int      `json:"count"`
		} `json:"groups"`
	}
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/v1/mismatches/summary", &body))
	require.Len(t, body.Groups, 2)
	assert.Equal(t, []string{"buy", "maker"}, body.Groups[0].Keys)
	assert.Equal(t, []string{"sell", "maker"}, body.Groups[1].Keys)

	get(t, srv, "/api/v1/mismatches/summary?group_by=is_fee_evaluated", &body)
	require.Len(t, body.Groups, 1)
	assert.Equal(t, 2, body.Groups[0].Count)

	var errBody map[string]string
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/v1/mismatches/summary?group_by=merchant", &errBody))
}

func TestMismatchReportAndCounts(t *testing.T) {
	srv := newTestServer(t)
	seed(t, srv)

	var report struct {
		Lines []struct {
			Metric   string `json:"metric"`
			Category string `json:"category"`
			Value    int    `json:"value"`
		} `json:"lines"`
	}
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/v1/mismatches/report", &report))
	require.NotEmpty(t, report.Lines)
	assert.Equal(t, "Total mismatched rows", report.Lines[0].Metric)
	assert.Equal(t, 2, report.Lines[0].Value)

	var counts struct {
		Counts map[string]int `json:"counts"`
	}
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/v1/mismatches/counts?column=role", &counts))
	assert.Equal(t, map[string]int{"maker": 2}, counts.Counts)

	var errBody map[string]string
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/v1/mismatches/counts?column=trace_id", &errBody))
}

func TestMismatchInfluence(t *testing.T) {
	srv := newTestServer(t)
	seed(t, srv)

	var body struct {
		Stats []struct {
			Value           string  `json:"value"`
			Count           int     `json:"count"`
			MismatchedCount int     `json:"mismatched_count"`
			Proportion      float64 `json:"proportion"`
		} `json:"stats"`
	}
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/v1/mismatches/influence?flag=fee_mismatch&feature=side", &body))
	require.Len(t, body.Stats, 2)
	assert.Equal(t, "buy", body.Stats[0].Value)
	assert.Equal(t, 1, body.Stats[0].MismatchedCount)
	assert.Equal(t, 1.0, body.Stats[0].Proportion)
	assert.Equal(t, "sell", body.Stats[1].Value)
	assert.Equal(t, 2, body.Stats[1].Count)
	assert.Equal(t, 0, body.Stats[1].MismatchedCount)

	var errBody map[string]string
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/v1/mismatches/influence?flag=side&feature=role", &errBody))
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/v1/mismatches/influence?flag=fee_mismatch&feature=x", &errBody))
}
