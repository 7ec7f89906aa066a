package server

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mr-tron/base58"

	"dlmm-position-lab/internal/analysis"
	"dlmm-position-lab/internal/domain"
	"dlmm-position-lab/internal/saros"
	"dlmm-position-lab/internal/simulation"
	"dlmm-position-lab/internal/solanakey"
	"dlmm-position-lab/internal/storage/memory"
)

// wsolMint is a syntactically valid Solana address for request parameters.
const wsolMint = "So11111111111111111111111111111111111111112"

// testWallet returns a deterministic wallet address. Generated keys are on
// the ed25519 curve by construction.
func testWallet(t *testing.T) string {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(bytes.NewReader(make([]byte, 64)))
	if err != nil {
		t.Fatal(err)
	}
	return base58.Encode(pub)
}

// offCurveAddress returns a well-formed 32-byte address that is not a curve
// point, by perturbing a wallet key until decoding fails.
func offCurveAddress(t *testing.T) string {
	t.Helper()
	raw, err := base58.Decode(testWallet(t))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 256; i++ {
		raw[0] = byte(i)
		if addr := base58.Encode(raw); !solanakey.IsOnCurve(addr) {
			return addr
		}
	}
	t.Fatal("no off-curve perturbation found")
	return ""
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// newTestServer builds a server against the given upstream with in-memory
// stores and a deterministic, delay-free engine.
func newTestServer(t *testing.T, upstreamURL string) *Server {
	t.Helper()

	gateway := saros.NewClient(
		saros.WithBaseURL(upstreamURL),
		saros.WithLogger(quietLogger()),
	)
	engine := simulation.NewEngine(
		simulation.WithRandSource(rand.NewSource(1)),
		simulation.WithAnalysisDelay(0),
		simulation.WithBacktestDelay(0),
	)
	presenter := analysis.NewPresenter(engine, nil, analysis.WithLogger(quietLogger()))

	return NewServer(
		gateway,
		presenter,
		engine,
		memory.NewPositionStore(),
		memory.NewBacktestRunStore(),
		memory.NewPerformancePointStore(),
		WithLogger(quietLogger()),
	)
}

func TestBinPositionProxy_RequiresUserID(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bin-position", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"user_id is required"}` {
		t.Errorf("body = %s", got)
	}
}

func TestBinPositionProxy_RelaysVerbatim(t *testing.T) {
	const payload = `{"data":[{"public_key":"pos-1"}],"total":1}`
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("user_id") != "owner-1" {
			t.Errorf("user_id = %q", q.Get("user_id"))
		}
		if q.Get("page_num") != "2" || q.Get("page_size") != "50" {
			t.Errorf("pagination not forwarded: page_num=%q page_size=%q", q.Get("page_num"), q.Get("page_size"))
		}
		io.WriteString(w, payload)
	}))
	defer upstream.Close()

	s := newTestServer(t, upstream.URL)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/bin-position?user_id=owner-1&page_num=2&page_size=50", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != payload {
		t.Errorf("body = %q, want verbatim %q", rec.Body.String(), payload)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
}

func TestBinPositionProxy_DefaultsPagination(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("page_num") != "1" || q.Get("page_size") != "100" {
			t.Errorf("defaults not applied: page_num=%q page_size=%q", q.Get("page_num"), q.Get("page_size"))
		}
		io.WriteString(w, `{}`)
	}))
	defer upstream.Close()

	s := newTestServer(t, upstream.URL)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bin-position?user_id=owner-1", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestBinPositionProxy_UpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer upstream.Close()

	s := newTestServer(t, upstream.URL)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bin-position?user_id=owner-1", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"Failed to fetch bin positions"}` {
		t.Errorf("body = %s", got)
	}
}

func TestPoolPositionProxy_RemapsPoolID(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("pair_id") != "pool-1" {
			t.Errorf("pair_id = %q, want pool-1", q.Get("pair_id"))
		}
		if q.Has("pool_id") {
			t.Error("pool_id must not reach upstream")
		}
		io.WriteString(w, `{"pool":{}}`)
	}))
	defer upstream.Close()

	s := newTestServer(t, upstream.URL)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pool-position?pool_id=pool-1", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestPoolPositionProxy_NoIDsIsAllowed(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":[]}`)
	}))
	defer upstream.Close()

	s := newTestServer(t, upstream.URL)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pool-position", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestPoolPositionProxy_UpstreamFailure(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pool-position", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"Failed to fetch pool positions"}` {
		t.Errorf("body = %s", got)
	}
}

func TestPositions_DemoFallback(t *testing.T) {
	// Upstream down; no user_id at all.
	s := newTestServer(t, "http://127.0.0.1:1")

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/positions", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp positionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Positions) != 3 {
		t.Fatalf("got %d demo positions, want 3", len(resp.Positions))
	}
	if resp.Positions[0].Pair != "SOL/USDC" {
		t.Errorf("first pair = %s", resp.Positions[0].Pair)
	}
	if len(resp.Analyses) != 3 {
		t.Errorf("got %d analyses", len(resp.Analyses))
	}
	if resp.Summary.PositionsAnalyzed != 3 {
		t.Errorf("summary analyzed = %d", resp.Summary.PositionsAnalyzed)
	}
}

func TestPositions_RejectsMalformedUserID(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/positions?user_id=not-base58!", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestPositions_RejectsOffCurveUserID(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")

	// Well-formed base58, 32 bytes, but not a wallet key.
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/positions?user_id="+offCurveAddress(t), nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestPositions_GatewayFailureFallsBackToDemo(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/positions?user_id="+testWallet(t), nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp positionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Positions) != 3 {
		t.Errorf("expected demo fallback, got %d positions", len(resp.Positions))
	}
}

func TestPool_RequiresPoolID(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pool", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestPool_ReturnsNormalizedInfo(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"pool":{
			"token_x":{"symbol":"SOL"},
			"token_y":{"symbol":"USDC"},
			"current_price":"98.45"
		}}`)
	}))
	defer upstream.Close()

	s := newTestServer(t, upstream.URL)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pool?pool_id="+wsolMint, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var info domain.PoolInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info.Pair != "SOL/USDC" {
		t.Errorf("pair = %q", info.Pair)
	}
	if info.CurrentPrice != 98.45 {
		t.Errorf("price = %f", info.CurrentPrice)
	}
}

func TestAnalyze_UsesDemoWhenNothingStored(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")

	body := bytes.NewBufferString(`{"config":{"risk_tolerance":70,"gas_threshold":0.02,"auto_rebalance":false}}`)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp analyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Analyses) != 3 {
		t.Errorf("got %d analyses, want 3", len(resp.Analyses))
	}
}

func TestAnalyze_ReRunsOnEachRequest(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")
	router := s.Router()

	post := func(body string) analyzeResponse {
		t.Helper()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze",
			bytes.NewBufferString(body)))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		var resp analyzeResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		return resp
	}

	first := post(`{"config":{"risk_tolerance":50,"gas_threshold":0.01,"auto_rebalance":false}}`)
	second := post(`{"config":{"risk_tolerance":90,"gas_threshold":0.05,"auto_rebalance":true}}`)

	if len(first.Analyses) == 0 || len(second.Analyses) == 0 {
		t.Fatal("missing analyses")
	}
	// The position set is unchanged between requests; each explicit run must
	// still hit the engine, which draws fresh efficiencies.
	if first.Analyses[0].CurrentEfficiency == second.Analyses[0].CurrentEfficiency {
		t.Error("second analyze returned the first run's cached analyses")
	}
}

func TestBacktest_RunAndExport(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")
	router := s.Router()

	body := bytes.NewBufferString(`{"pair":"SOL/USDC","capital":1000,"config":{"timeframe":"90d"}}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/backtest", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var run domain.BacktestRun
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatal(err)
	}
	if run.ID == "" {
		t.Fatal("run has no ID")
	}
	if len(run.Results) != len(domain.BacktestCatalog) {
		t.Errorf("got %d results, want %d", len(run.Results), len(domain.BacktestCatalog))
	}
	for i := 1; i < len(run.Results); i++ {
		if run.Results[i-1].SharpeRatio < run.Results[i].SharpeRatio {
			t.Errorf("results not sorted by Sharpe at %d", i)
		}
	}

	// Export the top-ranked result from the stored run.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/backtest/export?run_id="+run.ID, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type = %q", ct)
	}
	csv := rec.Body.String()
	if !strings.HasPrefix(csv, "Metric,Value\n") {
		t.Errorf("csv missing header: %q", csv[:min(40, len(csv))])
	}
	if !strings.Contains(csv, "Strategy,"+run.Results[0].Strategy) {
		t.Error("csv missing top strategy row")
	}
}

func TestBacktest_RejectsNonPositiveCapital(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")

	body := bytes.NewBufferString(`{"capital":0}`)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/backtest", body))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestBacktestExport_UnknownRun(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/backtest/export?run_id=missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRebalance_ExecutesRecommendation(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")
	router := s.Router()

	// Load the demo portfolio first so recommendations exist.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/positions", nil))
	if rec.Code != http.StatusOK {
		t.Fatal(rec.Body.String())
	}

	body := bytes.NewBufferString(`{"position_id":"1","index":0}`)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/rebalance", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	body = bytes.NewBufferString(`{"position_id":"nope","index":0}`)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/rebalance", body))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown position: status = %d, want 404", rec.Code)
	}
}

func TestHealthAndStatus(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")
	router := s.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("health = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Status != "running" {
		t.Errorf("status = %q", status.Status)
	}
}

func TestProxy_RejectsNonGET(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")
	router := s.Router()

	for _, path := range []string{"/api/bin-position", "/api/pool-position"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: status = %d, want 405", path, rec.Code)
		}
	}
}
