package server

import (
	"encoding/json"
	"net/http"
	"time"

	"dlmm-position-lab/internal/analysis"
	"dlmm-position-lab/internal/domain"
	"dlmm-position-lab/internal/solanakey"
)

// demoOwner keys the fallback portfolio in the position store.
const demoOwner = "demo"

// positionsResponse carries the held set plus its portfolio summary.
type positionsResponse struct {
	Positions []domain.Position          `json:"positions"`
	Analyses  []domain.RebalanceAnalysis `json:"analyses"`
	Summary   analysis.Summary           `json:"summary"`
}

// handlePositions returns the normalized positions for an owner. Without a
// user_id, or when the gateway yields nothing, the demo portfolio is served
// so the dashboard always has data to show.
func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// user_id names a wallet, and wallet keys are on the ed25519 curve;
	// off-curve addresses (PDAs, pools) cannot own positions.
	userID := r.URL.Query().Get("user_id")
	if userID != "" && !solanakey.IsOnCurve(userID) {
		writeError(w, http.StatusBadRequest, "user_id is not a valid wallet address")
		return
	}

	owner := demoOwner
	var positions []domain.Position
	if userID != "" {
		start := time.Now()
		fetched, err := s.gateway.FetchUserPositionsChecked(r.Context(), userID)
		s.metrics.RecordGatewayFetch("positions", time.Since(start), err)
		if err != nil {
			s.logger.Printf("fetch positions for %s: %v", userID, err)
		}
		if len(fetched) > 0 {
			owner = userID
			positions = fetched
		}
	}
	if positions == nil {
		positions = domain.DemoPositions()
	}

	for i := range positions {
		qs := time.Now()
		err := s.positions.Upsert(r.Context(), owner, &positions[i])
		s.metrics.RecordDBQuery("positions", "upsert", time.Since(qs), err)
		if err != nil {
			s.logger.Printf("store position %s: %v", positions[i].ID, err)
		}
	}

	analyses := s.presenter.SetPositions(r.Context(), positions)
	if s.metrics != nil {
		s.metrics.PositionsTracked.Set(float64(len(positions)))
	}

	writeJSON(w, http.StatusOK, positionsResponse{
		Positions: positions,
		Analyses:  analyses,
		Summary:   s.presenter.Summarize(),
	})
}

// handlePool returns normalized pool info from the gateway.
func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	poolID := r.URL.Query().Get("pool_id")
	if poolID == "" {
		writeError(w, http.StatusBadRequest, "pool_id is required")
		return
	}
	if !solanakey.IsValid(poolID) {
		writeError(w, http.StatusBadRequest, "pool_id is not a valid address")
		return
	}

	start := time.Now()
	info, err := s.gateway.FetchPoolInfoChecked(r.Context(), poolID, r.URL.Query().Get("user_id"))
	s.metrics.RecordGatewayFetch("pool", time.Since(start), err)
	if err != nil {
		s.logger.Printf("fetch pool %s: %v", poolID, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch pool info")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// analyzeRequest selects the positions to analyze and the analysis knobs.
type analyzeRequest struct {
	UserID string                 `json:"user_id"`
	Config *domain.AnalysisConfig `json:"config"`
}

// analyzeResponse carries the per-position analyses and the aggregate view.
type analyzeResponse struct {
	Analyses []domain.RebalanceAnalysis `json:"analyses"`
	Summary  analysis.Summary           `json:"summary"`
}

// handleAnalyze reruns the rebalancing analysis over the stored positions of
// the requested owner (demo portfolio when none are stored). The run always
// hits the engine: the identity cache serves passive renders, not the
// explicit analyze action.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Config != nil {
		s.presenter.SetConfig(*req.Config)
	}

	owner := req.UserID
	if owner == "" {
		owner = demoOwner
	}
	qs := time.Now()
	stored, err := s.positions.ListByOwner(r.Context(), owner)
	s.metrics.RecordDBQuery("positions", "list", time.Since(qs), err)
	if err != nil {
		s.logger.Printf("list positions for %s: %v", owner, err)
	}

	positions := domain.DemoPositions()
	if len(stored) > 0 {
		positions = make([]domain.Position, 0, len(stored))
		for _, p := range stored {
			positions = append(positions, *p)
		}
	}

	start := time.Now()
	analyses := s.presenter.ForceAnalyze(r.Context(), positions)
	if s.metrics != nil {
		s.metrics.AnalysesRun.Inc()
		s.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	}
	writeJSON(w, http.StatusOK, analyzeResponse{
		Analyses: analyses,
		Summary:  s.presenter.Summarize(),
	})
}

// backtestRequest carries the backtest inputs.
type backtestRequest struct {
	Pair    string                `json:"pair"`
	Capital float64               `json:"capital"`
	Config  domain.BacktestConfig `json:"config"`
}

// handleBacktest runs all catalog strategies, persists the run and returns
// it ranked by Sharpe ratio.
func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req backtestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Capital <= 0 {
		writeError(w, http.StatusBadRequest, "capital must be positive")
		return
	}
	if req.Pair == "" {
		req.Pair = "SOL/USDC"
	}

	start := time.Now()
	results := s.engine.RunBacktest(r.Context(), req.Pair, req.Capital, req.Config)
	if s.metrics != nil {
		s.metrics.BacktestsRun.Inc()
		s.metrics.BacktestDuration.Observe(time.Since(start).Seconds())
	}

	run := &domain.BacktestRun{
		ID:        s.newRunID(),
		CreatedAt: s.now().UnixMilli(),
		Capital:   req.Capital,
		Timeframe: resolvedTimeframe(req.Config.Timeframe),
		Config:    req.Config,
		Results:   results,
	}
	qs := time.Now()
	err := s.runs.Insert(r.Context(), run)
	s.metrics.RecordDBQuery("backtest_runs", "insert", time.Since(qs), err)
	if err != nil {
		s.logger.Printf("store backtest run %s: %v", run.ID, err)
	}
	if s.perf != nil {
		for i := range results {
			qs := time.Now()
			err := s.perf.InsertBulk(r.Context(), run.ID, results[i].Strategy, results[i].PerformanceData)
			s.metrics.RecordDBQuery("performance_points", "insert_bulk", time.Since(qs), err)
			if err != nil {
				s.logger.Printf("store performance series %s/%s: %v", run.ID, results[i].Strategy, err)
			}
		}
	}

	writeJSON(w, http.StatusOK, run)
}

// resolvedTimeframe mirrors the engine's default for an unset timeframe.
func resolvedTimeframe(tf string) string {
	if tf == "" {
		return domain.Timeframe90d
	}
	return tf
}

// handleBacktestExport serves one stored result as a metric,value CSV.
func (s *Server) handleBacktestExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "run_id is required")
		return
	}

	qs := time.Now()
	run, err := s.runs.GetByID(r.Context(), runID)
	s.metrics.RecordDBQuery("backtest_runs", "get", time.Since(qs), err)
	if err != nil {
		writeError(w, http.StatusNotFound, "backtest run not found")
		return
	}
	if len(run.Results) == 0 {
		writeError(w, http.StatusNotFound, "backtest run has no results")
		return
	}

	result := &run.Results[0]
	if strategy := r.URL.Query().Get("strategy"); strategy != "" {
		result = nil
		for i := range run.Results {
			if run.Results[i].Strategy == strategy {
				result = &run.Results[i]
				break
			}
		}
		if result == nil {
			writeError(w, http.StatusNotFound, "strategy not in run")
			return
		}
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="backtest-results.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(analysis.ExportBacktestCSV(result)))
}

// rebalanceRequest picks a recommendation to execute.
type rebalanceRequest struct {
	PositionID string `json:"position_id"`
	Index      int    `json:"index"`
}

// handleRebalance dispatches one recommendation through the presenter.
func (s *Server) handleRebalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req rebalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PositionID == "" {
		writeError(w, http.StatusBadRequest, "position_id is required")
		return
	}

	if !s.presenter.Execute(req.PositionID, req.Index) {
		writeError(w, http.StatusNotFound, "no such position or recommendation")
		return
	}
	if s.metrics != nil {
		s.metrics.RebalancesFired.WithLabelValues("manual").Inc()
	}
	writeJSON(w, http.StatusOK, map[string]bool{"executed": true})
}
