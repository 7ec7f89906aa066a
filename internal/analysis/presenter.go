// Package analysis turns simulation engine output into ranked, aggregated
// views and routes user-selected recommendations back to the caller.
package analysis

import (
	"context"
	"log"
	"strings"
	"sync"

	"dlmm-position-lab/internal/domain"
	"dlmm-position-lab/internal/simulation"
)

// RebalanceFunc receives a user-selected (or auto-triggered) recommendation.
// The presenter invokes it exactly once per execute action, with no retry
// or queuing.
type RebalanceFunc func(positionID string, rec domain.Recommendation)

// Summary aggregates metrics across all current analyses.
type Summary struct {
	PositionsAnalyzed     int     `json:"positions_analyzed"`
	HighRiskPositions     int     `json:"high_risk_positions"`
	OptimizationPotential float64 `json:"optimization_potential"` // sum(100 - efficiency)
	EstGasSavingsSOL      float64 `json:"est_gas_savings_sol"`

	TotalTVL   float64 `json:"total_tvl"`
	TotalFees  float64 `json:"total_fees"`
	AverageAPY float64 `json:"average_apy"`
}

// Presenter owns the current position set and its derived analyses.
// Positions are replaced wholesale; analyses re-run only when the position
// set identity changes. Overlapping refreshes are not serialized: the last
// one to finish wins, matching the dashboard's behavior.
type Presenter struct {
	engine      *simulation.Engine
	onRebalance RebalanceFunc
	logger      *log.Logger

	// EstGasSavings is a configured display estimate, not a computation.
	estGasSavings float64

	mu          sync.Mutex
	positions   []domain.Position
	fingerprint string
	stale       bool
	analyses    []domain.RebalanceAnalysis
	config      domain.AnalysisConfig
	onPositions func(pairs []string)
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithLogger sets the presenter's logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Presenter) {
		p.logger = l
	}
}

// WithGasSavingsEstimate sets the displayed gas-savings figure.
func WithGasSavingsEstimate(sol float64) Option {
	return func(p *Presenter) {
		p.estGasSavings = sol
	}
}

// NewPresenter creates a presenter. onRebalance may be nil, in which case
// execute actions are dropped with a log line.
func NewPresenter(engine *simulation.Engine, onRebalance RebalanceFunc, opts ...Option) *Presenter {
	p := &Presenter{
		engine:        engine,
		onRebalance:   onRebalance,
		logger:        log.New(log.Writer(), "[analysis] ", log.LstdFlags),
		estGasSavings: 0.025,
		config:        domain.DefaultAnalysisConfig,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetConfig replaces the analysis parameters and marks the cached analyses
// stale, so the next SetPositions re-runs even over an unchanged set.
func (p *Presenter) SetConfig(cfg domain.AnalysisConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config = cfg
	p.stale = true
}

// SetPositionsListener registers fn to be called with the distinct pair
// labels whenever the held position set identity changes. Used to keep the
// live feed subscription aligned with the tracked pools. Must be set before
// the presenter starts receiving positions.
func (p *Presenter) SetPositionsListener(fn func(pairs []string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onPositions = fn
}

// SetPositions replaces the held position set. If the set identity (the
// ordered ID list) changed, analyses are re-run; otherwise the cached
// analyses stand. Returns the current analyses either way.
func (p *Presenter) SetPositions(ctx context.Context, positions []domain.Position) []domain.RebalanceAnalysis {
	fp := fingerprint(positions)

	p.mu.Lock()
	unchanged := !p.stale && fp == p.fingerprint && p.analyses != nil
	identityChanged := fp != p.fingerprint
	p.positions = positions
	p.fingerprint = fp
	p.stale = false
	cfg := p.config
	cached := p.analyses
	listener := p.onPositions
	p.mu.Unlock()

	if identityChanged && listener != nil {
		listener(pairLabels(positions))
	}
	if unchanged {
		return cached
	}
	return p.refresh(ctx, positions, cfg)
}

// ForceAnalyze replaces the held position set and re-runs the analysis
// unconditionally. Explicit user-initiated runs go through here so they
// never get the identity-cached result of a previous run.
func (p *Presenter) ForceAnalyze(ctx context.Context, positions []domain.Position) []domain.RebalanceAnalysis {
	fp := fingerprint(positions)

	p.mu.Lock()
	identityChanged := fp != p.fingerprint
	p.positions = positions
	p.fingerprint = fp
	p.stale = false
	cfg := p.config
	listener := p.onPositions
	p.mu.Unlock()

	if identityChanged && listener != nil {
		listener(pairLabels(positions))
	}
	return p.refresh(ctx, positions, cfg)
}

// Reanalyze forces a new analysis run over the current position set.
func (p *Presenter) Reanalyze(ctx context.Context) []domain.RebalanceAnalysis {
	p.mu.Lock()
	positions := p.positions
	cfg := p.config
	p.mu.Unlock()
	return p.refresh(ctx, positions, cfg)
}

// ApplyPriceTick updates the current price of every held position on the
// given pair and recomputes its in-range flag. Returns whether any position
// matched; callers re-run the analysis when one did.
func (p *Presenter) ApplyPriceTick(pair string, price float64) bool {
	if pair == "" || price <= 0 {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	matched := false
	for i := range p.positions {
		if p.positions[i].Pair != pair {
			continue
		}
		p.positions[i].CurrentPrice = price
		p.positions[i].InRange = p.positions[i].Range.Contains(price)
		matched = true
	}
	return matched
}

// refresh runs the engine and stores the result. Concurrent calls are not
// serialized; the last writer wins.
func (p *Presenter) refresh(ctx context.Context, positions []domain.Position, cfg domain.AnalysisConfig) []domain.RebalanceAnalysis {
	analyses := p.engine.AnalyzeRebalancing(ctx, positions, cfg)

	p.mu.Lock()
	p.analyses = analyses
	p.mu.Unlock()

	if cfg.AutoRebalance {
		p.autoRebalance(analyses)
	}
	return analyses
}

// autoRebalance fires the callback for positions whose efficiency dropped
// below the floor, using each analysis's top-confidence recommendation.
func (p *Presenter) autoRebalance(analyses []domain.RebalanceAnalysis) {
	for _, a := range analyses {
		if a.CurrentEfficiency >= domain.AutoRebalanceFloor || len(a.Recommendations) == 0 {
			continue
		}
		p.dispatch(a.PositionID, a.Recommendations[0])
	}
}

// Analyses returns the current analyses.
func (p *Presenter) Analyses() []domain.RebalanceAnalysis {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.analyses
}

// Execute dispatches the recommendation at recIndex of the analysis for
// positionID to the rebalance callback. Returns false if no such analysis
// or recommendation exists.
func (p *Presenter) Execute(positionID string, recIndex int) bool {
	p.mu.Lock()
	var rec *domain.Recommendation
	for _, a := range p.analyses {
		if a.PositionID != positionID {
			continue
		}
		if recIndex >= 0 && recIndex < len(a.Recommendations) {
			r := a.Recommendations[recIndex]
			rec = &r
		}
		break
	}
	p.mu.Unlock()

	if rec == nil {
		return false
	}
	p.dispatch(positionID, *rec)
	return true
}

// dispatch invokes the callback once, outside the presenter lock.
func (p *Presenter) dispatch(positionID string, rec domain.Recommendation) {
	if p.onRebalance == nil {
		p.logger.Printf("dropping rebalance for %s (%s): no callback configured", positionID, rec.Strategy)
		return
	}
	p.onRebalance(positionID, rec)
}

// Summarize aggregates the current analyses and position economics.
func (p *Presenter) Summarize() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Summary{
		PositionsAnalyzed: len(p.analyses),
		EstGasSavingsSOL:  p.estGasSavings,
	}
	for _, a := range p.analyses {
		if a.RiskLevel == domain.RiskHigh {
			s.HighRiskPositions++
		}
		s.OptimizationPotential += 100 - a.CurrentEfficiency
	}
	for _, pos := range p.positions {
		s.TotalTVL += pos.TVL
		s.TotalFees += pos.FeesEarned
		s.AverageAPY += pos.APY
	}
	if len(p.positions) > 0 {
		s.AverageAPY /= float64(len(p.positions))
	}
	return s
}

// pairLabels returns the distinct pair labels in first-seen order.
func pairLabels(positions []domain.Position) []string {
	seen := make(map[string]struct{}, len(positions))
	pairs := make([]string, 0, len(positions))
	for _, p := range positions {
		if _, ok := seen[p.Pair]; ok {
			continue
		}
		seen[p.Pair] = struct{}{}
		pairs = append(pairs, p.Pair)
	}
	return pairs
}

// fingerprint derives the position-set identity from the ordered ID list.
func fingerprint(positions []domain.Position) string {
	ids := make([]string, len(positions))
	for i, p := range positions {
		ids[i] = p.ID
	}
	return strings.Join(ids, "\x00")
}
