// Package main runs a one-shot backtest over the full strategy catalog and
// prints the ranked results.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"dlmm-position-lab/internal/analysis"
	"dlmm-position-lab/internal/domain"
	"dlmm-position-lab/internal/simulation"
)

func main() {
	pair := flag.String("pair", "SOL/USDC", "Pool pair label")
	capital := flag.Float64("capital", 1000, "Initial capital")
	timeframe := flag.String("timeframe", domain.Timeframe90d, "Timeframe: 30d, 90d, 180d, 1y, 2y")
	rangeWidth := flag.Float64("range-width", domain.DefaultBacktestConfig.RangeWidthPct, "Range width percent")
	rebalanceThreshold := flag.Float64("rebalance-threshold", domain.DefaultBacktestConfig.RebalanceThreshold, "Rebalance threshold percent")
	gasPrice := flag.Float64("gas-price", domain.DefaultBacktestConfig.GasPriceSOL, "Gas price in SOL")
	seed := flag.Int64("seed", 0, "Random seed (0 uses current time)")
	delay := flag.Duration("delay", 0, "Simulated backtest latency")
	outputJSON := flag.Bool("json", false, "Output as JSON")
	exportCSV := flag.String("export-csv", "", "Write the top result as CSV to this file")

	flag.Parse()

	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	if *capital <= 0 {
		logger.Fatal("--capital must be positive")
	}
	switch *timeframe {
	case domain.Timeframe30d, domain.Timeframe90d, domain.Timeframe180d, domain.Timeframe1y, domain.Timeframe2y:
	default:
		logger.Fatalf("Invalid timeframe: %s", *timeframe)
	}

	opts := []simulation.Option{simulation.WithBacktestDelay(*delay)}
	if *seed != 0 {
		opts = append(opts, simulation.WithRandSource(rand.NewSource(*seed)))
	}
	engine := simulation.NewEngine(opts...)

	cfg := domain.DefaultBacktestConfig
	cfg.Timeframe = *timeframe
	cfg.RangeWidthPct = *rangeWidth
	cfg.RebalanceThreshold = *rebalanceThreshold
	cfg.GasPriceSOL = *gasPrice

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	results := engine.RunBacktest(ctx, *pair, *capital, cfg)
	logger.Printf("Backtested %d strategies over %s in %v", len(results), cfg.Timeframe, time.Since(start))

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			logger.Fatalf("Encode results: %v", err)
		}
	} else {
		printTable(*pair, *capital, cfg, results)
	}

	if *exportCSV != "" && len(results) > 0 {
		if err := os.WriteFile(*exportCSV, []byte(analysis.ExportBacktestCSV(&results[0])), 0644); err != nil {
			logger.Fatalf("Write CSV: %v", err)
		}
		logger.Printf("Top result written to %s", *exportCSV)
	}
}

// printTable prints the ranked results in a fixed-width table.
func printTable(pair string, capital float64, cfg domain.BacktestConfig, results []domain.BacktestResult) {
	fmt.Printf("Pair:      %s\n", pair)
	fmt.Printf("Capital:   %.2f\n", capital)
	fmt.Printf("Timeframe: %s\n", cfg.Timeframe)
	fmt.Println()

	fmt.Printf("%-4s %-28s %10s %10s %8s %10s %6s\n",
		"Rank", "Strategy", "Return %", "Sharpe", "MaxDD %", "Fees", "Rebal")
	for i, r := range results {
		fmt.Printf("%-4d %-28s %10.2f %10.3f %8.2f %10.2f %6d\n",
			i+1, r.Strategy, r.TotalReturn, r.SharpeRatio, r.MaxDrawdown, r.FeesEarned, r.RebalanceCount)
	}
}
