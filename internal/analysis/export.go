package analysis

import (
	"fmt"
	"strings"

	"dlmm-position-lab/internal/domain"
)

// ExportBacktestCSV renders one backtest result as a flat metric,value
// table: header row then one row per scalar metric.
func ExportBacktestCSV(r *domain.BacktestResult) string {
	var sb strings.Builder

	sb.WriteString("Metric,Value\n")
	row := func(metric, value string) {
		sb.WriteString(metric)
		sb.WriteString(",")
		sb.WriteString(value)
		sb.WriteString("\n")
	}

	row("Strategy", r.Strategy)
	row("Timeframe", r.Timeframe)
	row("Total Return", fmt.Sprintf("%.2f%%", r.TotalReturn))
	row("Annualized Return", fmt.Sprintf("%.2f%%", r.AnnualizedReturn))
	row("Max Drawdown", fmt.Sprintf("%.2f%%", r.MaxDrawdown))
	row("Sharpe Ratio", fmt.Sprintf("%.3f", r.SharpeRatio))
	row("Sortino Ratio", fmt.Sprintf("%.3f", r.SortinoRatio))
	row("Calmar Ratio", fmt.Sprintf("%.3f", r.CalmarRatio))
	row("Fees Earned", fmt.Sprintf("%.2f", r.FeesEarned))
	row("Impermanent Loss", fmt.Sprintf("%.2f%%", r.ImpermanentLoss))
	row("Gas Spent", fmt.Sprintf("%.4f", r.GasSpent))
	row("Rebalance Count", fmt.Sprintf("%d", r.RebalanceCount))
	row("Win Rate", fmt.Sprintf("%.1f%%", r.WinRate))
	row("Profit Factor", fmt.Sprintf("%.2f", r.ProfitFactor))
	row("Volatility", fmt.Sprintf("%.1f%%", r.Volatility))
	row("Beta", fmt.Sprintf("%.3f", r.Beta))
	row("Alpha", fmt.Sprintf("%.2f%%", r.Alpha))

	return sb.String()
}
