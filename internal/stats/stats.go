package stats

import (
	"math"
	"sort"
	"strings"

	"trade-journal-go/internal/models"
)

// UnassignedStrategy is the group for closed trades without a strategy tag.
const UnassignedStrategy = "Unassigned"

// Stats is the aggregate output over a set of trades. Only trades with a
// realized P&L participate; when none exist every field is zero. No
// rounding is applied here; presentation rounding is the caller's problem.
type Stats struct {
	TotalPnl    float64 `json:"total_pnl"`
	WinRate     float64 `json:"win_rate"`
	AvgWin      float64 `json:"avg_win"`
	AvgLoss     float64 `json:"avg_loss"` // mean of negative P&Ls, itself <= 0
	TotalTrades int     `json:"total_trades"`
	BestTrade   float64 `json:"best_trade"`
	WorstTrade  float64 `json:"worst_trade"`
}

// Compute derives aggregate win-rate and P&L statistics from a trade set.
// A trade with P&L exactly zero counts toward TotalTrades but is neither a
// win nor a loss.
func Compute(trades []models.Trade) Stats {
	var pnls []float64
	for _, t := range trades {
		if t.Pnl != nil {
			pnls = append(pnls, *t.Pnl)
		}
	}
	if len(pnls) == 0 {
		return Stats{}
	}

	var total, winSum, lossSum float64
	var wins, losses int
	best := math.Inf(-1)
	worst := math.Inf(1)

	for _, p := range pnls {
		total += p
		if p > 0 {
			wins++
			winSum += p
		} else if p < 0 {
			losses++
			lossSum += p
		}
		if p > best {
			best = p
		}
		if p < worst {
			worst = p
		}
	}

	s := Stats{
		TotalPnl:    total,
		WinRate:     float64(wins) / float64(len(pnls)) * 100,
		TotalTrades: len(pnls),
		BestTrade:   math.Max(best, 0),
		WorstTrade:  math.Min(worst, 0),
	}
	if wins > 0 {
		s.AvgWin = winSum / float64(wins)
	}
	if losses > 0 {
		s.AvgLoss = lossSum / float64(losses)
	}
	return s
}

// CumulativePoint is one step of the equity curve.
type CumulativePoint struct {
	Date string  `json:"date"`
	Pnl  float64 `json:"pnl"`
}

// CumulativePnl builds the running-sum equity series over closed trades
// ordered by closing time. Points are rounded to 2 decimals, with a
// synthetic leading zero point so charts anchor at the origin.
func CumulativePnl(trades []models.Trade) []CumulativePoint {
	var closed []models.Trade
	for _, t := range trades {
		if t.Pnl != nil && t.ClosedAt != nil {
			closed = append(closed, t)
		}
	}
	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].ClosedAt.Before(*closed[j].ClosedAt)
	})

	if len(closed) == 0 {
		return nil
	}

	points := make([]CumulativePoint, 0, len(closed)+1)
	points = append(points, CumulativePoint{Date: "", Pnl: 0})

	var cumulative float64
	for _, t := range closed {
		cumulative += *t.Pnl
		points = append(points, CumulativePoint{
			Date: t.ClosedAt.Format("Jan 2"),
			Pnl:  round2(cumulative),
		})
	}
	return points
}

// SymbolPnl is one symbol's summed P&L.
type SymbolPnl struct {
	Symbol string  `json:"symbol"`
	Pnl    float64 `json:"pnl"`
}

// PnlBySymbol sums realized P&L per symbol, rounded to 2 decimals, sorted
// descending.
func PnlBySymbol(trades []models.Trade) []SymbolPnl {
	totals := make(map[string]float64)
	for _, t := range trades {
		if t.Pnl != nil {
			totals[t.Symbol] += *t.Pnl
		}
	}

	out := make([]SymbolPnl, 0, len(totals))
	for symbol, pnl := range totals {
		out = append(out, SymbolPnl{Symbol: symbol, Pnl: round2(pnl)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pnl != out[j].Pnl {
			return out[i].Pnl > out[j].Pnl
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// StrategyStats is one strategy group's full aggregate output.
type StrategyStats struct {
	Strategy string `json:"strategy"`
	Stats
}

// ByStrategy groups closed trades by their trimmed strategy tag, with
// untagged trades pooled under UnassignedStrategy, and computes full stats
// per group. Groups are sorted by trade count descending.
func ByStrategy(trades []models.Trade) []StrategyStats {
	groups := make(map[string][]models.Trade)
	for _, t := range trades {
		if t.Pnl == nil {
			continue
		}
		name := UnassignedStrategy
		if t.Strategy != nil {
			if trimmed := strings.TrimSpace(*t.Strategy); trimmed != "" {
				name = trimmed
			}
		}
		groups[name] = append(groups[name], t)
	}

	out := make([]StrategyStats, 0, len(groups))
	for name, group := range groups {
		out = append(out, StrategyStats{Strategy: name, Stats: Compute(group)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalTrades != out[j].TotalTrades {
			return out[i].TotalTrades > out[j].TotalTrades
		}
		return out[i].Strategy < out[j].Strategy
	})
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
