package analytics

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/trogers1052/trading-journal/internal/models"
)

var weekdayNames = [...]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// Aggregate derives every statistic of the trade list. It always returns;
// an empty list yields the zero result. Trades are expected to carry a
// known Result (the ingest package enforces this): an unknown value counts
// toward TotalTrades and P/L but no outcome bucket. Non-finite numbers are
// treated as zero, and so is any sum or ratio that overflows float64.
func Aggregate(trades []models.Trade, opts Options) models.StatisticsResult {
	res := models.StatisticsResult{
		PerformanceData:    []models.PerformancePoint{},
		WeekdayPerformance: weekdayBuckets(opts.IncludeWeekends),
	}
	if len(trades) == 0 {
		res.WinLossData = outcomeBuckets(0, 0, 0)
		return res
	}

	loc := opts.location()
	best, worst := 0, 0
	for i := range trades {
		t := &trades[i]
		pnl := finite(t.Pnl)
		res.TotalPnl += pnl

		switch t.Result {
		case models.ResultWin:
			res.WinningTrades++
			if reward, ok := t.Reward(); ok {
				res.TotalReward += finite(reward)
			}
		case models.ResultLoss:
			res.LosingTrades++
			if risk, ok := t.Risk(); ok {
				res.TotalRisk += finite(risk)
			}
		case models.ResultBE:
			res.BETrades++
		}

		if pnl > finite(trades[best].Pnl) {
			best = i
		}
		if pnl < finite(trades[worst].Pnl) {
			worst = i
		}

		if idx, ok := weekdayIndex(t.Date.In(loc).Weekday(), opts.IncludeWeekends); ok {
			res.WeekdayPerformance[idx].Pnl += pnl
		}
	}

	res.TotalPnl = finite(res.TotalPnl)
	res.TotalReward = finite(res.TotalReward)
	res.TotalRisk = finite(res.TotalRisk)
	for i := range res.WeekdayPerformance {
		res.WeekdayPerformance[i].Pnl = finite(res.WeekdayPerformance[i].Pnl)
	}

	res.TotalTrades = len(trades)
	res.WinRate = winRate(res.WinningTrades, res.LosingTrades, res.TotalTrades, opts.WinRateDenominator)
	res.AverageReward = ratio(res.TotalReward, float64(res.WinningTrades))
	res.AverageRisk = ratio(res.TotalRisk, float64(res.LosingTrades))
	res.RRRatio = ratio(res.AverageReward, res.AverageRisk)
	res.AvgPnl = ratio(res.TotalPnl, float64(res.TotalTrades))

	bestTrade, worstTrade := trades[best], trades[worst]
	res.BestTrade = &bestTrade
	res.WorstTrade = &worstTrade

	res.PerformanceData = cumulativePnl(trades)
	res.WinLossData = outcomeBuckets(res.WinningTrades, res.LosingTrades, res.BETrades)
	return res
}

// cumulativePnl sorts a copy of trades by date, oldest first, keeping input
// order for equal dates, and emits the running P/L after each trade.
func cumulativePnl(trades []models.Trade) []models.PerformancePoint {
	sorted := slices.Clone(trades)
	slices.SortStableFunc(sorted, func(a, b models.Trade) int {
		return a.Date.Compare(b.Date)
	})

	points := make([]models.PerformancePoint, len(sorted))
	var running float64
	for i := range sorted {
		running += finite(sorted[i].Pnl)
		points[i] = models.PerformancePoint{
			Label: fmt.Sprintf("Trade #%d", i+1),
			Value: finite(running),
		}
	}
	return points
}

func winRate(wins, losses, total int, denominator WinRateDenominator) float64 {
	d := total
	if denominator == DenominatorDecisive {
		d = wins + losses
	}
	if d <= 0 {
		return 0
	}
	return float64(wins) / float64(d) * 100
}

func ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return finite(num / den)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func outcomeBuckets(wins, losses, be int) []models.OutcomeBucket {
	return []models.OutcomeBucket{
		{Name: models.OutcomeWins, Value: wins},
		{Name: models.OutcomeLosses, Value: losses},
		{Name: models.OutcomeBreakEven, Value: be},
	}
}

func weekdayBuckets(includeWeekends bool) []models.WeekdayBucket {
	n := 5
	if includeWeekends {
		n = 7
	}
	buckets := make([]models.WeekdayBucket, n)
	for i := range buckets {
		buckets[i].Name = weekdayNames[i]
	}
	return buckets
}

// weekdayIndex maps Monday..Sunday to 0..6
func weekdayIndex(d time.Weekday, includeWeekends bool) (int, bool) {
	idx := (int(d) + 6) % 7
	if idx >= 5 && !includeWeekends {
		return 0, false
	}
	return idx, true
}
