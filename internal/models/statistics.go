package models

// Outcome bucket names, in the order they appear in WinLossData
const (
	OutcomeWins      = "Wins"
	OutcomeLosses    = "Losses"
	OutcomeBreakEven = "Break Even"
)

// PerformancePoint is one point of the cumulative P/L series
type PerformancePoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// OutcomeBucket is one category of the win/loss/breakeven distribution
type OutcomeBucket struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// WeekdayBucket holds the summed P/L of trades dated on one weekday
type WeekdayBucket struct {
	Name string  `json:"name"`
	Pnl  float64 `json:"pnl"`
}

// StatisticsResult is the derived view of a trade list. It is rebuilt on
// every computation and never mutated afterwards.
type StatisticsResult struct {
	TotalPnl           float64            `json:"total_pnl"`
	WinRate            float64            `json:"win_rate"`
	WinningTrades      int                `json:"winning_trades"`
	LosingTrades       int                `json:"losing_trades"`
	BETrades           int                `json:"be_trades"`
	TotalTrades        int                `json:"total_trades"`
	TotalReward        float64            `json:"total_reward"`
	TotalRisk          float64            `json:"total_risk"`
	AverageReward      float64            `json:"average_reward"`
	AverageRisk        float64            `json:"average_risk"`
	RRRatio            float64            `json:"rr_ratio"`
	AvgPnl             float64            `json:"avg_pnl"`
	BestTrade          *Trade             `json:"best_trade"`
	WorstTrade         *Trade             `json:"worst_trade"`
	PerformanceData    []PerformancePoint `json:"performance_data"`
	WinLossData        []OutcomeBucket    `json:"win_loss_data"`
	WeekdayPerformance []WeekdayBucket    `json:"weekday_performance"`
}
