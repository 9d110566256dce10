package export

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/trading-journal/internal/models"
	"github.com/xuri/excelize/v2"
)

// Sheet names
const (
	SummarySheet = "Summary"
	TradesSheet  = "Trades"
)

const dateLayout = "2006-01-02 15:04"

var tradeHeaders = []any{
	"Date", "Asset", "Direction", "Entry Price", "Stop Loss", "Take Profit",
	"Result", "P/L", "Lot Size", "Notes", "Post Analysis",
}

// Round2 rounds a money or ratio value to two decimal places for display
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Workbook builds a two-sheet report: a Summary of stats and the Trades
// they were computed from. Dates are written in loc.
func Workbook(trades []models.Trade, stats models.StatisticsResult, criteria models.FilterCriteria, loc *time.Location) (*excelize.File, error) {
	if loc == nil {
		loc = time.Local
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(TradesSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create trades sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	if err := writeSummary(f, stats, criteria.Normalize(), loc, bold); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeTrades(f, trades, loc, bold); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// Write renders the workbook as XLSX to w
func Write(w io.Writer, trades []models.Trade, stats models.StatisticsResult, criteria models.FilterCriteria, loc *time.Location) error {
	f, err := Workbook(trades, stats, criteria, loc)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, stats models.StatisticsResult, c models.FilterCriteria, loc *time.Location, bold int) error {
	rows := [][]any{
		{"Metric", "Value"},
		{"Date Range", string(c.DateRange)},
		{"Asset", c.Asset},
		{"Result", c.Result},
		{"Direction", c.Direction},
		{"Total P/L", Round2(stats.TotalPnl)},
		{"Win Rate (%)", Round2(stats.WinRate)},
		{"Total Trades", stats.TotalTrades},
		{"Winning Trades", stats.WinningTrades},
		{"Losing Trades", stats.LosingTrades},
		{"Break Even Trades", stats.BETrades},
		{"Average P/L", Round2(stats.AvgPnl)},
		{"Average Reward", Round2(stats.AverageReward)},
		{"Average Risk", Round2(stats.AverageRisk)},
		{"Risk:Reward", Round2(stats.RRRatio)},
		{"Best Trade", tradeLabel(stats.BestTrade, loc)},
		{"Worst Trade", tradeLabel(stats.WorstTrade, loc)},
		{},
		{"Outcome", "Trades"},
	}
	headerRows := []int{1, len(rows)}

	for _, b := range stats.WinLossData {
		rows = append(rows, []any{b.Name, b.Value})
	}
	rows = append(rows, []any{}, []any{"Weekday", "P/L"})
	headerRows = append(headerRows, len(rows))
	for _, b := range stats.WeekdayPerformance {
		rows = append(rows, []any{b.Name, Round2(b.Pnl)})
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if err := setRow(f, SummarySheet, i+1, row); err != nil {
			return err
		}
	}
	for _, r := range headerRows {
		if err := f.SetCellStyle(SummarySheet, cell(1, r), cell(2, r), bold); err != nil {
			return fmt.Errorf("failed to style summary header: %w", err)
		}
	}
	return f.SetColWidth(SummarySheet, "A", "B", 22)
}

func writeTrades(f *excelize.File, trades []models.Trade, loc *time.Location, bold int) error {
	if err := setRow(f, TradesSheet, 1, tradeHeaders); err != nil {
		return err
	}
	if err := f.SetCellStyle(TradesSheet, cell(1, 1), cell(len(tradeHeaders), 1), bold); err != nil {
		return fmt.Errorf("failed to style trades header: %w", err)
	}

	for i, t := range trades {
		row := []any{
			t.Date.In(loc).Format(dateLayout),
			t.Asset,
			string(t.Direction),
			optional(t.EntryPrice),
			optional(t.StopLoss),
			optional(t.TakeProfit),
			string(t.Result),
			Round2(t.Pnl),
			optional(t.LotSize),
			t.Notes,
			t.PostAnalysis,
		}
		if err := setRow(f, TradesSheet, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(TradesSheet, "A", "A", 18); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	return f.SetColWidth(TradesSheet, "J", "K", 40)
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	if err := f.SetSheetRow(sheet, cell(1, row), &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// optional writes nil prices as empty cells
func optional(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func tradeLabel(t *models.Trade, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return fmt.Sprintf("%s %s %s", t.Asset, t.Date.In(loc).Format("2006-01-02"), decimal.NewFromFloat(t.Pnl).StringFixed(2))
}
