package ingest

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/trogers1052/trading-journal/internal/models"
)

// ErrInvalidTrade is returned when a record fails validation
var ErrInvalidTrade = errors.New("invalid trade")

// Normalizer converts raw records into trades the analytics core accepts
type Normalizer struct {
	validate *validator.Validate
	loc      *time.Location
}

// NewNormalizer creates a Normalizer that reads zone-less dates in loc
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	v := validator.New()
	v.RegisterValidation("finite", isFinite)
	return &Normalizer{validate: v, loc: loc}
}

// tradeInput mirrors models.Trade with the validation rules applied at the boundary
type tradeInput struct {
	UserID     string   `validate:"required,max=128"`
	Asset      string   `validate:"required,max=32"`
	Direction  string   `validate:"required,oneof=Buy Sell"`
	Result     string   `validate:"required,oneof=Win Loss BE"`
	EntryPrice *float64 `validate:"omitempty,finite,gt=0"`
	StopLoss   *float64 `validate:"omitempty,finite,gt=0"`
	TakeProfit *float64 `validate:"omitempty,finite,gt=0"`
	LotSize    *float64 `validate:"omitempty,finite,gt=0"`
	Pnl        float64  `validate:"finite"`
	URL        string   `validate:"omitempty,url"`
}

// Trade validates raw and returns the normalized trade. A missing pnl
// becomes zero; an unknown result or direction is rejected.
func (n *Normalizer) Trade(raw models.RawTrade) (models.Trade, error) {
	date, err := ParseDate(raw.Date, n.loc)
	if err != nil {
		return models.Trade{}, fmt.Errorf("%w: %w", ErrInvalidTrade, err)
	}

	var pnl float64
	if raw.Pnl != nil {
		pnl = *raw.Pnl
	}

	in := tradeInput{
		UserID:     strings.TrimSpace(raw.UserID),
		Asset:      strings.TrimSpace(raw.Asset),
		Direction:  raw.Direction,
		Result:     raw.Result,
		EntryPrice: raw.EntryPrice,
		StopLoss:   raw.StopLoss,
		TakeProfit: raw.TakeProfit,
		LotSize:    raw.LotSize,
		Pnl:        pnl,
		URL:        raw.ScreenshotURL,
	}
	if err := n.validate.Struct(in); err != nil {
		return models.Trade{}, fmt.Errorf("%w: %s", ErrInvalidTrade, describe(err))
	}

	return models.Trade{
		UserID:        in.UserID,
		Date:          date,
		Asset:         in.Asset,
		Direction:     models.Direction(in.Direction),
		EntryPrice:    raw.EntryPrice,
		StopLoss:      raw.StopLoss,
		TakeProfit:    raw.TakeProfit,
		Result:        models.Result(in.Result),
		Pnl:           pnl,
		LotSize:       raw.LotSize,
		Notes:         raw.Notes,
		ScreenshotURL: raw.ScreenshotURL,
	}, nil
}

// Trades normalizes every record, stopping at the first failure
func (n *Normalizer) Trades(raws []models.RawTrade) ([]models.Trade, error) {
	trades := make([]models.Trade, 0, len(raws))
	for i, raw := range raws {
		t, err := n.Trade(raw)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		trades = append(trades, t)
	}
	return trades, nil
}

// analysisInput bounds a post-trade review to 10000 characters
type analysisInput struct {
	PostAnalysis string `validate:"max=10000"`
}

// PostAnalysis validates a post-trade review and returns it trimmed
func (n *Normalizer) PostAnalysis(text string) (string, error) {
	in := analysisInput{PostAnalysis: strings.TrimSpace(text)}
	if err := n.validate.Struct(in); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidTrade, describe(err))
	}
	return in.PostAnalysis, nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(parts, ", ")
}

func isFinite(fl validator.FieldLevel) bool {
	v := fl.Field().Float()
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
