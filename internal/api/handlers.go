package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/trogers1052/trading-journal/internal/export"
	"github.com/trogers1052/trading-journal/internal/ingest"
	"github.com/trogers1052/trading-journal/internal/models"
	"github.com/trogers1052/trading-journal/internal/service"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxBodyBytes = 1 << 20

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// JournalService defines the journal operations the HTTP layer exposes
type JournalService interface {
	Trade(ctx context.Context, userID, id string) (*models.Trade, error)
	Trades(ctx context.Context, userID string, criteria models.FilterCriteria) ([]models.Trade, error)
	Stats(ctx context.Context, userID string, criteria models.FilterCriteria) (models.StatisticsResult, error)
	RecordTrade(ctx context.Context, t *models.Trade) error
	UpdateTrade(ctx context.Context, t *models.Trade) error
	DeleteTrade(ctx context.Context, userID, id string) error
	ReviewQueue(ctx context.Context, userID string, criteria models.FilterCriteria) ([]models.Trade, error)
	SaveReview(ctx context.Context, userID, id, analysis string) (*models.Trade, error)
	Snapshot(ctx context.Context, userID string, criteria models.FilterCriteria) (*models.JournalView, error)
	IssueShareLink(ctx context.Context, userID string) (*models.ShareToken, error)
	SharedView(ctx context.Context, token string, criteria models.FilterCriteria) (*models.JournalView, error)
}

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	svc        JournalService
	normalizer *ingest.Normalizer
	db         Pinger
	loc        *time.Location
	logger     *zap.Logger
}

// NewHandler creates a new Handler. Exported workbooks show dates in loc.
func NewHandler(svc JournalService, normalizer *ingest.Normalizer, db Pinger, loc *time.Location, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		svc:        svc,
		normalizer: normalizer,
		db:         db,
		loc:        loc,
		logger:     logger.Named("api"),
	}
}

// ListTrades handles GET /users/{userId}/trades
func (h *Handler) ListTrades(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaFromQuery(r.URL.Query())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	trades, err := h.svc.Trades(r.Context(), mux.Vars(r)["userId"], criteria)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, trades)
}

// GetTrade handles GET /users/{userId}/trades/{tradeId}
func (h *Handler) GetTrade(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if !validTradeID(w, vars["tradeId"]) {
		return
	}

	trade, err := h.svc.Trade(r.Context(), vars["userId"], vars["tradeId"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, trade)
}

// CreateTrade handles POST /users/{userId}/trades
func (h *Handler) CreateTrade(w http.ResponseWriter, r *http.Request) {
	trade, ok := h.decodeTrade(w, r)
	if !ok {
		return
	}

	if err := h.svc.RecordTrade(r.Context(), &trade); err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, trade)
}

// UpdateTrade handles PUT /users/{userId}/trades/{tradeId}
func (h *Handler) UpdateTrade(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["tradeId"]
	if !validTradeID(w, id) {
		return
	}

	trade, ok := h.decodeTrade(w, r)
	if !ok {
		return
	}
	trade.ID = id

	if err := h.svc.UpdateTrade(r.Context(), &trade); err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, trade)
}

// DeleteTrade handles DELETE /users/{userId}/trades/{tradeId}
func (h *Handler) DeleteTrade(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if !validTradeID(w, vars["tradeId"]) {
		return
	}

	if err := h.svc.DeleteTrade(r.Context(), vars["userId"], vars["tradeId"]); err != nil {
		h.respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListReview handles GET /users/{userId}/review
func (h *Handler) ListReview(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaFromQuery(r.URL.Query())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	trades, err := h.svc.ReviewQueue(r.Context(), mux.Vars(r)["userId"], criteria)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, trades)
}

// SaveReview handles PATCH /users/{userId}/trades/{tradeId}/analysis
func (h *Handler) SaveReview(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if !validTradeID(w, vars["tradeId"]) {
		return
	}

	var req struct {
		PostAnalysis string `json:"post_analysis"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	analysis, err := h.normalizer.PostAnalysis(req.PostAnalysis)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	trade, err := h.svc.SaveReview(r.Context(), vars["userId"], vars["tradeId"], analysis)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, trade)
}

// GetStats handles GET /users/{userId}/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaFromQuery(r.URL.Query())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	stats, err := h.svc.Stats(r.Context(), mux.Vars(r)["userId"], criteria)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// ExportWorkbook handles GET /users/{userId}/export.xlsx
func (h *Handler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	criteria, err := criteriaFromQuery(r.URL.Query())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	view, err := h.svc.Snapshot(r.Context(), userID, criteria)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, view.Trades, view.Stats, criteria, h.loc); err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="journal-%s.xlsx"`, criteria.DateRange))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// CreateShareLink handles POST /users/{userId}/share
func (h *Handler) CreateShareLink(w http.ResponseWriter, r *http.Request) {
	token, err := h.svc.IssueShareLink(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"token":      token.Token,
		"expires_at": token.ExpiresAt,
	})
}

// GetSharedView handles GET /share/{token}
func (h *Handler) GetSharedView(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaFromQuery(r.URL.Query())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	view, err := h.svc.SharedView(r.Context(), mux.Vars(r)["token"], criteria)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// decodeTrade reads a raw trade from the body and normalizes it. The user
// in the path always wins over one in the body.
func (h *Handler) decodeTrade(w http.ResponseWriter, r *http.Request) (models.Trade, bool) {
	var raw models.RawTrade
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&raw); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return models.Trade{}, false
	}
	raw.UserID = mux.Vars(r)["userId"]

	trade, err := h.normalizer.Trade(raw)
	if err != nil {
		h.respondError(w, r, err)
		return models.Trade{}, false
	}
	return trade, true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, service.ErrShareExpired):
		http.Error(w, err.Error(), http.StatusGone)
	case errors.Is(err, models.ErrUnknownDateRange), errors.Is(err, ingest.ErrInvalidTrade):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func criteriaFromQuery(q url.Values) (models.FilterCriteria, error) {
	dateRange, err := models.ParseDateRange(q.Get("range"))
	if err != nil {
		return models.FilterCriteria{}, err
	}
	return models.FilterCriteria{
		DateRange: dateRange,
		Asset:     q.Get("asset"),
		Result:    q.Get("result"),
		Direction: q.Get("direction"),
	}.Normalize(), nil
}

func validTradeID(w http.ResponseWriter, id string) bool {
	if _, err := uuid.Parse(id); err != nil {
		http.Error(w, "invalid trade id", http.StatusBadRequest)
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
