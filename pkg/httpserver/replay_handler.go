package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dzakarias/orderbook-replayer/internal/book"
	"github.com/dzakarias/orderbook-replayer/internal/replay"
	"github.com/dzakarias/orderbook-replayer/internal/traverse"
)

// ReplayHandler handles HTTP requests for replay operations.
type ReplayHandler struct {
	service *replay.Service
	logger  *zap.Logger
}

// NewReplayHandler creates a new replay handler.
func NewReplayHandler(service *replay.Service, logger *zap.Logger) *ReplayHandler {
	return &ReplayHandler{
		service: service,
		logger:  logger,
	}
}

// OrderBookResponse is the JSON projection of a reconstructed book. Level
// tuples are [price, volume]; asks are ordered best-last.
type OrderBookResponse struct {
	Symbol    string       `json:"symbol"`
	Asks      [][2]float64 `json:"asks"`
	Bids      [][2]float64 `json:"bids"`
	Timestamp int64        `json:"timestamp"`
}

// PriceRangeResponse reports the extremes observed during a move.
type PriceRangeResponse struct {
	LowestAsk  string            `json:"lowest_ask"`
	HighestBid string            `json:"highest_bid"`
	StartTime  int64             `json:"start_time"`
	EndTime    int64             `json:"end_time"`
	Orderbook  OrderBookResponse `json:"orderbook"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

type selectMarketRequest struct {
	Symbol string `json:"symbol"`
	Date   string `json:"date"`
}

type secondsRequest struct {
	Seconds float64 `json:"seconds"`
}

type gotoRequest struct {
	Timestamp int64 `json:"timestamp"`
}

// HandleMarkets handles GET /markets?date=YYYY-MM-DD requests.
func (h *ReplayHandler) HandleMarkets(w http.ResponseWriter, r *http.Request) {
	dateStr := r.URL.Query().Get("date")
	date := time.Now().UTC()
	if dateStr != "" {
		var err error
		date, err = time.Parse("2006-01-02", dateStr)
		if err != nil {
			h.writeError(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	symbols, err := h.service.AvailableMarkets(date)
	if err != nil {
		h.logger.Error("list-markets-error", zap.Error(err))
		h.writeError(w, "failed to list markets", http.StatusInternalServerError)
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	h.writeJSON(w, http.StatusOK, symbols)
}

// HandleSelectMarket handles POST /select_market requests.
func (h *ReplayHandler) HandleSelectMarket(w http.ResponseWriter, r *http.Request) {
	var req selectMarketRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil || req.Symbol == "" || req.Date == "" {
		h.writeError(w, "body must carry symbol and date", http.StatusBadRequest)
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		h.writeError(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	err = h.service.SelectMarket(req.Symbol, date)
	if errors.Is(err, replay.ErrMarketNotFound) {
		h.writeError(w, "market data not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("select-market-error", zap.Error(err))
		h.writeError(w, "failed to select market", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"message": "selected market " + req.Symbol + " for " + req.Date,
	})
}

// HandleStep handles GET /step requests.
func (h *ReplayHandler) HandleStep(w http.ResponseWriter, r *http.Request) {
	ob, err := h.service.Step()
	h.respondOrderbook(w, ob, err)
}

// HandleSkip handles POST /skip requests.
func (h *ReplayHandler) HandleSkip(w http.ResponseWriter, r *http.Request) {
	var req secondsRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.writeError(w, "body must carry seconds", http.StatusUnprocessableEntity)
		return
	}

	ob, err := h.service.Skip(req.Seconds)
	h.respondOrderbook(w, ob, err)
}

// HandleGoto handles POST /goto requests with a millisecond timestamp.
func (h *ReplayHandler) HandleGoto(w http.ResponseWriter, r *http.Request) {
	var req gotoRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.writeError(w, "body must carry timestamp", http.StatusUnprocessableEntity)
		return
	}

	ob, err := h.service.Goto(req.Timestamp)
	h.respondOrderbook(w, ob, err)
}

// HandleMove handles POST /move requests.
func (h *ReplayHandler) HandleMove(w http.ResponseWriter, r *http.Request) {
	var req secondsRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.writeError(w, "body must carry seconds", http.StatusUnprocessableEntity)
		return
	}

	priceRange, ob, err := h.service.Move(req.Seconds)
	if errors.Is(err, traverse.ErrNonPositiveInterval) {
		h.writeError(w, "seconds must be positive", http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		h.respondOrderbook(w, nil, err)
		return
	}

	h.writeJSON(w, http.StatusOK, PriceRangeResponse{
		LowestAsk:  priceRange.LowestAsk.String(),
		HighestBid: priceRange.HighestBid.String(),
		StartTime:  priceRange.StartTime,
		EndTime:    priceRange.EndTime,
		Orderbook:  toResponse(ob),
	})
}

// HandleReset handles GET /reset requests.
func (h *ReplayHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ob, err := h.service.Reset()
	h.respondOrderbook(w, ob, err)
}

// HandleOrderbook handles GET /orderbook requests.
func (h *ReplayHandler) HandleOrderbook(w http.ResponseWriter, r *http.Request) {
	ob, err := h.service.Orderbook()
	h.respondOrderbook(w, ob, err)
}

func (h *ReplayHandler) respondOrderbook(w http.ResponseWriter, ob *book.OrderBook, err error) {
	if errors.Is(err, replay.ErrNoMarketSelected) {
		h.writeError(w, "no market selected", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Error("replay-operation-error", zap.Error(err))
		h.writeError(w, "replay operation failed", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, toResponse(ob))
}

func toResponse(ob *book.OrderBook) OrderBookResponse {
	resp := OrderBookResponse{
		Symbol:    ob.Symbol,
		Asks:      make([][2]float64, 0, len(ob.Asks)),
		Bids:      make([][2]float64, 0, len(ob.Bids)),
		Timestamp: ob.Timestamp,
	}
	for _, lvl := range ob.Asks {
		resp.Asks = append(resp.Asks, [2]float64{lvl.Price, lvl.Volume})
	}
	for _, lvl := range ob.Bids {
		resp.Bids = append(resp.Bids, [2]float64{lvl.Price, lvl.Volume})
	}
	return resp
}

func (h *ReplayHandler) writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func (h *ReplayHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	h.writeJSON(w, statusCode, ErrorResponse{Error: message})
}
