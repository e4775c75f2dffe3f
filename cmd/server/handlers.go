package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"trade-journal-go/internal/hyperliquid"
	"trade-journal-go/internal/models"
	"trade-journal-go/internal/stats"
	"trade-journal-go/internal/store"
	syncpkg "trade-journal-go/internal/sync"
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log         *zap.Logger
	trades      *store.TradeStore
	connections *store.ConnectionStore
	syncer      *syncpkg.Syncer
	client      hyperliquid.ClientInterface
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, trades *store.TradeStore, connections *store.ConnectionStore, syncer *syncpkg.Syncer, client hyperliquid.ClientInterface) *APIHandler {
	return &APIHandler{log: log, trades: trades, connections: connections, syncer: syncer, client: client}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// userID pulls the calling user from the request. Identity management is
// out of scope here; the upstream proxy is trusted to set this.
func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return r.URL.Query().Get("user")
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := userID(r)
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing user")
		return "", false
	}
	return id, true
}

// HealthHandler reports liveness.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListTradesHandler returns the user's active trades, optionally filtered
// by symbol, direction, strategy, or source.
func (h *APIHandler) ListTradesHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := store.TradeFilter{
		Symbol:    q.Get("symbol"),
		Direction: q.Get("direction"),
		Strategy:  q.Get("strategy"),
		Source:    q.Get("source"),
	}

	trades, err := h.trades.ActiveForUser(user, filter)
	if err != nil {
		h.log.Error("Failed to list trades", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

// tradeForm is the request body for creating or editing a manual trade.
type tradeForm struct {
	Symbol     string     `json:"symbol"`
	Direction  string     `json:"direction"`
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  *float64   `json:"exit_price"`
	Size       float64    `json:"size"`
	Fees       float64    `json:"fees"`
	Pnl        *float64   `json:"pnl"`
	Strategy   *string    `json:"strategy"`
	Exchange   *string    `json:"exchange"`
	Notes      *string    `json:"notes"`
	OpenedAt   time.Time  `json:"opened_at"`
	ClosedAt   *time.Time `json:"closed_at"`
}

func (f *tradeForm) validate() string {
	if f.Symbol == "" {
		return "symbol is required"
	}
	if f.Direction != models.DirectionLong && f.Direction != models.DirectionShort {
		return "direction must be long or short"
	}
	if f.Size <= 0 {
		return "size must be positive"
	}
	if f.Fees < 0 {
		return "fees must not be negative"
	}
	return ""
}

// CreateTradeHandler records a manually entered trade.
func (h *APIHandler) CreateTradeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var form tradeForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	if msg := form.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	trade := models.Trade{
		UserID:     user,
		Symbol:     form.Symbol,
		Direction:  form.Direction,
		EntryPrice: form.EntryPrice,
		ExitPrice:  form.ExitPrice,
		Size:       form.Size,
		Fees:       form.Fees,
		Pnl:        form.Pnl,
		Strategy:   form.Strategy,
		Exchange:   form.Exchange,
		Notes:      form.Notes,
		OpenedAt:   form.OpenedAt,
		ClosedAt:   form.ClosedAt,
		Source:     models.SourceManual,
	}
	if err := h.trades.Create(&trade); err != nil {
		h.log.Error("Failed to create trade", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create trade")
		return
	}
	writeJSON(w, http.StatusCreated, trade)
}

// UpdateTradeHandler edits a manual trade. Synced trades are immutable
// once inserted.
func (h *APIHandler) UpdateTradeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	trade, err := h.trades.Get(user, r.PathValue("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "trade not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read trade")
		return
	}
	if trade.Source != models.SourceManual {
		writeError(w, http.StatusConflict, "synced trades cannot be edited")
		return
	}

	var form tradeForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	if msg := form.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	trade.Symbol = form.Symbol
	trade.Direction = form.Direction
	trade.EntryPrice = form.EntryPrice
	trade.ExitPrice = form.ExitPrice
	trade.Size = form.Size
	trade.Fees = form.Fees
	trade.Pnl = form.Pnl
	trade.Strategy = form.Strategy
	trade.Exchange = form.Exchange
	trade.Notes = form.Notes
	trade.OpenedAt = form.OpenedAt
	trade.ClosedAt = form.ClosedAt

	if err := h.trades.Update(trade); err != nil {
		h.log.Error("Failed to update trade", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update trade")
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

// DeleteTradeHandler soft-deletes a trade. The row is retained for
// auditability and its fill id keeps blocking resync.
func (h *APIHandler) DeleteTradeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	err := h.trades.SoftDelete(user, r.PathValue("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "trade not found")
		return
	}
	if err != nil {
		h.log.Error("Failed to delete trade", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete trade")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) userTrades(w http.ResponseWriter, r *http.Request) ([]models.Trade, bool) {
	user, ok := requireUser(w, r)
	if !ok {
		return nil, false
	}
	trades, err := h.trades.ActiveForUser(user, store.TradeFilter{})
	if err != nil {
		h.log.Error("Failed to read trades", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read trades")
		return nil, false
	}
	return trades, true
}

// StatsHandler returns the aggregate statistics over the user's closed
// trades.
func (h *APIHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	trades, ok := h.userTrades(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stats.Compute(trades))
}

// CumulativeHandler returns the running-sum equity curve.
func (h *APIHandler) CumulativeHandler(w http.ResponseWriter, r *http.Request) {
	trades, ok := h.userTrades(w, r)
	if !ok {
		return
	}
	points := stats.CumulativePnl(trades)
	if points == nil {
		points = []stats.CumulativePoint{}
	}
	writeJSON(w, http.StatusOK, points)
}

// SymbolsHandler returns summed P&L per symbol, best first.
func (h *APIHandler) SymbolsHandler(w http.ResponseWriter, r *http.Request) {
	trades, ok := h.userTrades(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stats.PnlBySymbol(trades))
}

// StrategiesHandler returns full stats per strategy group.
func (h *APIHandler) StrategiesHandler(w http.ResponseWriter, r *http.Request) {
	trades, ok := h.userTrades(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stats.ByStrategy(trades))
}

func intQuery(r *http.Request, key string, fallback int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil {
		return v
	}
	return fallback
}

// CalendarHandler serves the calendar views. The view query parameter
// selects daily (a month of day buckets plus header stats), weekly,
// monthly, quarterly, or yearly.
func (h *APIHandler) CalendarHandler(w http.ResponseWriter, r *http.Request) {
	trades, ok := h.userTrades(w, r)
	if !ok {
		return
	}

	now := time.Now()
	year := intQuery(r, "year", now.Year())
	byDay := stats.GroupByDay(trades)

	switch r.URL.Query().Get("view") {
	case "", "daily":
		month := time.Month(intQuery(r, "month", int(now.Month())))
		writeJSON(w, http.StatusOK, map[string]any{
			"summary": stats.SummarizeMonth(byDay, year, month),
			"days":    byDay,
		})
	case "weekly":
		writeJSON(w, http.StatusOK, stats.Weeks(byDay, year))
	case "monthly":
		writeJSON(w, http.StatusOK, stats.Months(byDay, year))
	case "quarterly":
		writeJSON(w, http.StatusOK, stats.Quarters(byDay, year))
	case "yearly":
		writeJSON(w, http.StatusOK, stats.YearOf(byDay, year))
	default:
		writeError(w, http.StatusBadRequest, "unknown view")
	}
}

// SyncHandler triggers an on-demand sync for the calling user.
func (h *APIHandler) SyncHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	res, err := h.syncer.SyncUser(r.Context(), user)
	if errors.Is(err, syncpkg.ErrNoConnection) {
		writeError(w, http.StatusNotFound, "no exchange connection found")
		return
	}
	if err != nil {
		h.log.Error("Sync failed", zap.String("user_id", user), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SyncAllHandler runs the scheduled variant over every registered
// connection. Per-user failures land in the result entries, not here.
func (h *APIHandler) SyncAllHandler(w http.ResponseWriter, r *http.Request) {
	results, err := h.syncer.SyncAll(r.Context())
	if err != nil {
		h.log.Error("Full sync failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"synced":  len(results),
		"results": results,
	})
}

// connectionForm is the request body for linking a wallet.
type connectionForm struct {
	WalletAddress string `json:"wallet_address"`
	SyncPeriod    string `json:"sync_period"`
}

// ConnectHandler creates or replaces the user's exchange connection.
func (h *APIHandler) ConnectHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var form connectionForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	if form.WalletAddress == "" {
		writeError(w, http.StatusBadRequest, "wallet_address is required")
		return
	}
	if form.SyncPeriod == "" {
		form.SyncPeriod = models.SyncPeriod30d
	}

	conn := models.ExchangeConnection{
		UserID:        user,
		Exchange:      hyperliquid.ExchangeName,
		WalletAddress: form.WalletAddress,
		SyncPeriod:    form.SyncPeriod,
		Status:        models.SyncStatusUnsynced,
	}
	if err := h.connections.Upsert(&conn); err != nil {
		h.log.Error("Failed to save connection", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save connection")
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

// ConnectionHandler reports the user's connection, if any.
func (h *APIHandler) ConnectionHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	conn, err := h.connections.ForUser(user, hyperliquid.ExchangeName)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeJSON(w, http.StatusOK, map[string]bool{"connected": false})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read connection")
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

// DisconnectHandler removes the user's connection. Trades already synced
// are retained.
func (h *APIHandler) DisconnectHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	err := h.connections.Delete(user, hyperliquid.ExchangeName)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "no exchange connection found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete connection")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AccountHandler passes through the wallet's live account value and
// unrealized P&L from the venue.
func (h *APIHandler) AccountHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	conn, err := h.connections.ForUser(user, hyperliquid.ExchangeName)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeJSON(w, http.StatusOK, map[string]bool{"connected": false})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read connection")
		return
	}

	state, err := h.client.UserState(r.Context(), conn.WalletAddress)
	if err != nil {
		h.log.Error("Failed to fetch account state", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to fetch account state")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"connected":      true,
		"account_value":  state.AccountValue,
		"unrealized_pnl": state.UnrealizedPnl,
	})
}
