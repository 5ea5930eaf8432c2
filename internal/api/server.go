// Package api exposes the tracker's HTTP surface: provider submissions,
// pool snapshot reads and writes, swap recording and the chart feeds.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"lp-token-tracker/internal/domain"
	"lp-token-tracker/internal/ledger"
	"lp-token-tracker/internal/observability"
	"lp-token-tracker/internal/storage"
	"lp-token-tracker/internal/ws"
)

const banner = "Welcome to the Ethereum-RUNE LP Token Tracker API"

// Options configures a Server.
type Options struct {
	Addr      string
	Providers storage.ProviderStore
	Snapshots storage.PoolSnapshotStore
	Swaps     storage.SwapStore
	Ledger    *ledger.Ledger

	// History enables GET /api/poolBalanceHistory when set.
	History storage.BalanceHistoryStore

	// Hub enables the /ws snapshot feed when set.
	Hub *ws.Hub

	// Notify is invoked with snapshots written directly through the API
	// (create and update-latest); ledger appends notify via ledger.Options.
	Notify func(*domain.PoolSnapshot)

	// Now supplies timestamps; defaults to time.Now.
	Now func() time.Time

	Logger *log.Logger
}

// Server holds the HTTP mux and its dependencies.
type Server struct {
	providers storage.ProviderStore
	snapshots storage.PoolSnapshotStore
	swaps     storage.SwapStore
	history   storage.BalanceHistoryStore
	ledger    *ledger.Ledger
	hub       *ws.Hub
	notify    func(*domain.PoolSnapshot)
	now       func() time.Time
	logger    *log.Logger

	mux    *http.ServeMux
	server *http.Server
}

// NewServer creates an HTTP server with all routes configured.
func NewServer(opts Options) *Server {
	s := &Server{
		providers: opts.Providers,
		snapshots: opts.Snapshots,
		swaps:     opts.Swaps,
		history:   opts.History,
		ledger:    opts.Ledger,
		hub:       opts.Hub,
		notify:    opts.Notify,
		now:       opts.Now,
		logger:    opts.Logger,
		mux:       http.NewServeMux(),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = log.New(os.Stdout, "[api] ", log.LstdFlags)
	}

	s.routes()

	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      withCORS(withMetrics(s.mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleBanner)

	s.mux.HandleFunc("POST /api/provider", s.handleSubmitProvider)
	s.mux.HandleFunc("GET /api/providers", s.handleListProviders)

	s.mux.HandleFunc("POST /api/poolinfo", s.handleCreatePoolInfo)
	s.mux.HandleFunc("GET /api/poolinfos", s.handleListPoolInfos)
	s.mux.HandleFunc("POST /api/updatePoolInfo", s.handleUpdatePoolInfo)

	s.mux.HandleFunc("POST /api/storeSwapData", s.handleStoreSwap)
	s.mux.HandleFunc("GET /api/swapData", s.handleListSwaps)

	if s.history != nil {
		s.mux.HandleFunc("GET /api/poolBalanceHistory", s.handleBalanceHistory)
	}

	if s.hub != nil {
		s.mux.HandleFunc("GET /ws", s.hub.Handler(func() (any, bool) {
			snap, err := s.snapshots.Latest(context.Background())
			if err != nil {
				return nil, false
			}
			return snap, true
		}))
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", observability.Handler())
}

// Handler exposes the configured handler chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleBanner(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(banner))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "time": s.now().UTC()})
}

// providerRequest is the POST /api/provider body. Amounts are pointers so a
// missing field is distinguishable from zero.
type providerRequest struct {
	ProviderAddress string           `json:"providerAddress"`
	AmountWBTC      *decimal.Decimal `json:"amountWBTC"`
	AmountRUNE      *decimal.Decimal `json:"amountRUNE"`
	LPTokenKey      string           `json:"lpTokenKey"`
}

func (s *Server) handleSubmitProvider(w http.ResponseWriter, r *http.Request) {
	var req providerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.ProviderAddress == "" || req.AmountWBTC == nil || req.AmountRUNE == nil || req.LPTokenKey == "" {
		observability.RecordProviderUpsert("rejected")
		writeMessage(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	p := &domain.Provider{
		Address:    req.ProviderAddress,
		AmountWBTC: *req.AmountWBTC,
		AmountRUNE: *req.AmountRUNE,
		LPTokenKey: req.LPTokenKey,
		UpdatedAt:  s.now().UTC(),
	}

	created, err := s.providers.Upsert(r.Context(), p)
	if err != nil {
		s.logger.Printf("store provider %s: %v", p.Address, err)
		observability.RecordProviderUpsert("rejected")
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": "Failed to store provider info",
			"error":   err.Error(),
		})
		return
	}

	if created {
		observability.RecordProviderUpsert("created")
		writeJSON(w, http.StatusCreated, p)
		return
	}
	observability.RecordProviderUpsert("updated")
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := s.providers.GetAll(r.Context())
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	if providers == nil {
		providers = []*domain.Provider{}
	}
	writeJSON(w, http.StatusOK, providers)
}

// poolInfoRequest is the POST /api/poolinfo and balance payload shape.
type poolInfoRequest struct {
	RuneChart *float64 `json:"RuneChart"`
	WbtcChart *float64 `json:"WbtcChart"`
}

// handleCreatePoolInfo is idempotent get-or-create: a snapshot matching both
// balances exactly is returned as-is, otherwise a new one is appended.
func (s *Server) handleCreatePoolInfo(w http.ResponseWriter, r *http.Request) {
	var req poolInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.RuneChart == nil || req.WbtcChart == nil {
		writeMessage(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	existing, err := s.snapshots.FindByBalances(r.Context(), *req.RuneChart, *req.WbtcChart)
	if err == nil {
		writeJSON(w, http.StatusOK, existing)
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		s.logger.Printf("find snapshot: %v", err)
		writeError(w, http.StatusInternalServerError, "Error inserting pool info")
		return
	}

	snap := &domain.PoolSnapshot{
		RuneChart: *req.RuneChart,
		WbtcChart: *req.WbtcChart,
		Timestamp: s.now().UTC(),
	}
	if err := s.snapshots.Insert(r.Context(), snap); err != nil {
		s.logger.Printf("insert snapshot: %v", err)
		writeError(w, http.StatusInternalServerError, "Error inserting pool info")
		return
	}
	if s.notify != nil {
		s.notify(snap)
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleListPoolInfos(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.snapshots.GetAll(r.Context())
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	if snaps == nil {
		snaps = []*domain.PoolSnapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

// updatePoolInfoRequest is the POST /api/updatePoolInfo body.
type updatePoolInfoRequest struct {
	RuneAmount *float64 `json:"runeAmount"`
	WbtcAmount *float64 `json:"wbtcAmount"`
}

func (s *Server) handleUpdatePoolInfo(w http.ResponseWriter, r *http.Request) {
	var req updatePoolInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.RuneAmount == nil || req.WbtcAmount == nil {
		writeMessage(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	snap, err := s.snapshots.UpdateLatest(r.Context(), *req.RuneAmount, *req.WbtcAmount, s.now().UTC())
	if err != nil {
		s.logger.Printf("update latest snapshot: %v", err)
		writeError(w, http.StatusInternalServerError, "Error updating pool info")
		return
	}
	if s.notify != nil {
		s.notify(snap)
	}
	writeJSON(w, http.StatusOK, snap)
}

// swapRequest is the POST /api/storeSwapData body. No field validation: the
// ledger treats unrecognized directions as balance-neutral.
type swapRequest struct {
	Direction       string    `json:"direction"`
	Amount          float64   `json:"amount"`
	Rate            float64   `json:"rate"`
	Address         string    `json:"address"`
	EstimatedAmount float64   `json:"estimatedAmount"`
	TransactionFee  float64   `json:"transactionFee"`
	Timestamp       time.Time `json:"timestamp"`
}

func (s *Server) handleStoreSwap(w http.ResponseWriter, r *http.Request) {
	var req swapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	swap := &domain.Swap{
		Direction:       req.Direction,
		Amount:          req.Amount,
		Rate:            req.Rate,
		Address:         req.Address,
		EstimatedAmount: req.EstimatedAmount,
		TransactionFee:  req.TransactionFee,
		Timestamp:       req.Timestamp,
	}

	if _, err := s.ledger.RecordSwap(r.Context(), swap); err != nil {
		s.logger.Printf("record swap: %v", err)
		writeError(w, http.StatusInternalServerError, "Error storing swap data")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Swap data stored successfully",
		"id":      swap.ID,
	})
}

func (s *Server) handleListSwaps(w http.ResponseWriter, r *http.Request) {
	swaps, err := s.swaps.GetAll(r.Context())
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	if swaps == nil {
		swaps = []*domain.Swap{}
	}
	writeJSON(w, http.StatusOK, swaps)
}

// handleBalanceHistory serves chart data from the ClickHouse archive.
// from/to are unix seconds; to defaults to now, from to the epoch.
func (s *Server) handleBalanceHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Unix(0, 0).UTC()
	end := s.now().UTC()

	if v := r.URL.Query().Get("from"); v != "" {
		sec, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid from parameter")
			return
		}
		start = time.Unix(sec, 0).UTC()
	}
	if v := r.URL.Query().Get("to"); v != "" {
		sec, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid to parameter")
			return
		}
		end = time.Unix(sec, 0).UTC()
	}

	points, err := s.history.GetByTimeRange(r.Context(), start, end)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	if points == nil {
		points = []*domain.BalancePoint{}
	}
	writeJSON(w, http.StatusOK, points)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
