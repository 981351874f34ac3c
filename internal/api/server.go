// Package api exposes the reconciliation engine over HTTP: a JSON endpoint
// for reconcile and position-analysis requests, a read API over the run
// archive, and a websocket feed of run progress events.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/straitsenergy/reconengine/internal/config"
	"github.com/straitsenergy/reconengine/internal/loader"
	"github.com/straitsenergy/reconengine/internal/normalize"
	"github.com/straitsenergy/reconengine/internal/report"
	"github.com/straitsenergy/reconengine/internal/router"
	"github.com/straitsenergy/reconengine/internal/storage"
	"github.com/straitsenergy/reconengine/pkg/logging"
)

// Server is the HTTP API server.
type Server struct {
	cfg   *config.Config
	norm  *normalize.Normalizer
	store *storage.Storage // optional
	log   *logging.Logger
	wsHub *WSHub

	server   *http.Server
	listener net.Listener
}

// NewServer builds the API server. store may be nil to disable the archive
// endpoints.
func NewServer(cfg *config.Config, norm *normalize.Normalizer, store *storage.Storage) *Server {
	s := &Server{
		cfg:   cfg,
		norm:  norm,
		store: store,
		log:   logging.GetDefault().Component("api"),
		wsHub: NewWSHub(),
	}
	return s
}

// Start begins serving on the given address.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/v1/reconcile", s.handleReconcile)
	mux.HandleFunc("/api/v1/positions", s.handlePositions)
	mux.HandleFunc("/api/v1/runs", s.handleRuns)
	mux.HandleFunc("/api/v1/runs/", s.handleRunDetail)
	mux.HandleFunc("/ws", s.handleWebSocket)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.wsHub.Run()
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("API server stopped", "error", err)
		}
	}()

	s.log.Info("API server listening", "addr", listener.Addr().String())
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReconcile accepts {traderTrades, exchangeTrades}, routes them by
// exchange group and returns the flattened records plus the totals across
// all groups.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	trader, exchange, err := loader.LoadJSON(body, s.norm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runID := uuid.NewString()[:8]
	s.wsHub.Broadcast(EventRunStarted, map[string]interface{}{
		"runId": runID, "trader": len(trader), "exchange": len(exchange),
	})

	rt := router.New(s.cfg, nil, s.log)
	results, err := rt.Run(trader, exchange)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for groupID, res := range results {
		s.wsHub.Broadcast(EventGroupDone, map[string]interface{}{
			"runId": runID, "group": groupID,
			"matches": res.Stats.TotalMatches,
		})
	}

	if s.store != nil {
		if err := s.store.SaveRun(runID, results); err != nil {
			s.log.Error("Failed to archive run", "run", runID, "error", err)
		}
	}

	totals := router.Aggregate(results)
	s.wsHub.Broadcast(EventRunCompleted, map[string]interface{}{
		"runId": runID, "matches": totals.TotalMatches, "overallRate": totals.OverallRate,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runId":   runID,
		"records": report.AllRecords(results),
		"totals":  totals,
	})
}

// handlePositions runs Rule 0 position analysis over the posted trades.
func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	trader, exchange, err := loader.LoadJSON(body, s.norm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rt := router.New(s.cfg, nil, s.log)
	results := rt.RunPositions(trader, exchange)

	type groupPositions struct {
		GroupID     int64             `json:"groupId"`
		Family      string            `json:"family"`
		Comparisons []rule0Comparison `json:"comparisons"`
		Summary     interface{}       `json:"summary"`
	}
	var out []groupPositions
	for _, groupID := range sortedGroupIDs(results) {
		res := results[groupID]
		gp := groupPositions{
			GroupID: groupID,
			Family:  res.Family.Label(),
			Summary: res.Summary,
		}
		for _, c := range res.Comparisons {
			gp.Comparisons = append(gp.Comparisons, rule0Comparison{
				Product:          c.Product,
				ContractMonth:    c.ContractMonth,
				TraderQuantity:   c.TraderQuantity.String(),
				ExchangeQuantity: c.ExchangeQuantity.String(),
				Difference:       c.Difference.String(),
				Unit:             string(c.Unit),
				Status:           string(c.Status),
				TraderTrades:     c.TraderTrades,
				ExchangeTrades:   c.ExchangeTrades,
			})
		}
		out = append(out, gp)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"groups": out})
}

type rule0Comparison struct {
	Product          string `json:"product"`
	ContractMonth    string `json:"contractMonth"`
	TraderQuantity   string `json:"traderQuantity"`
	ExchangeQuantity string `json:"exchangeQuantity"`
	Difference       string `json:"difference"`
	Unit             string `json:"unit"`
	Status           string `json:"status"`
	TraderTrades     int    `json:"traderTrades"`
	ExchangeTrades   int    `json:"exchangeTrades"`
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "run archive disabled")
		return
	}
	runs, err := s.store.ListRuns(50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (s *Server) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "run archive disabled")
		return
	}
	runID := strings.TrimPrefix(r.URL.Path, "/api/v1/runs/")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "run id required")
		return
	}
	run, err := s.store.GetRun(runID)
	if errors.Is(err, storage.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	matches, err := s.store.GetRunMatches(runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	unmatched, err := s.store.GetRunUnmatched(runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run": run, "matches": matches, "unmatched": unmatched,
	})
}

func sortedGroupIDs(results map[int64]*router.PositionResult) []int64 {
	out := make([]int64, 0, len(results))
	for g := range results {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
