package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/CTAG07/wordforge/pkg/markov"
)

// StatsAPI holds the dependencies for the statistics handlers.
type StatsAPI struct {
	store  *markov.Store
	logger *slog.Logger
}

func NewStatsAPI(store *markov.Store, logger *slog.Logger) *StatsAPI {
	return &StatsAPI{
		store:  store,
		logger: logger,
	}
}

func (s *StatsAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/stats/summary", s.handleSummary)
}

// handleSummary reports every stored table together with its shape.
func (s *StatsAPI) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	stats, err := s.store.GetStats(r.Context())
	if err != nil {
		s.logger.Error("Failed to collect table stats", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}
