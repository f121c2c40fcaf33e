package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/CTAG07/wordforge/pkg/markov"
)

type Server struct {
	config    *Config
	db        *sql.DB
	logger    *slog.Logger
	store     *markov.Store
	authAPI   *AuthAPI
	markovAPI *MarkovAPI
	statsAPI  *StatsAPI
	serverAPI *ServerAPI
	apiMux    *http.ServeMux
}

func NewServer(config *Config, logger *slog.Logger, db *sql.DB, actionChan chan string) (*Server, error) {

	// markov initialization
	store, err := markov.NewStore(db)
	if err != nil {
		return nil, fmt.Errorf("error creating markov store: %w", err)
	}
	store.SetLogger(logger.With("component", "markov"))

	// api initialization
	authAPI, err := NewAuthAPI(config.Server.APIKeyHash, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create auth api: %w", err)
	}
	if config.Server.APIKeyHash == "" {
		logger.Warn("No api_key_hash configured, the API is open to every client")
	}

	// create object, register routes to the mux, and return it
	server := &Server{
		config:    config,
		db:        db,
		logger:    logger,
		store:     store,
		authAPI:   authAPI,
		markovAPI: NewMarkovAPI(store, config, logger),
		statsAPI:  NewStatsAPI(store, logger),
		serverAPI: NewServerAPI(config, actionChan, logger),
		apiMux:    http.NewServeMux(),
	}

	apiMux := http.NewServeMux()

	server.markovAPI.RegisterRoutes(apiMux)
	server.statsAPI.RegisterRoutes(apiMux)
	server.serverAPI.RegisterRoutes(apiMux)

	// Make sure api functions must pass through authentication first
	authedAPI := server.authAPI.Authenticate(apiMux)
	// ... except for the health check, which is unauthed so something like docker can use it
	server.apiMux.HandleFunc("/api/health", server.serverAPI.handleHealthCheck)

	server.apiMux.Handle("/api/", authedAPI)

	return server, nil
}

// Handler returns the root handler of the API server.
func (s *Server) Handler() http.Handler {
	return s.apiMux
}

// Close releases the prepared statements held by the store.
func (s *Server) Close() {
	s.store.Close()
}
