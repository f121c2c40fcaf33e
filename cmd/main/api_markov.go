package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/CTAG07/wordforge/pkg/markov"
)

// MarkovAPI holds the dependencies for the Markov table API handlers.
type MarkovAPI struct {
	store  *markov.Store
	config *Config
	logger *slog.Logger
	// mu serializes every load-modify-save cycle; tables are not safe for concurrent use.
	mu sync.Mutex
}

// NewMarkovAPI creates a new instance of the MarkovAPI.
func NewMarkovAPI(store *markov.Store, config *Config, logger *slog.Logger) *MarkovAPI {
	return &MarkovAPI{
		store:  store,
		config: config,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for all /api/markov endpoints.
func (m *MarkovAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/markov/tables", m.handleListAndCreateTables)
	mux.HandleFunc("/api/markov/tables/", m.handleTableByName)
	mux.HandleFunc("/api/markov/splits", m.handleSplits)
}

type CreateTableRequest struct {
	Name  string `json:"name"`
	Split string `json:"split"`
}

type PruneRequest struct {
	Fraction float64 `json:"fraction"`
}

type NormalizeRequest struct {
	FavourSpace *bool `json:"favour_space"`
}

type LearnResponse struct {
	WordsLearned int               `json:"words_learned"`
	Stats        markov.TableStats `json:"stats"`
}

type GenerateResponse struct {
	Words []string `json:"words"`
}

// handleSplits lists the split identifiers a table can be created with.
func (m *MarkovAPI) handleSplits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	respondWithJSON(w, http.StatusOK, markov.SplitterNames())
}

// handleListAndCreateTables handles GET for listing and POST for creating tables.
func (m *MarkovAPI) handleListAndCreateTables(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tables, err := m.store.GetTableInfos(r.Context())
		if err != nil {
			m.logger.Error("Failed to get table infos", "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve tables: %v", err))
			return
		}
		// Convert map to slice for consistent JSON output
		tableList := make([]markov.TableInfo, 0, len(tables))
		for _, info := range tables {
			tableList = append(tableList, info)
		}
		slices.SortFunc(tableList, func(a, b markov.TableInfo) int {
			return strings.Compare(a.Name, b.Name)
		})
		respondWithJSON(w, http.StatusOK, tableList)

	case http.MethodPost:
		var req CreateTableRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		if req.Name == "" || strings.Contains(req.Name, "/") {
			respondWithError(w, http.StatusBadRequest, "A table name without '/' is required")
			return
		}
		if req.Split == "" {
			req.Split = m.config.Markov.DefaultSplit
		}

		info := markov.TableInfo{Name: req.Name, Split: req.Split}
		if err := m.store.InsertTable(r.Context(), info); err != nil {
			if errors.Is(err, markov.ErrInvalidConfiguration) {
				respondWithError(w, http.StatusBadRequest, err.Error())
				return
			}
			m.logger.Error("Failed to insert new table", "name", req.Name, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to create table: %v", err))
			return
		}
		newTable, err := m.store.GetTableInfo(r.Context(), req.Name)
		if err != nil {
			m.logger.Error("Failed to retrieve newly created table", "name", req.Name, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to verify table creation: %v", err))
			return
		}
		m.logger.Info("Table created", "name", newTable.Name, "split", newTable.Split)
		respondWithJSON(w, http.StatusCreated, newTable)
	default:
		w.Header().Set("Allow", "GET, POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleTableByName routes actions for a specific table, e.g., learn, generate, prune, export, delete.
func (m *MarkovAPI) handleTableByName(w http.ResponseWriter, r *http.Request) {

	path := strings.TrimPrefix(r.URL.Path, "/api/markov/tables/")
	parts := strings.Split(path, "/")
	tableName := parts[0]

	if tableName == "" {
		respondWithError(w, http.StatusBadRequest, "Table name not specified")
		return
	}

	// Uploads are read before taking the lock so a slow client only holds up its own request.
	var upload []byte
	if len(parts) == 2 && (parts[1] == "learn" || parts[1] == "import") && r.Method == http.MethodPost {
		var err error
		upload, err = io.ReadAll(http.MaxBytesReader(w, r.Body, m.config.Server.MaxUploadBytes))
		if err != nil {
			respondWithTableError(w, m.logger, tableName, "Upload failed", err)
			return
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	info, table, err := m.store.LoadTableByName(r.Context(), tableName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondWithError(w, http.StatusNotFound, "Table not found")
			return
		}
		m.logger.Error("Failed to load table by name", "name", tableName, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}

	if len(parts) == 1 { // Path is just /api/markov/tables/{name}
		switch r.Method {
		case http.MethodGet:
			respondWithJSON(w, http.StatusOK, struct {
				markov.TableInfo
				Stats markov.TableStats `json:"stats"`
			}{info, table.Stats()})
		case http.MethodDelete:
			if err = m.store.RemoveTable(r.Context(), info); err != nil {
				m.logger.Error("Failed to remove table", "name", tableName, "error", err)
				respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to remove table: %v", err))
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.Header().Set("Allow", "GET, DELETE")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	action := parts[1]
	switch action {
	case "learn":
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		splitter, err := info.Splitter()
		if err != nil {
			m.logger.Error("Stored table has an invalid split", "name", tableName, "split", info.Split, "error", err)
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		n, err := table.LearnFrom(r.Context(), bytes.NewReader(upload), splitter)
		if err != nil {
			respondWithTableError(w, m.logger, tableName, "Learning failed", err)
			return
		}
		if !m.save(w, r, info, table) {
			return
		}
		respondWithJSON(w, http.StatusOK, LearnResponse{WordsLearned: n, Stats: table.Stats()})

	case "generate":
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		count := 1
		if raw := r.URL.Query().Get("count"); raw != "" {
			count, err = strconv.Atoi(raw)
			if err != nil || count < 1 || count > m.config.Markov.MaxGenerateCount {
				respondWithError(w, http.StatusBadRequest,
					fmt.Sprintf("count must be an integer between 1 and %d", m.config.Markov.MaxGenerateCount))
				return
			}
		}
		words, err := table.GenerateN(count, markov.WithMaxSteps(m.config.Markov.MaxSteps))
		if err != nil {
			respondWithTableError(w, m.logger, tableName, "Generation failed", err)
			return
		}
		respondWithJSON(w, http.StatusOK, GenerateResponse{Words: words})

	case "prune":
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		var req PruneRequest
		if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		if err = table.RemoveTopLinks(req.Fraction); err != nil {
			respondWithTableError(w, m.logger, tableName, "Pruning failed", err)
			return
		}
		if !m.save(w, r, info, table) {
			return
		}
		respondWithJSON(w, http.StatusOK, table.Stats())

	case "normalize":
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		var req NormalizeRequest
		if r.ContentLength != 0 {
			if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
				return
			}
		}
		favourSpace := m.config.Markov.FavourSpace
		if req.FavourSpace != nil {
			favourSpace = *req.FavourSpace
		}
		table.NormalizeLinks(favourSpace)
		if !m.save(w, r, info, table) {
			return
		}
		respondWithJSON(w, http.StatusOK, table.Stats())

	case "export":
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.json\"", tableName))
		if err = table.WriteJSON(w); err != nil {
			m.logger.Error("Failed to export table", "name", tableName, "error", err)
		}

	case "import":
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		if err = table.ReadJSON(bytes.NewReader(upload)); err != nil {
			respondWithTableError(w, m.logger, tableName, "Import failed", err)
			return
		}
		if !m.save(w, r, info, table) {
			return
		}
		respondWithJSON(w, http.StatusOK, table.Stats())

	default:
		respondWithError(w, http.StatusNotFound, "Action not found")
	}
}

// save persists table and writes an error response when that fails.
func (m *MarkovAPI) save(w http.ResponseWriter, r *http.Request, info markov.TableInfo, table *markov.Table) bool {
	if err := m.store.SaveTable(r.Context(), info, table); err != nil {
		m.logger.Error("Failed to save table", "name", info.Name, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save table: %v", err))
		return false
	}
	return true
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// respondWithTableError maps table errors to status codes.
func respondWithTableError(w http.ResponseWriter, logger *slog.Logger, tableName, prefix string, err error) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		respondWithError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("%s: request body exceeds %d bytes", prefix, maxBytesErr.Limit))
	case errors.Is(err, markov.ErrInvalidArgument),
		errors.Is(err, markov.ErrInvalidConfiguration),
		errors.Is(err, markov.ErrMalformedSnapshot),
		errors.Is(err, markov.ErrEmptyWord):
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("%s: %v", prefix, err))
	case errors.Is(err, markov.ErrDeadEnd), errors.Is(err, markov.ErrStepLimit):
		respondWithError(w, http.StatusUnprocessableEntity, fmt.Sprintf("%s: %v", prefix, err))
	default:
		logger.Error(prefix, "name", tableName, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("%s: %v", prefix, err))
	}
}
