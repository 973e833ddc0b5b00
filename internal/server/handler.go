package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kilupskalvis/kbsync/internal/embed"
	"github.com/kilupskalvis/kbsync/internal/filter"
	"github.com/kilupskalvis/kbsync/internal/models"
	"github.com/kilupskalvis/kbsync/internal/store"
	kbsync "github.com/kilupskalvis/kbsync/internal/sync"
	"github.com/kilupskalvis/kbsync/internal/weaviate"
)

// Config holds configurable limits for the server.
type Config struct {
	MaxRequestBody    int64 // bytes, for JSON endpoints
	RequestsPerMinute int
	UploadsDir        string
	ChunkClass        string
	SearchLimit       int // default result count for /search
}

// DefaultConfig returns reasonable defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxRequestBody:    16 * 1024 * 1024, // 16MB
		RequestsPerMinute: 300,
		SearchLimit:       10,
	}
}

// Server wires the sync engine, the stores, and the embedding provider
// behind the HTTP API.
type Server struct {
	store    *store.Store
	vector   weaviate.ClientInterface
	embedder embed.Service
	engine   *kbsync.Engine
	cfg      *Config
	logger   *slog.Logger
}

// New creates a server over the given collaborators.
func New(st *store.Store, vector weaviate.ClientInterface, embedder embed.Service, engine *kbsync.Engine, cfg *Config, logger *slog.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:    st,
		vector:   vector,
		embedder: embedder,
		engine:   engine,
		cfg:      cfg,
		logger:   logger,
	}
}

// Handler creates the HTTP handler with all routes and middleware.
// The returned cleanup function stops background goroutines and should be
// called on server shutdown.
func (s *Server) Handler() (http.Handler, func()) {
	rl := newRateLimiter(s.cfg.RequestsPerMinute)

	mux := http.NewServeMux()

	// Health endpoints
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	// Ingestion and reconciliation
	mux.Handle("POST /api/v1/documents", rl.middleware(http.HandlerFunc(s.handleUpload)))
	mux.Handle("POST /api/v1/sync", rl.middleware(http.HandlerFunc(s.handleSync)))
	mux.Handle("GET /api/v1/status", rl.middleware(http.HandlerFunc(s.handleStatus)))

	// Retrieval
	mux.Handle("GET /api/v1/entries", rl.middleware(http.HandlerFunc(s.handleEntries)))
	mux.Handle("GET /api/v1/search", rl.middleware(http.HandlerFunc(s.handleSearch)))

	handler := applyMiddleware(mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
		requestIDMiddleware,
	)

	cleanup := func() {
		rl.Stop()
	}

	return handler, cleanup
}

// applyMiddleware applies middleware in reverse order so the first in the list runs first.
func applyMiddleware(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.EntryCount(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready: content store unavailable"))
		return
	}
	if err := s.vector.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready: vector store unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// uploadRequest is the POST /api/v1/documents body.
type uploadRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type uploadResponse struct {
	Identity string              `json:"identity"`
	Synced   bool                `json:"synced"`
	Summary  *models.SyncSummary `json:"summary,omitempty"`
}

// handleUpload saves a document into the uploads directory and runs a
// sync pass so the document is queryable when the request returns. When a
// pass is already running the document is saved and picked up by it or by
// the next pass.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := readJSON(r, s.cfg.MaxRequestBody, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": err.Error()})
		return
	}

	if req.Filename == "" || filepath.Base(req.Filename) != req.Filename {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": "filename must be a plain file name"})
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": "content is required"})
		return
	}

	if err := os.MkdirAll(s.cfg.UploadsDir, 0755); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error", "message": "cannot create uploads directory"})
		return
	}
	path := filepath.Join(s.cfg.UploadsDir, req.Filename)
	if err := os.WriteFile(path, []byte(req.Content), 0644); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error", "message": "cannot save document"})
		return
	}

	summary, err := s.engine.Sync(r.Context(), kbsync.Options{})
	if errors.Is(err, kbsync.ErrPassInProgress) {
		writeJSON(w, http.StatusAccepted, uploadResponse{Identity: req.Filename})
		return
	}
	if err != nil {
		s.logger.Error("sync after upload failed", "identity", req.Filename, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "sync_failed", "message": err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{Identity: req.Filename, Synced: true, Summary: summary})
}

// syncRequest is the POST /api/v1/sync body.
type syncRequest struct {
	Force bool `json:"force"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if r.ContentLength > 0 {
		if err := readJSON(r, s.cfg.MaxRequestBody, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": err.Error()})
			return
		}
	}

	summary, err := s.engine.Sync(r.Context(), kbsync.Options{ForceFull: req.Force})
	if errors.Is(err, kbsync.ErrPassInProgress) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "pass_in_progress", "message": err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":   "sync_failed",
			"message": err.Error(),
			"summary": summary,
		})
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

type statusResponse struct {
	State   models.PassState `json:"state"`
	Entries int              `json:"entries"`
	Ledger  int              `json:"ledger"`
	Pending struct {
		Inserts int `json:"inserts"`
		Updates int `json:"updates"`
		Deletes int `json:"deletes"`
	} `json:"pending"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.EntryCount()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error", "message": err.Error()})
		return
	}
	ledger, err := s.store.SyncStateCount()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error", "message": err.Error()})
		return
	}

	resp := statusResponse{State: s.engine.State(), Entries: entries, Ledger: ledger}
	if changes, _, err := s.engine.Plan(r.Context()); err == nil {
		resp.Pending.Inserts = len(changes.Inserts)
		resp.Pending.Updates = len(changes.Updates)
		resp.Pending.Deletes = len(changes.Deletes)
	} else {
		s.logger.Warn("status plan failed", "error", err)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	pred, err := predicateFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": err.Error()})
		return
	}

	entries, err := s.store.AllEntries()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error", "message": err.Error()})
		return
	}

	matched := filter.Evaluate(entries, pred)
	if matched == nil {
		matched = []*models.KnowledgeEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(matched),
		"entries": matched,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": "q is required"})
		return
	}

	limit := s.cfg.SearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	vector, err := s.embedder.Embed(r.Context(), query)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "embedding_failed", "message": err.Error()})
		return
	}

	chunks, err := s.vector.Search(r.Context(), s.cfg.ChunkClass, vector, limit)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "search_failed", "message": err.Error()})
		return
	}
	if chunks == nil {
		chunks = []*models.VectorChunk{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(chunks),
		"chunks": chunks,
	})
}

// predicateFromQuery builds a filter predicate from URL parameters.
func predicateFromQuery(r *http.Request) (filter.Predicate, error) {
	q := r.URL.Query()
	pred := filter.Predicate{
		DateFrom:     q.Get("date_from"),
		DateTo:       q.Get("date_to"),
		BusinessUnit: q.Get("unit"),
	}

	if raw := q.Get("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				pred.Types = append(pred.Types, models.DocumentType(t))
			}
		}
	}
	pred.People = q["person"]
	pred.Organizations = q["org"]

	if raw := q.Get("amount_min"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return pred, fmt.Errorf("invalid amount_min %q", raw)
		}
		pred.AmountMin = &v
	}
	if raw := q.Get("amount_max"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return pred, fmt.Errorf("invalid amount_max %q", raw)
		}
		pred.AmountMax = &v
	}

	if err := pred.Validate(); err != nil {
		return pred, err
	}
	return pred, nil
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, maxBytes int64, v interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
