package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mimir-aip/pathway-graph/pkg/apperrors"
	"github.com/mimir-aip/pathway-graph/pkg/models"
	"github.com/mimir-aip/pathway-graph/pkg/stats"
)

// BuildCatalog is the read side of the pipeline service
type BuildCatalog interface {
	List() ([]*models.BuildRecord, error)
	Get(id string) (*models.BuildRecord, error)
	Network(id string) (*models.Network, error)
}

// ScheduleLister lists scheduled rebuilds
type ScheduleLister interface {
	Entries() []*models.ScheduledJob
}

// Server provides HTTP API endpoints
type Server struct {
	mux     *http.ServeMux
	httpSrv *http.Server
	logger  *zap.Logger

	networks  *NetworkHandler
	schedules ScheduleLister
	stats     *stats.Engine
}

// NewServer creates a new API server. schedules and engine may be nil.
func NewServer(catalog BuildCatalog, schedules ScheduleLister, engine *stats.Engine, port string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("api")
	s := &Server{
		mux:       http.NewServeMux(),
		logger:    logger,
		networks:  NewNetworkHandler(catalog, logger),
		schedules: schedules,
		stats:     engine,
	}

	s.registerRoutes()
	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// registerRoutes sets up the HTTP routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/networks", s.networks.HandleNetworks)
	s.mux.HandleFunc("/api/networks/", s.networks.HandleNetwork)
	s.mux.HandleFunc("/api/schedules", s.handleSchedules)
	s.mux.HandleFunc("/api/pvalues", s.handlePValues)
}

// Handler exposes the routes, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the HTTP server and blocks until it stops.
// It returns nil after Shutdown.
func (s *Server) Start() error {
	s.logger.Info("Starting API server", zap.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleSchedules lists scheduled rebuilds
func (s *Server) handleSchedules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jobs := []*models.ScheduledJob{}
	if s.schedules != nil {
		jobs = s.schedules.Entries()
	}
	writeJSON(w, http.StatusOK, jobs)
}

// handlePValues runs the statistical engine on a request body.
// The engine's mode applies unless the request names one.
func (s *Server) handlePValues(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.stats == nil {
		http.Error(w, "Statistics are not enabled", http.StatusNotFound)
		return
	}

	var req models.PValueRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 32<<20)).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	engine := *s.stats
	if req.Mode != "" {
		engine.Mode = req.Mode
	}
	pvalues, err := engine.Run(r.Context(), req.Array1, req.Array2)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pvalues)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP status codes
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrShape), errors.Is(err, apperrors.ErrRange), errors.Is(err, apperrors.ErrSchema):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}
