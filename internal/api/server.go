package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lox/citywx/internal/store"
	"github.com/lox/citywx/internal/weather"
)

type Server struct {
	svc      *weather.Service
	store    *store.Store
	port     string
	log      *zap.Logger
	validate *validator.Validate
}

func NewServer(svc *weather.Service, st *store.Store, port string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		svc:      svc,
		store:    st,
		port:     port,
		log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/current", s.handleAPICurrent)
	mux.HandleFunc("POST /api/lookup", s.handleAPILookup)
	mux.HandleFunc("GET /api/alerts", s.handleAPIAlerts)
	mux.HandleFunc("GET /api/compare", s.handleAPICompare)
	mux.HandleFunc("GET /api/records", s.handleAPIRecords)
	mux.HandleFunc("GET /api/latest", s.handleAPILatest)
	mux.HandleFunc("GET /api/cities", s.handleAPICities)
	mux.HandleFunc("GET /api/stats", s.handleAPIStats)
	mux.HandleFunc("GET /api/runs", s.handleAPIRuns)
	mux.HandleFunc("GET /api/payloads/{id}", s.handleAPIPayload)
	mux.HandleFunc("GET /api/export", s.handleAPIExport)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.log.Info("server: listening", zap.String("addr", server.Addr))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

type HealthStatus struct {
	Status  string `json:"status"`
	Records int    `json:"records"`
	Cities  int    `json:"cities"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, HealthStatus{Status: "error", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, HealthStatus{Status: "ok", Records: stats.TotalRecords, Cities: stats.UniqueCities})
}
