package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"

	"github.com/liamcoop/quoting/catalog"
	"github.com/liamcoop/quoting/internal/logger"
	"github.com/liamcoop/quoting/internal/metrics"
	"github.com/liamcoop/quoting/questionnaire"
	"github.com/liamcoop/quoting/quote"
)

const (
	defaultRequestTimeout = 60 * time.Second
	maxBodyBytes          = 1 << 20
)

type pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators of a Server.
type Deps struct {
	DB        pinger
	Service   *quote.Service
	Catalog   catalog.Store
	Questions *questionnaire.Registry
	Metrics   *metrics.Metrics

	AllowedOrigins []string
	RequestTimeout time.Duration
}

type Server struct {
	db        pinger
	service   *quote.Service
	catalog   catalog.Store
	questions *questionnaire.Registry
	metrics   *metrics.Metrics
	router    *chi.Mux
}

// NewServerWithDeps builds the HTTP API around already constructed collaborators.
func NewServerWithDeps(deps Deps) *Server {
	s := &Server{
		db:        deps.DB,
		service:   deps.Service,
		catalog:   deps.Catalog,
		questions: deps.Questions,
		metrics:   deps.Metrics,
	}

	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.setupRoutes(origins, timeout)
	return s
}

func (s *Server) setupRoutes(origins []string, timeout time.Duration) {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(middleware.Timeout(timeout))

	r.Get("/api/v1/health", s.handleHealth)

	// Quoting
	r.Post("/api/v1/quotes", s.handleCreateQuotes)
	r.Post("/api/v1/underwriting/decisions", s.handleDecide)
	r.Get("/api/v1/questionnaires/{insuranceType}", s.handleGetQuestionnaire)

	// Catalog management
	r.Route("/api/v1/catalog/{insuranceType}", func(r chi.Router) {
		r.Get("/products", s.handleListProducts)
		r.Post("/products", s.handleCreateProduct)

		r.Get("/factors", s.handleListFactors)
		r.Post("/factors", s.handleCreateFactor)
		r.Put("/factors/{factorId}", s.handleUpdateFactor)
		r.Delete("/factors/{factorId}", s.handleDeleteFactor)
	})

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
		response.Fields = fieldErrors(err)
	}

	switch {
	case status >= http.StatusInternalServerError:
		logger.ErrorHttp5xx()
		logger.Error(message, "status", status, "error", err)
	case status >= http.StatusBadRequest:
		logger.WarnHttp4xx()
	}
	respondJSON(w, status, response)
}
