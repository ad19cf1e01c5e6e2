// Package server exposes paginated scrapes over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-scrape-listings/models"
	"github.com/aluiziolira/go-scrape-listings/pipeline"
)

const maxRequestBody = 1 << 20

// Runner performs one paginated scrape.
type Runner interface {
	Run(ctx context.Context, baseURL string, maxPages int) *models.ScrapeResult
}

// ScrapeRequest is the body accepted by POST /api/scrape.
type ScrapeRequest struct {
	URL            string `json:"url"`
	MaxPages       int    `json:"maxPages"`
	DiscountedOnly bool   `json:"discountedOnly"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server wires the scrape runner into a chi router.
type Server struct {
	runner   Runner
	registry *prometheus.Registry
	timeout  time.Duration
	router   chi.Router
}

// New builds the API. registry may be nil, in which case /metrics is not mounted. timeout
// bounds each request; zero disables the bound.
func New(runner Runner, registry *prometheus.Registry, timeout time.Duration) *Server {
	s := &Server{
		runner:   runner,
		registry: registry,
		timeout:  timeout,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if s.timeout > 0 {
		r.Use(middleware.Timeout(s.timeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	if s.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	r.Route("/api", func(r chi.Router) {
		r.Post("/scrape", s.handleScrape)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "url is required")
		return
	}
	if req.MaxPages < 0 {
		respondError(w, http.StatusBadRequest, "maxPages cannot be negative")
		return
	}

	result := s.runner.Run(r.Context(), req.URL, req.MaxPages)
	if result == nil {
		respondError(w, http.StatusInternalServerError, "scrape produced no result")
		return
	}
	if req.DiscountedOnly {
		result.AllProducts = pipeline.FilterDiscounted(result.AllProducts)
		result.TotalProducts = len(result.AllProducts)
	}

	slog.Info("scrape served",
		slog.String("url", req.URL),
		slog.Bool("success", result.Success),
		slog.Bool("partial", result.Partial),
		slog.Int("pages", result.TotalPages),
		slog.Int("products", result.TotalProducts),
	)

	// scrape failures are reported in the body, not the status line
	respondJSON(w, http.StatusOK, result)
}

// ListenAndServe serves handler on addr until ctx is canceled, then shuts down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode response", slog.Any("error", err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
