package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/UnknownOlympus/tract/internal/models"
	"github.com/UnknownOlympus/tract/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Bounds for the limit parameter of GET /v1/lookups.
const (
	DefaultLookupLimit = 50
	MaxLookupLimit     = 500
)

// TractResolver resolves an address to its census block. It is satisfied by *service.TractService.
type TractResolver interface {
	Resolve(ctx context.Context, address models.Address) (*models.Resolution, error)
}

// Server serves the tract lookup HTTP API.
type Server struct {
	log      *slog.Logger
	resolver TractResolver
	journal  repository.Interface // nil when no database is configured
}

type tractResponse struct {
	*models.Resolution

	Tract string `json:"tract"` // Tract is the zero-padded six-digit tract code.
}

type errorResponse struct {
	Error   string `json:"error"`
	Outcome string `json:"outcome"`
}

// NewHandler builds the router for the HTTP API. The journal may be nil, in which
// case /v1/lookups answers 503 and /healthz does not check a database.
func NewHandler(
	log *slog.Logger,
	resolver TractResolver,
	journal repository.Interface,
	gatherer prometheus.Gatherer,
) http.Handler {
	srv := &Server{log: log, resolver: resolver, journal: journal}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", srv.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/tract", srv.ResolveTract)
		r.Get("/lookups", srv.ListLookups)
	})

	return r
}

// ResolveTract handles GET /v1/tract?street=&city=&state=.
func (s *Server) ResolveTract(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	address := models.Address{
		Street: query.Get("street"),
		City:   query.Get("city"),
		State:  query.Get("state"),
	}

	resolution, err := s.resolver.Resolve(r.Context(), address)
	if err != nil {
		outcome := models.Outcome(err)
		s.writeJSON(r.Context(), w, statusFor(outcome), errorResponse{Error: err.Error(), Outcome: outcome})
		return
	}

	s.writeJSON(r.Context(), w, http.StatusOK, tractResponse{
		Resolution: resolution,
		Tract:      resolution.Block.Tract.String(),
	})
}

// ListLookups handles GET /v1/lookups?limit=N.
func (s *Server) ListLookups(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		http.Error(w, "lookup journal is not configured", http.StatusServiceUnavailable)
		return
	}

	limit := DefaultLookupLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > MaxLookupLimit {
			http.Error(w, "limit must be an integer between 1 and "+strconv.Itoa(MaxLookupLimit),
				http.StatusBadRequest)
			return
		}
		limit = n
	}

	lookups, err := s.journal.ListLookups(r.Context(), limit)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Failed to list lookups", "error", err)
		http.Error(w, "failed to list lookups", http.StatusInternalServerError)
		return
	}

	s.writeJSON(r.Context(), w, http.StatusOK, lookups)
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.log.DebugContext(r.Context(), "Performing health checks...")

	status, body := http.StatusOK, "OK"
	if s.journal != nil {
		if err := s.journal.Ping(r.Context()); err != nil {
			s.log.WarnContext(r.Context(), "Health check failed", "error", err)
			status, body = http.StatusServiceUnavailable, "DB ping failed"
		}
	}

	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		s.log.ErrorContext(r.Context(), "failed to write reply", "error", err)
	}

	s.log.DebugContext(r.Context(), "Health checks completed", "status", status)
}

func (s *Server) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.ErrorContext(ctx, "failed to write reply", "error", err)
	}
}

// statusFor maps a lookup outcome to an HTTP status.
func statusFor(outcome string) int {
	switch outcome {
	case models.OutcomeInvalid:
		return http.StatusBadRequest
	case models.OutcomeNotFound:
		return http.StatusNotFound
	case models.OutcomeTransport, models.OutcomeMalformed, models.OutcomeRejected:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
