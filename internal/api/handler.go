// Package api exposes the compile service over HTTP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"planql/internal/domain"
	"planql/internal/metricdef"
	"planql/internal/middleware"
	"planql/internal/service"
)

// Handler serves the compile API.
type Handler struct {
	compile *service.CompileService
	metrics *metricdef.Registry
	logger  *slog.Logger
}

func NewHandler(compile *service.CompileService, metrics *metricdef.Registry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{compile: compile, metrics: metrics, logger: logger.With("component", "api")}
}

// RouterConfig carries the middleware settings for the API router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// NewRouter assembles the chi router with the standard middleware chain.
func (h *Handler) NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(h.logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
	}))
	if cfg.RateLimitRPS > 0 {
		r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		}))
	}

	r.Get("/healthz", h.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/compile", h.compilePlan)
		r.Get("/catalog/tables", h.listTables)
		r.Post("/catalog/reload", h.reloadCatalog)
		r.Get("/metrics", h.listMetrics)
		r.Get("/history", h.listHistory)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) compilePlan(w http.ResponseWriter, r *http.Request) {
	var plan domain.Plan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid plan JSON: "+err.Error(), nil)
		return
	}

	result, err := h.compile.Compile(r.Context(), plan)
	if err != nil {
		writeError(w, httpStatusFromDomainError(err), domain.ErrorKind(err), err.Error(), domain.ErrorCandidates(err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) listTables(w http.ResponseWriter, _ *http.Request) {
	snap := h.compile.CatalogSnapshot()
	type tableInfo struct {
		Name    string   `json:"name"`
		Columns []string `json:"columns"`
	}
	tables := snap.Tables()
	out := struct {
		DefaultTable string      `json:"default_table"`
		Tables       []tableInfo `json:"tables"`
	}{DefaultTable: snap.DefaultTable(), Tables: make([]tableInfo, len(tables))}
	for i, t := range tables {
		out.Tables[i] = tableInfo{Name: t.Name, Columns: t.Columns}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) reloadCatalog(w http.ResponseWriter, _ *http.Request) {
	if err := h.compile.ReloadCatalog(); err != nil {
		writeError(w, httpStatusFromDomainError(err), domain.ErrorKind(err), err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

func (h *Handler) listMetrics(w http.ResponseWriter, _ *http.Request) {
	type metricInfo struct {
		Name        string `json:"name"`
		Expr        string `json:"expr"`
		Alias       string `json:"alias"`
		Description string `json:"description,omitempty"`
	}
	names := h.metrics.Names()
	out := make([]metricInfo, 0, len(names))
	for _, name := range names {
		def, _ := h.metrics.Lookup(name)
		out = append(out, metricInfo{Name: name, Expr: def.Expr, Alias: def.Alias, Description: def.Description})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) listHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	entries, err := h.compile.History(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
		return
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error      string   `json:"error"`
	Kind       string   `json:"kind"`
	Candidates []string `json:"candidates,omitempty"`
}

func writeError(w http.ResponseWriter, status int, kind, msg string, candidates []string) {
	writeJSON(w, status, errorResponse{Error: msg, Kind: kind, Candidates: candidates})
}
