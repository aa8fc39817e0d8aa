package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/tenantq/pkg/environment"
	"github.com/dmitrymomot/tenantq/pkg/logger"
	"github.com/dmitrymomot/tenantq/pkg/queue"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// StatFunc reports the cluster state. *queue.Cluster's Stat satisfies it.
type StatFunc func(ctx context.Context) (queue.Stat, error)

type options struct {
	checks map[string]Check
	env    environment.Environment
	logger *slog.Logger
}

// Option configures the router.
type Option func(*options)

// WithCheck adds a named readiness check.
func WithCheck(name string, check Check) Option {
	return func(o *options) {
		if check != nil {
			o.checks[name] = check
		}
	}
}

// WithEnvironment attaches env to every request context.
func WithEnvironment(env environment.Environment) Option {
	return func(o *options) {
		o.env = env
	}
}

// WithLogger sets the logger used for failed checks.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewRouter builds the monitor routes:
//
//	GET /healthz  liveness, always 200
//	GET /readyz   runs every check, 503 when one fails
//	GET /stats    cluster state as JSON, when stat is not nil
func NewRouter(stat StatFunc, opts ...Option) http.Handler {
	o := &options{
		checks: make(map[string]Check),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(middleware.Recoverer)
	if o.env != "" {
		r.Use(environment.Middleware(o.env))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readyHandler(o))
	if stat != nil {
		r.Get("/stats", statsHandler(stat, o.logger))
	}

	return r
}

type readyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func readyHandler(o *options) http.HandlerFunc {
	names := make([]string, 0, len(o.checks))
	for name := range o.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		resp := readyResponse{Status: "ok", Checks: make(map[string]string, len(names))}
		code := http.StatusOK

		for _, name := range names {
			if err := o.checks[name](ctx); err != nil {
				o.logger.ErrorContext(ctx, "readiness check failed",
					slog.String("check", name),
					logger.Error(err))
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}

		writeJSON(w, code, resp)
	}
}

func statsHandler(stat StatFunc, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := stat(r.Context())
		if err != nil {
			log.ErrorContext(r.Context(), "failed to read cluster stats", logger.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
