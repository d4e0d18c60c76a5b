package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/commissiondesk/internal/deals"
	"github.com/odyssey-erp/commissiondesk/internal/ledger"
	"github.com/odyssey-erp/commissiondesk/internal/observability"
	"github.com/odyssey-erp/commissiondesk/internal/platform/httpx"
	"github.com/odyssey-erp/commissiondesk/internal/reports"
	"github.com/odyssey-erp/commissiondesk/internal/shared"
	"github.com/odyssey-erp/commissiondesk/jobs"
)

// SessionInvalidator drops per-session cached state on logout.
type SessionInvalidator interface {
	Invalidate(ctx context.Context, session string) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Metrics        *observability.Metrics
	Sessions       SessionInvalidator
	DealsHandler   *deals.Handler
	LedgerHandler  *ledger.Handler
	ReportsHandler *reports.Handler
	JobHandler     *jobs.Handler
}

// NewRouter constructs the chi.Router with commission desk defaults.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(RequireViewer)

		r.Post("/session/logout", func(w http.ResponseWriter, r *http.Request) {
			principal, _ := shared.PrincipalFromContext(r.Context())
			if params.Sessions != nil && principal.SessionID != "" {
				if err := params.Sessions.Invalidate(r.Context(), principal.SessionID); err != nil {
					logger.Warn("invalidate session cache", slog.Any("error", err))
				}
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Route("/deals", func(r chi.Router) {
			if params.DealsHandler != nil {
				params.DealsHandler.MountRoutes(r)
			}
			if params.LedgerHandler != nil {
				params.LedgerHandler.MountRoutes(r)
			}
		})
		if params.ReportsHandler != nil {
			r.Route("/reports", params.ReportsHandler.MountRoutes)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Notify(w, http.StatusNotFound, shared.Failure("Page not found"))
	})

	return r
}
