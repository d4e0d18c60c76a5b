package reports

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/commissiondesk/internal/platform/httpx"
	"github.com/odyssey-erp/commissiondesk/internal/shared"
)

// Enqueuer schedules an asynchronous summary rebuild.
type Enqueuer interface {
	EnqueueSummaryRefresh(ctx context.Context) error
}

// Handler exposes the commission summary.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	enqueuer Enqueuer
}

// NewHandler constructs a Handler. Without an enqueuer refreshes run inline.
func NewHandler(logger *slog.Logger, service *Service, enqueuer Enqueuer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, enqueuer: enqueuer}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/commission-summary", h.summary)
	r.Post("/commission-summary/refresh", h.refresh)
}

func allowed(ctx context.Context) error {
	principal, _ := shared.PrincipalFromContext(ctx)
	switch principal.Role {
	case shared.RoleFinance, shared.RoleCEO, shared.RoleAdmin:
		return nil
	default:
		return fmt.Errorf("reports: %w", shared.ErrForbidden)
	}
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	if err := allowed(r.Context()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.logger.Error("commission summary", slog.Any("error", err))
		httpx.RespondError(w, &shared.ActionError{Action: "commission summary", Fallback: "Could not load the commission summary", Err: err})
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	if err := allowed(r.Context()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if h.enqueuer != nil {
		if err := h.enqueuer.EnqueueSummaryRefresh(r.Context()); err != nil {
			h.logger.Error("enqueue summary refresh", slog.Any("error", err))
			httpx.RespondError(w, &shared.ActionError{Action: "refresh summary", Fallback: "Could not schedule the refresh", Err: err})
			return
		}
		httpx.Notify(w, http.StatusAccepted, shared.Success("Commission summary refresh scheduled"))
		return
	}
	if _, err := h.service.Refresh(r.Context()); err != nil {
		h.logger.Error("refresh summary", slog.Any("error", err))
		httpx.RespondError(w, &shared.ActionError{Action: "refresh summary", Fallback: "Could not refresh the commission summary", Err: err})
		return
	}
	httpx.Notify(w, http.StatusOK, shared.Success("Commission summary refreshed"))
}
