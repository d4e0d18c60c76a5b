package deals

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/commissiondesk/internal/backend"
	"github.com/odyssey-erp/commissiondesk/internal/platform/httpx"
)

// Handler wires HTTP endpoints for deal views and workflow actions.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers deal routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{dealID}", h.show)
	r.Post("/{dealID}/ceo/approve", h.action(h.service.CEOApprove))
	r.Post("/{dealID}/ceo/reject", h.action(h.service.CEOReject))
	r.Post("/{dealID}/finance/approve-overview", h.action(h.service.ApproveOverview))
	r.Post("/{dealID}/finance/final-approval", h.finalApproval)
	r.Put("/{dealID}/overview", h.updateOverview)
	r.Put("/{dealID}/status", h.updateStatus)
	r.Post("/{dealID}/compliance/complete", h.action(h.service.CompleteCompliance))
}

func dealIDParam(r *http.Request) backend.ID {
	return backend.ID(strings.TrimSpace(chi.URLParam(r, "dealID")))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	result, err := h.service.List(r.Context(), ListQuery{
		Page:     page,
		PageSize: pageSize,
		Filters: backend.DealFilters{
			StatusID: backend.ID(q.Get("status")),
			AgentID:  backend.ID(q.Get("agentId")),
			Search:   strings.TrimSpace(q.Get("search")),
		},
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.View(r.Context(), dealIDParam(r), ParseSurface(r.URL.Query().Get("surface")))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

type actionFunc func(ctx context.Context, dealID backend.ID) (ActionResult, error)

func (h *Handler) action(fn actionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := fn(r.Context(), dealIDParam(r))
		h.respond(w, res, err)
	}
}

func (h *Handler) finalApproval(w http.ResponseWriter, r *http.Request) {
	var form OverviewForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.FinalApproval(r.Context(), dealIDParam(r), form)
	h.respond(w, res, err)
}

func (h *Handler) updateOverview(w http.ResponseWriter, r *http.Request) {
	var form OverviewForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.UpdateOverview(r.Context(), dealIDParam(r), form)
	h.respond(w, res, err)
}

type statusForm struct {
	StatusID backend.ID `json:"statusId"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var form statusForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.UpdateStatus(r.Context(), dealIDParam(r), form.StatusID)
	h.respond(w, res, err)
}

func (h *Handler) respond(w http.ResponseWriter, res ActionResult, err error) {
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}
