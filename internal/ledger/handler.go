package ledger

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/commissiondesk/internal/backend"
	"github.com/odyssey-erp/commissiondesk/internal/platform/httpx"
)

// IdempotencyHeader carries the client's submission key.
const IdempotencyHeader = "Idempotency-Key"

// Handler wires HTTP endpoints for collections and transfers.
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

// MountRoutes registers ledger routes on the deals router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{dealID}/collections/form", h.collectionForm)
	r.Get("/{dealID}/collections", h.listCollections)
	r.Post("/{dealID}/collections", h.collect)
	r.Get("/{dealID}/transfers/form", h.transferForm)
	r.Get("/{dealID}/transfers", h.listTransfers)
	r.Post("/{dealID}/transfers", h.transfer)
}

func dealIDParam(r *http.Request) backend.ID {
	return backend.ID(strings.TrimSpace(chi.URLParam(r, "dealID")))
}

func (h *Handler) collectionForm(w http.ResponseWriter, r *http.Request) {
	defaults, err := h.service.CollectionDefaults(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, defaults)
}

func (h *Handler) collect(w http.ResponseWriter, r *http.Request) {
	var form CollectionForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.Collect(r.Context(), dealIDParam(r), form, r.Header.Get(IdempotencyHeader))
	if err != nil {
		httpx.RespondFormError(w, err, form)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

func (h *Handler) listCollections(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Collections(r.Context(), dealIDParam(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"collections": items})
}

func (h *Handler) transferForm(w http.ResponseWriter, r *http.Request) {
	defaults, err := h.service.TransferDefaults(r.Context(), dealIDParam(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, defaults)
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	var form TransferForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.Transfer(r.Context(), dealIDParam(r), form, r.Header.Get(IdempotencyHeader))
	if err != nil {
		httpx.RespondFormError(w, err, form)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

func (h *Handler) listTransfers(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Transfers(r.Context(), dealIDParam(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transfers": items})
}
