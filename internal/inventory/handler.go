package inventory

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/platform/httpx"
)

// Handler exposes read-only ledger endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/inventory/{warehouseID}", h.listByWarehouse)
	r.Get("/inventory/{warehouseID}/{productID}", h.getRecord)
	r.Post("/inventory/check-availability", h.checkAvailability)
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	warehouseID, err1 := strconv.ParseInt(chi.URLParam(r, "warehouseID"), 10, 64)
	productID, err2 := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err1 != nil || err2 != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid warehouse or product id")
		return
	}
	rec, err := h.service.GetRecord(r.Context(), warehouseID, productID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) listByWarehouse(w http.ResponseWriter, r *http.Request) {
	warehouseID, err := strconv.ParseInt(chi.URLParam(r, "warehouseID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid warehouse id")
		return
	}
	records, err := h.service.ListByWarehouse(r.Context(), warehouseID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": records})
}

type availabilityRequest struct {
	Items []AvailabilityItem `json:"items"`
}

func (h *Handler) checkAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if len(req.Items) == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "at least one item required")
		return
	}
	report, err := h.service.CheckAvailability(r.Context(), req.Items)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": report})
}
