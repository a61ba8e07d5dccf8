package stock

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/platform/httpx"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/shared"
)

// Handler manages stock transaction endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/stock-transactions", h.list)
	r.Get("/stock-transactions/{id}", h.show)
	r.Post("/stock-transactions/import", h.createImport)
	r.Post("/stock-transactions/export", h.createExport)
	r.Post("/stock-transactions/disposal", h.createDisposal)
	r.Post("/stock-transactions/transfer", h.createTransfer)
	r.Post("/stock-transactions/stocktake", h.createStocktake)
	r.Post("/stock-transactions/{id}/approve", h.approve)
	r.Post("/stock-transactions/{id}/cancel", h.cancel)
}

type lineRequest struct {
	ProductID  int64      `json:"product_id" validate:"required"`
	Quantity   float64    `json:"quantity" validate:"required"`
	UnitPrice  float64    `json:"unit_price" validate:"gte=0"`
	Batch      string     `json:"batch"`
	ExpiryDate *time.Time `json:"expiry_date"`
}

type createRequest struct {
	WarehouseID     int64         `json:"warehouse_id" validate:"required"`
	DestWarehouseID int64         `json:"dest_warehouse_id"`
	Note            string        `json:"note"`
	Lines           []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, fn func(input CreateInput) (CreateResult, error)) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := CreateInput{
		WarehouseID:     req.WarehouseID,
		DestWarehouseID: req.DestWarehouseID,
		Note:            req.Note,
		ActorID:         shared.ActorFromContext(r.Context()),
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, LineInput{
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			Batch:      line.Batch,
			ExpiryDate: line.ExpiryDate,
		})
	}

	result, err := fn(input)
	if err != nil {
		h.logger.Warn("stock create failed", slog.String("error", err.Error()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) createImport(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, func(input CreateInput) (CreateResult, error) {
		return h.service.CreateImport(r.Context(), input)
	})
}

func (h *Handler) createExport(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, func(input CreateInput) (CreateResult, error) {
		return h.service.CreateExport(r.Context(), input)
	})
}

func (h *Handler) createDisposal(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, func(input CreateInput) (CreateResult, error) {
		return h.service.CreateDisposal(r.Context(), input)
	})
}

func (h *Handler) createTransfer(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, func(input CreateInput) (CreateResult, error) {
		return h.service.CreateTransfer(r.Context(), input)
	})
}

func (h *Handler) createStocktake(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, func(input CreateInput) (CreateResult, error) {
		return h.service.CreateStocktake(r.Context(), input)
	})
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid transaction id")
		return
	}
	txn, err := h.service.Approve(r.Context(), id, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.logger.Warn("stock approve failed", slog.Int64("id", id), slog.String("error", err.Error()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, txn)
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid transaction id")
		return
	}
	var req cancelRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	txn, err := h.service.Cancel(r.Context(), id, shared.ActorFromContext(r.Context()), req.Reason)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, txn)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid transaction id")
		return
	}
	txn, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, txn)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}

	filter := ListFilter{
		Type:   TransactionType(q.Get("type")),
		Status: Status(q.Get("status")),
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	}
	if wh := q.Get("warehouse_id"); wh != "" {
		filter.WarehouseID, _ = strconv.ParseInt(wh, 10, 64)
	}
	if from := q.Get("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			filter.From = t
		}
	}
	if to := q.Get("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			filter.To = t
		}
	}
	if filter.Type != "" && !filter.Type.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown transaction type")
		return
	}

	txns, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data":       txns,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}
