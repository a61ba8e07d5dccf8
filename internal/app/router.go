package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/inventory"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/masterdata"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/observability"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/sales/customers"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/sales/orders"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/stock"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/transfer"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	InventoryHandler  *inventory.Handler
	StockHandler      *stock.Handler
	TransferHandler   *transfer.Handler
	OrdersHandler     *orders.Handler
	CustomersHandler  *customers.Handler
	MasterDataHandler *masterdata.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router serving the engine API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
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

	r.Route("/api/v1", func(r chi.Router) {
		if params.MasterDataHandler != nil {
			params.MasterDataHandler.MountRoutes(r)
		}
		if params.InventoryHandler != nil {
			params.InventoryHandler.MountRoutes(r)
		}
		if params.StockHandler != nil {
			params.StockHandler.MountRoutes(r)
		}
		if params.TransferHandler != nil {
			params.TransferHandler.MountRoutes(r)
		}
		if params.OrdersHandler != nil {
			params.OrdersHandler.MountRoutes(r)
		}
		if params.CustomersHandler != nil {
			params.CustomersHandler.MountRoutes(r)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
