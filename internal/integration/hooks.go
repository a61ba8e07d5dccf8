// Package integration fans domain events out to the notification queue and
// invalidates cache keys made stale by mutations. Everything here is
// fire-and-forget: a broken queue or cache never fails the business
// operation that emitted the event.
package integration

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/sales/orders"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/stock"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/transfer"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/jobs"
)

// Notifier enqueues outbound notification tasks.
type Notifier interface {
	EnqueueNotify(ctx context.Context, payload jobs.NotifyPayload) error
}

// Hooks subscribes to module events. Either dependency may be nil; the
// corresponding side effect is skipped.
type Hooks struct {
	logger   *slog.Logger
	notifier Notifier
	cache    redis.UniversalClient
}

// NewHooks constructs integration hooks.
func NewHooks(logger *slog.Logger, notifier Notifier, cache redis.UniversalClient) *Hooks {
	return &Hooks{logger: logger, notifier: notifier, cache: cache}
}

func (h *Hooks) notify(ctx context.Context, payload jobs.NotifyPayload) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.EnqueueNotify(ctx, payload); err != nil {
		h.logger.Warn("notify enqueue failed",
			slog.String("event", payload.Event),
			slog.String("code", payload.Code),
			slog.Any("error", err))
	}
}

func (h *Hooks) invalidate(ctx context.Context, keys ...string) {
	if h.cache == nil || len(keys) == 0 {
		return
	}
	if err := h.cache.Del(ctx, keys...).Err(); err != nil {
		h.logger.Warn("cache invalidation failed",
			slog.Any("keys", keys),
			slog.Any("error", err))
	}
}

// HandleStockTransactionApproved reacts to an applied movement document.
func (h *Hooks) HandleStockTransactionApproved(ctx context.Context, evt stock.TransactionApprovedEvent) {
	if h == nil {
		return
	}
	h.invalidate(ctx, stockCacheKeys(evt)...)
	h.notify(ctx, stockApprovedNotify(evt))
}

// HandleTransferCompleted reacts to a completed two-warehouse move.
func (h *Hooks) HandleTransferCompleted(ctx context.Context, evt transfer.TransferCompletedEvent) {
	if h == nil {
		return
	}
	h.invalidate(ctx, transferCacheKeys(evt)...)
	h.notify(ctx, transferCompletedNotify(evt))
}

// HandleOrderCreated reacts to a new sales order.
func (h *Hooks) HandleOrderCreated(ctx context.Context, evt orders.OrderCreatedEvent) {
	if h == nil {
		return
	}
	h.invalidate(ctx, orderKey(evt.OrderID), customerKey(evt.CustomerID))
	h.notify(ctx, orderCreatedNotify(evt))
}

// HandleOrderStatusChanged reacts to a fulfillment transition.
func (h *Hooks) HandleOrderStatusChanged(ctx context.Context, evt orders.OrderStatusChangedEvent) {
	if h == nil {
		return
	}
	h.invalidate(ctx, orderKey(evt.OrderID))
	h.notify(ctx, orderStatusNotify(evt))
}
