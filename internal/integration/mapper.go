package integration

import (
	"fmt"

	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/sales/orders"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/stock"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/transfer"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/jobs"
)

// Cache key layout: readers populate these, mutations invalidate them.
func inventoryKey(warehouseID, productID int64) string {
	return fmt.Sprintf("inventory:%d:%d", warehouseID, productID)
}

func warehouseKey(warehouseID int64) string {
	return fmt.Sprintf("inventory:warehouse:%d", warehouseID)
}

func orderKey(orderID int64) string {
	return fmt.Sprintf("order:%d", orderID)
}

func customerKey(customerID int64) string {
	return fmt.Sprintf("customer:%d", customerID)
}

// stockCacheKeys lists keys gone stale after a movement document applies.
// Per-product keys are unknown at event level, so whole-warehouse keys are
// dropped instead.
func stockCacheKeys(evt stock.TransactionApprovedEvent) []string {
	keys := []string{warehouseKey(evt.WarehouseID)}
	if evt.DestWarehouse != 0 && evt.DestWarehouse != evt.WarehouseID {
		keys = append(keys, warehouseKey(evt.DestWarehouse))
	}
	return keys
}

func transferCacheKeys(evt transfer.TransferCompletedEvent) []string {
	return []string{warehouseKey(evt.SourceWarehouse), warehouseKey(evt.DestWarehouse)}
}

func orderCreatedNotify(evt orders.OrderCreatedEvent) jobs.NotifyPayload {
	return jobs.NotifyPayload{
		Event:    "order.created",
		Entity:   "sales_order",
		EntityID: evt.OrderID,
		Code:     evt.Code,
		ActorID:  evt.ActorID,
		At:       evt.CreatedAt,
	}
}

func orderStatusNotify(evt orders.OrderStatusChangedEvent) jobs.NotifyPayload {
	return jobs.NotifyPayload{
		Event:    fmt.Sprintf("order.%s", evt.To),
		Entity:   "sales_order",
		EntityID: evt.OrderID,
		Code:     evt.Code,
		ActorID:  evt.ActorID,
		At:       evt.At,
	}
}

func stockApprovedNotify(evt stock.TransactionApprovedEvent) jobs.NotifyPayload {
	return jobs.NotifyPayload{
		Event:    fmt.Sprintf("stock.%s.approved", evt.Type),
		Entity:   "stock_transaction",
		EntityID: evt.TransactionID,
		Code:     evt.Code,
		ActorID:  evt.ActorID,
		At:       evt.ApprovedAt,
	}
}

func transferCompletedNotify(evt transfer.TransferCompletedEvent) jobs.NotifyPayload {
	return jobs.NotifyPayload{
		Event:    "transfer.completed",
		Entity:   "stock_transfer",
		EntityID: evt.TransferID,
		Code:     evt.Code,
		ActorID:  evt.ActorID,
		At:       evt.CompletedAt,
	}
}
