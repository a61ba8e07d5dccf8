package integration

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/sales/orders"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/stock"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/transfer"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/jobs"
)

type captureNotifier struct {
	payloads []jobs.NotifyPayload
	fail     bool
}

func (c *captureNotifier) EnqueueNotify(ctx context.Context, payload jobs.NotifyPayload) error {
	if c.fail {
		return errors.New("queue down")
	}
	c.payloads = append(c.payloads, payload)
	return nil
}

func newTestCache(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestStockApprovedInvalidatesAndNotifies(t *testing.T) {
	mr, client := newTestCache(t)
	require.NoError(t, mr.Set("inventory:warehouse:1", "cached"))
	require.NoError(t, mr.Set("inventory:warehouse:2", "cached"))

	notifier := &captureNotifier{}
	hooks := NewHooks(slog.Default(), notifier, client)

	hooks.HandleStockTransactionApproved(context.Background(), stock.TransactionApprovedEvent{
		TransactionID: 7,
		Code:          "PCK-20260831-0001",
		Type:          stock.TypeTransfer,
		WarehouseID:   1,
		DestWarehouse: 2,
		ActorID:       3,
		ApprovedAt:    time.Now(),
	})

	require.False(t, mr.Exists("inventory:warehouse:1"))
	require.False(t, mr.Exists("inventory:warehouse:2"))
	require.Len(t, notifier.payloads, 1)
	require.Equal(t, "stock.transfer.approved", notifier.payloads[0].Event)
	require.Equal(t, "PCK-20260831-0001", notifier.payloads[0].Code)
}

func TestOrderEventsInvalidateOrderAndCustomer(t *testing.T) {
	mr, client := newTestCache(t)
	require.NoError(t, mr.Set("order:12", "cached"))
	require.NoError(t, mr.Set("customer:5", "cached"))

	notifier := &captureNotifier{}
	hooks := NewHooks(slog.Default(), notifier, client)

	hooks.HandleOrderCreated(context.Background(), orders.OrderCreatedEvent{
		OrderID:    12,
		Code:       "DH-20260831-0001",
		CustomerID: 5,
		Type:       orders.TypeDelivery,
	})
	require.False(t, mr.Exists("order:12"))
	require.False(t, mr.Exists("customer:5"))

	hooks.HandleOrderStatusChanged(context.Background(), orders.OrderStatusChangedEvent{
		OrderID: 12,
		Code:    "DH-20260831-0001",
		From:    orders.StatusPending,
		To:      orders.StatusPreparing,
	})
	require.Len(t, notifier.payloads, 2)
	require.Equal(t, "order.created", notifier.payloads[0].Event)
	require.Equal(t, "order.preparing", notifier.payloads[1].Event)
}

func TestTransferCompletedNotifies(t *testing.T) {
	_, client := newTestCache(t)
	notifier := &captureNotifier{}
	hooks := NewHooks(slog.Default(), notifier, client)

	hooks.HandleTransferCompleted(context.Background(), transfer.TransferCompletedEvent{
		TransferID:      4,
		Code:            "PCK-20260831-0002",
		SourceWarehouse: 1,
		DestWarehouse:   2,
	})
	require.Len(t, notifier.payloads, 1)
	require.Equal(t, "transfer.completed", notifier.payloads[0].Event)
}

func TestFailuresNeverPropagate(t *testing.T) {
	mr, client := newTestCache(t)
	mr.Close()

	notifier := &captureNotifier{fail: true}
	hooks := NewHooks(slog.Default(), notifier, client)

	// broken cache and queue: handlers still return normally
	hooks.HandleOrderCreated(context.Background(), orders.OrderCreatedEvent{OrderID: 1, Code: "DH-x", CustomerID: 1})
	hooks.HandleStockTransactionApproved(context.Background(), stock.TransactionApprovedEvent{TransactionID: 1, Code: "PNK-x", WarehouseID: 1})
	require.Empty(t, notifier.payloads)
}

func TestNilDependenciesAreSkipped(t *testing.T) {
	hooks := NewHooks(slog.Default(), nil, nil)
	hooks.HandleOrderCreated(context.Background(), orders.OrderCreatedEvent{OrderID: 1})
	hooks.HandleTransferCompleted(context.Background(), transfer.TransferCompletedEvent{TransferID: 1})
}
