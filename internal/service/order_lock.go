package service

import (
	"context"
	"fmt"
	"time"

	"furniture-erp/internal/models"
	"furniture-erp/internal/util"

	"go.uber.org/zap"
)

// orderEditor runs read-modify-write cycles on one order under the
// per-order Redis lock, so writes from different replicas never interleave
type orderEditor struct {
	orders  OrderStore
	locker  Locker
	lockTTL time.Duration
	logger  *zap.Logger
}

func orderLockKey(orderID string) string {
	return "order:" + orderID
}

// edit loads orderID under its lock, applies fn and hands the result to
// save. The lock is extended right before save; a lock that expired while
// fn ran aborts the write with ErrConflict.
func (e *orderEditor) edit(
	ctx context.Context,
	orderID string,
	fn func(*models.Order) error,
	save func(context.Context, *models.Order) error,
) (*models.Order, error) {
	lockKey := orderLockKey(orderID)
	token, err := e.locker.AcquireLock(ctx, lockKey, e.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire order lock: %w", err)
	}
	if token == "" {
		util.FragmentLockContention.Inc()
		return nil, fmt.Errorf("%w: order %s is being edited by another user", ErrConflict, orderID)
	}
	defer func() {
		if err := e.locker.ReleaseLock(ctx, lockKey, token); err != nil {
			e.logger.Warn("Failed to release order lock", zap.String("order_id", orderID), zap.Error(err))
		}
	}()

	order, err := e.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := fn(order); err != nil {
		return nil, err
	}

	held, err := e.locker.ExtendLock(ctx, lockKey, token, e.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to extend order lock: %w", err)
	}
	if !held {
		util.FragmentLockContention.Inc()
		e.logger.Warn("Order lock expired before write", zap.String("order_id", orderID))
		return nil, fmt.Errorf("%w: order %s lock expired, try again", ErrConflict, orderID)
	}

	if err := save(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}
