package service

import (
	"context"
	"fmt"
	"time"

	"furniture-erp/internal/models"
	"furniture-erp/internal/production"
	"furniture-erp/internal/util"

	"go.uber.org/zap"
)

// FragmentService edits the fragment array of an order. Every write holds a
// per-order Redis lock for the read-modify-write cycle.
type FragmentService struct {
	orders         OrderStore
	editor         *orderEditor
	eventPublisher Publisher
	logger         *zap.Logger
	now            func() time.Time
}

// NewFragmentService creates a new fragment service. The order lock it
// holds is shared with the order and agenda services.
func NewFragmentService(orders OrderStore, locker Locker, eventPublisher Publisher, lockTTL time.Duration) *FragmentService {
	logger := util.GetLogger()
	return &FragmentService{
		orders:         orders,
		editor:         &orderEditor{orders: orders, locker: locker, lockTTL: lockTTL, logger: logger},
		eventPublisher: eventPublisher,
		logger:         logger,
		now:            time.Now,
	}
}

// mutate loads the order under its lock, applies fn and saves the fragments
func (s *FragmentService) mutate(ctx context.Context, orderID, mode, eventType string, fn func(*models.Order) error) (*models.Order, error) {
	order, err := s.editor.edit(ctx, orderID, func(order *models.Order) error {
		if err := fn(order); err != nil {
			return domainError(err)
		}
		order.IsFragmented = len(order.Fragments) > 0
		return nil
	}, s.orders.UpdateOrderFragments)
	if err != nil {
		return nil, err
	}

	util.FragmentsSavedTotal.WithLabelValues(mode).Inc()
	s.logger.Info("Order fragments saved",
		zap.String("order_id", order.ID),
		zap.String("mode", mode),
		zap.Int("fragments", len(order.Fragments)))

	if err := s.eventPublisher.PublishOrderChanged(ctx, eventType, order, mode); err != nil {
		s.logger.Error("Failed to publish fragment event", zap.String("order_id", order.ID), zap.Error(err))
	}
	return order, nil
}

// Plan returns the fragmentation plan of one order line
func (s *FragmentService) Plan(ctx context.Context, orderID, productID string) (*production.Plan, error) {
	ctx, span := util.StartSpan(ctx, "FragmentService.Plan")
	defer span.End()

	if productID == "" {
		return nil, invalid("product_id is required")
	}
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	plan, err := production.PlanFor(order, productID)
	return plan, domainError(err)
}

// Status summarizes fragmented and remaining quantities of every line
func (s *FragmentService) Status(ctx context.Context, orderID string) ([]production.LineStatus, error) {
	ctx, span := util.StartSpan(ctx, "FragmentService.Status")
	defer span.End()

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return production.Status(order), nil
}

// Replace swaps the fragments of one order line for drafts
func (s *FragmentService) Replace(ctx context.Context, orderID, productID string, drafts []production.Draft) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "FragmentService.Replace")
	defer span.End()

	if productID == "" {
		return nil, invalid("product_id is required")
	}
	return s.mutate(ctx, orderID, "replace", models.EventTypeOrderFragmented, func(order *models.Order) error {
		fragments, err := production.Replace(order, productID, drafts, s.now())
		if err != nil {
			return err
		}
		order.Fragments = fragments
		return nil
	})
}

// Split appends one fragment per requested line
func (s *FragmentService) Split(ctx context.Context, orderID string, requests []production.SplitRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "FragmentService.Split")
	defer span.End()

	return s.mutate(ctx, orderID, "split", models.EventTypeOrderFragmented, func(order *models.Order) error {
		fragments, err := production.Split(order, requests, s.now())
		if err != nil {
			return err
		}
		order.Fragments = fragments
		return nil
	})
}

// Clear removes every fragment of one order line
func (s *FragmentService) Clear(ctx context.Context, orderID, productID string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "FragmentService.Clear")
	defer span.End()

	if productID == "" {
		return nil, invalid("product_id is required")
	}
	return s.mutate(ctx, orderID, "clear", models.EventTypeOrderFragmented, func(order *models.Order) error {
		order.Fragments = production.Clear(order, productID)
		return nil
	})
}

// Reschedule moves one fragment to date. Nothing else on the order changes.
func (s *FragmentService) Reschedule(ctx context.Context, orderID, fragmentID string, date time.Time) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "FragmentService.Reschedule")
	defer span.End()

	order, err := s.mutate(ctx, orderID, "reschedule", models.EventTypeOrderRescheduled, func(order *models.Order) error {
		for i := range order.Fragments {
			if order.Fragments[i].ID == fragmentID {
				d := date
				order.Fragments[i].ScheduledDate = &d
				return nil
			}
		}
		return fmt.Errorf("fragment %s: %w", fragmentID, ErrNotFound)
	})
	if err != nil {
		return nil, err
	}
	util.OrdersRescheduledTotal.WithLabelValues("fragment").Inc()
	return order, nil
}
