package service

import (
	"context"
	"fmt"
	"time"

	"furniture-erp/internal/models"
	"furniture-erp/internal/production"
	"furniture-erp/internal/store"
	"furniture-erp/internal/util"

	"go.uber.org/zap"
)

// AgendaService serves the production calendar and the approval flow
type AgendaService struct {
	orders         OrderStore
	products       ProductStore
	fragments      *FragmentService
	eventPublisher Publisher
	loc            *time.Location
	logger         *zap.Logger
	now            func() time.Time
}

// NewAgendaService creates a new agenda service. Calendar days are taken in loc.
func NewAgendaService(
	orders OrderStore,
	products ProductStore,
	fragments *FragmentService,
	eventPublisher Publisher,
	loc *time.Location,
) *AgendaService {
	if loc == nil {
		loc = time.UTC
	}
	return &AgendaService{
		orders:         orders,
		products:       products,
		fragments:      fragments,
		eventPublisher: eventPublisher,
		loc:            loc,
		logger:         util.GetLogger(),
		now:            time.Now,
	}
}

// Location returns the business time zone
func (s *AgendaService) Location() *time.Location {
	return s.loc
}

// ParseScheduleDate accepts a calendar day (YYYY-MM-DD), read as midnight in
// the business time zone, or a full RFC 3339 timestamp.
func (s *AgendaService) ParseScheduleDate(value string) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", value, s.loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, invalid("invalid date %q", value)
	}
	return t, nil
}

// Month builds the calendar grid of month (YYYY-MM, empty for the current
// month) with orders and fragments placed on their days.
func (s *AgendaService) Month(ctx context.Context, month string) (*production.Month, error) {
	ctx, span := util.StartSpan(ctx, "AgendaService.Month")
	defer span.End()

	now := s.now()
	start, err := production.ParseMonth(month, now, s.loc)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}

	grid := production.MonthGrid(start, now, s.loc)
	from, _ := time.ParseInLocation("2006-01-02", grid.Days[0].Date, s.loc)
	to, _ := time.ParseInLocation("2006-01-02", grid.Days[len(grid.Days)-1].Date, s.loc)
	to = to.AddDate(0, 0, 1)

	orders, err := s.orders.ListOrdersForCalendar(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar orders: %w", err)
	}

	skus, err := s.skusFor(ctx, orders)
	if err != nil {
		s.logger.Warn("Failed to load SKUs for OP numbers", zap.Error(err))
		skus = map[string]string{}
	}

	grid.Place(orders, skus)
	return grid, nil
}

func (s *AgendaService) skusFor(ctx context.Context, orders []models.Order) (map[string]string, error) {
	seen := map[string]bool{}
	var ids []string
	for _, o := range orders {
		for _, f := range o.Fragments {
			if f.ProductID != "" && !seen[f.ProductID] {
				seen[f.ProductID] = true
				ids = append(ids, f.ProductID)
			}
		}
		for _, l := range o.Products {
			if l.ProductID != "" && !seen[l.ProductID] {
				seen[l.ProductID] = true
				ids = append(ids, l.ProductID)
			}
		}
	}

	products, err := s.products.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	skus := make(map[string]string, len(products))
	for _, p := range products {
		skus[p.ID] = p.SKU
	}
	return skus, nil
}

// RescheduleOrder moves an order to date and confirms it
func (s *AgendaService) RescheduleOrder(ctx context.Context, orderID string, date time.Time) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "AgendaService.RescheduleOrder")
	defer span.End()

	order, err := s.fragments.editor.edit(ctx, orderID, func(order *models.Order) error {
		order.ScheduledDate = &date
		order.Status = models.OrderStatusConfirmed
		return nil
	}, s.orders.UpdateOrder)
	if err != nil {
		return nil, err
	}

	util.OrdersRescheduledTotal.WithLabelValues("order").Inc()
	s.logger.Info("Order rescheduled",
		zap.String("order_id", order.ID),
		zap.Time("scheduled_date", date))
	s.publish(ctx, models.EventTypeOrderRescheduled, order, "rescheduled")
	return order, nil
}

// RescheduleFragment moves one fragment to date
func (s *AgendaService) RescheduleFragment(ctx context.Context, orderID, fragmentID string, date time.Time) (*models.Order, error) {
	return s.fragments.Reschedule(ctx, orderID, fragmentID, date)
}

// Approve sends an order into production. Callers without the approval
// permission are rejected.
func (s *AgendaService) Approve(ctx context.Context, orderID string, canApprove bool) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "AgendaService.Approve")
	defer span.End()

	if !canApprove {
		return nil, fmt.Errorf("%w: approving orders requires the approve:orders permission", ErrForbidden)
	}

	order, err := s.fragments.editor.edit(ctx, orderID, func(order *models.Order) error {
		production.Approve(order, s.now())
		return nil
	}, s.orders.UpdateOrder)
	if err != nil {
		return nil, err
	}

	util.OrdersApprovedTotal.Inc()
	s.logger.Info("Order approved", zap.String("order_id", order.ID), zap.String("order_number", order.OrderNumber))
	s.publish(ctx, models.EventTypeOrderApproved, order, "approved")
	return order, nil
}

// AdvanceStage completes the running production stage and starts the next
func (s *AgendaService) AdvanceStage(ctx context.Context, orderID string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "AgendaService.AdvanceStage")
	defer span.End()

	var before map[string]bool
	order, err := s.fragments.editor.edit(ctx, orderID, func(order *models.Order) error {
		if order.Status != models.OrderStatusInProduction {
			return invalid("order %s is not in production", order.OrderNumber)
		}
		before = completedStages(order.ProductionStages)
		return domainError(production.Advance(order, s.now()))
	}, s.orders.UpdateOrder)
	if err != nil {
		return nil, err
	}

	for _, st := range order.ProductionStages {
		if st.Status == models.StageStatusCompleted && !before[st.Stage] {
			util.ProductionStagesAdvancedTotal.WithLabelValues(st.Stage).Inc()
		}
	}
	s.publish(ctx, models.EventTypeOrderUpdated, order, "stage")
	return order, nil
}

func completedStages(stages models.ProductionStages) map[string]bool {
	out := make(map[string]bool, len(stages))
	for _, st := range stages {
		if st.Status == models.StageStatusCompleted {
			out[st.Stage] = true
		}
	}
	return out
}

// Pending lists orders for the approval screen
func (s *AgendaService) Pending(ctx context.Context, filter production.PendingFilter) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "AgendaService.Pending")
	defer span.End()

	orders, err := s.orders.ListOrders(ctx, storeFilterFor(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending orders: %w", err)
	}
	return production.FilterPending(orders, filter), nil
}

// storeFilterFor pushes the status condition of filter down to the store
func storeFilterFor(filter production.PendingFilter) store.OrderFilter {
	status := filter.Status
	if status == "" {
		status = models.OrderStatusAwaitingApproval
	}
	if status == production.StatusAll {
		return store.OrderFilter{}
	}
	return store.OrderFilter{Statuses: []string{status}}
}

func (s *AgendaService) publish(ctx context.Context, eventType string, order *models.Order, action string) {
	if err := s.eventPublisher.PublishOrderChanged(ctx, eventType, order, action); err != nil {
		s.logger.Error("Failed to publish order event",
			zap.String("event_type", eventType),
			zap.String("order_id", order.ID),
			zap.Error(err))
	}
}
