package worker

import (
	"context"
	"fmt"

	"furniture-erp/internal/broker"
	"furniture-erp/internal/models"
	"furniture-erp/internal/sse"
	"furniture-erp/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Consumer delivers kafka messages to a handler until ctx is done
type Consumer interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// EventLog records handled event ids so redelivered messages are ignored.
// Ids are scoped by instance: every replica handles every event once.
type EventLog interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// CatalogCache is the cache generation of the product listing
type CatalogCache interface {
	BumpCatalogVersion(ctx context.Context) (int64, error)
}

// Broadcaster pushes events to connected SSE clients
type Broadcaster interface {
	Broadcast(event sse.Event)
}

// ChangeWorker turns change events into cache invalidation and SSE pushes
type ChangeWorker struct {
	consumer     Consumer
	eventHandler *broker.EventHandler
	events       EventLog
	cache        CatalogCache
	hub          Broadcaster
	instanceID   string
	logger       *zap.Logger
}

// NewChangeWorker creates a new change worker for one server instance
func NewChangeWorker(consumer Consumer, events EventLog, cache CatalogCache, hub Broadcaster, instanceID string) *ChangeWorker {
	w := &ChangeWorker{
		consumer:   consumer,
		events:     events,
		cache:      cache,
		hub:        hub,
		instanceID: instanceID,
		logger:     util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderChanged(w.handleOrderChanged)
	eventHandler.OnProductChanged(w.handleProductChanged)
	eventHandler.OnProductsImported(w.handleProductsImported)
	w.eventHandler = eventHandler
	return w
}

// Start consumes until ctx is cancelled
func (w *ChangeWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting change worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop closes the consumer
func (w *ChangeWorker) Stop() error {
	w.logger.Info("Stopping change worker")
	return w.consumer.Close()
}

// once runs fn unless the event was already handled, then marks it
func (w *ChangeWorker) once(ctx context.Context, base models.BaseEvent, fn func() error) error {
	ctx, span := util.StartSpan(ctx, "ChangeWorker."+base.EventType,
		attribute.String("event.id", base.EventID))
	defer span.End()

	logID := w.logID(base.EventID)
	if logID != "" {
		processed, err := w.events.IsEventProcessed(ctx, logID)
		if err != nil {
			return util.RecordError(span, fmt.Errorf("failed to check event %s: %w", base.EventID, err))
		}
		if processed {
			w.logger.Debug("Event already processed", zap.String("event_id", base.EventID))
			return nil
		}
	}

	if err := fn(); err != nil {
		return util.RecordError(span, err)
	}

	if logID != "" {
		if err := w.events.MarkEventProcessed(ctx, logID, base.EventType); err != nil {
			w.logger.Warn("Failed to mark event processed", zap.String("event_id", base.EventID), zap.Error(err))
		}
	}
	return nil
}

// logID is the event log key of eventID for this instance
func (w *ChangeWorker) logID(eventID string) string {
	if eventID == "" || w.instanceID == "" {
		return eventID
	}
	return w.instanceID + ":" + eventID
}

func (w *ChangeWorker) handleOrderChanged(ctx context.Context, event *models.OrderChangedEvent) error {
	return w.once(ctx, event.BaseEvent, func() error {
		w.hub.Broadcast(sse.NewEvent(sse.EventOrdersChanged, map[string]string{
			"order_id":     event.OrderID,
			"order_number": event.OrderNumber,
			"status":       event.Status,
			"action":       event.Action,
		}))
		return nil
	})
}

func (w *ChangeWorker) handleProductChanged(ctx context.Context, event *models.ProductChangedEvent) error {
	return w.once(ctx, event.BaseEvent, func() error {
		w.invalidateCatalog(ctx)
		w.hub.Broadcast(sse.NewEvent(sse.EventProductsChanged, map[string]string{
			"product_id": event.ProductID,
			"sku":        event.SKU,
			"action":     event.Action,
		}))
		return nil
	})
}

func (w *ChangeWorker) handleProductsImported(ctx context.Context, event *models.ProductsImportedEvent) error {
	return w.once(ctx, event.BaseEvent, func() error {
		w.invalidateCatalog(ctx)
		w.hub.Broadcast(sse.NewEvent(sse.EventProductsChanged, map[string]interface{}{
			"action":  "imported",
			"created": event.Created,
			"updated": event.Updated,
		}))
		return nil
	})
}

// invalidateCatalog also covers writes made by other instances and the CLI
func (w *ChangeWorker) invalidateCatalog(ctx context.Context) {
	if _, err := w.cache.BumpCatalogVersion(ctx); err != nil {
		w.logger.Warn("Failed to bump catalog version", zap.Error(err))
	}
}
