package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"furniture-erp/internal/models"
	"furniture-erp/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// eventProducer is satisfied by *Producer
type eventProducer interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// EventPublisher handles publishing change events
type EventPublisher struct {
	producer eventProducer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func (ep *EventPublisher) publish(ctx context.Context, key, eventType string, event interface{}) error {
	err := ep.producer.PublishEvent(ctx, key, event)
	status := "ok"
	if err != nil {
		status = "error"
	}
	util.EventsPublishedTotal.WithLabelValues(eventType, status).Inc()
	return err
}

// PublishOrderChanged publishes an order event of the given type
func (ep *EventPublisher) PublishOrderChanged(ctx context.Context, eventType string, order *models.Order, action string) error {
	event := &models.OrderChangedEvent{
		BaseEvent:   newBaseEvent(eventType),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Action:      action,
	}
	return ep.publish(ctx, "order-"+order.ID, eventType, event)
}

// PublishProductChanged publishes a PRODUCT_CHANGED event
func (ep *EventPublisher) PublishProductChanged(ctx context.Context, product *models.Product, action string) error {
	event := &models.ProductChangedEvent{
		BaseEvent: newBaseEvent(models.EventTypeProductChanged),
		ProductID: product.ID,
		SKU:       product.SKU,
		Action:    action,
	}
	return ep.publish(ctx, "product-"+product.ID, models.EventTypeProductChanged, event)
}

// PublishProductsImported publishes a PRODUCTS_IMPORTED event
func (ep *EventPublisher) PublishProductsImported(ctx context.Context, event *models.ProductsImportedEvent) error {
	event.BaseEvent = newBaseEvent(models.EventTypeProductsImported)
	return ep.publish(ctx, "catalog", models.EventTypeProductsImported, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onOrderChanged     func(context.Context, *models.OrderChangedEvent) error
	onProductChanged   func(context.Context, *models.ProductChangedEvent) error
	onProductsImported func(context.Context, *models.ProductsImportedEvent) error
	logger             *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnOrderChanged registers a handler for every order event type
func (eh *EventHandler) OnOrderChanged(handler func(context.Context, *models.OrderChangedEvent) error) {
	eh.onOrderChanged = handler
}

// OnProductChanged registers a handler for PRODUCT_CHANGED events
func (eh *EventHandler) OnProductChanged(handler func(context.Context, *models.ProductChangedEvent) error) {
	eh.onProductChanged = handler
}

// OnProductsImported registers a handler for PRODUCTS_IMPORTED events
func (eh *EventHandler) OnProductsImported(handler func(context.Context, *models.ProductsImportedEvent) error) {
	eh.onProductsImported = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch {
	case models.IsOrderEvent(baseEvent.EventType):
		if eh.onOrderChanged != nil {
			var event models.OrderChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal %s event: %w", baseEvent.EventType, err)
			}
			return eh.onOrderChanged(ctx, &event)
		}

	case baseEvent.EventType == models.EventTypeProductChanged:
		if eh.onProductChanged != nil {
			var event models.ProductChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ProductChanged event: %w", err)
			}
			return eh.onProductChanged(ctx, &event)
		}

	case baseEvent.EventType == models.EventTypeProductsImported:
		if eh.onProductsImported != nil {
			var event models.ProductsImportedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ProductsImported event: %w", err)
			}
			return eh.onProductsImported(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
