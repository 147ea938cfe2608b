package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/adityaverma/bazaarkart-backend/pkg/db/models"
	"github.com/adityaverma/bazaarkart-backend/pkg/enums"
	"github.com/adityaverma/bazaarkart-backend/pkg/logger"
	"github.com/adityaverma/bazaarkart-backend/pkg/outbox"
	"github.com/adityaverma/bazaarkart-backend/pkg/outbox/payloads"
	"github.com/adityaverma/bazaarkart-backend/pkg/outbox/registry"
)

const consumerName = "vendor-notifications"

type idempotencyGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer watches vendor domain events and turns them into in-app
// notifications. Every event is processed at most once per consumer name.
type Consumer struct {
	repo         Repository
	subscription *gcppubsub.Subscriber
	decoders     *registry.DecoderRegistry
	idempotency  idempotencyGuard
	logg         *logger.Logger
}

// NewConsumer builds a vendor notification consumer.
func NewConsumer(repo Repository, subscription *gcppubsub.Subscriber, guard idempotencyGuard, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("vendor subscription required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		decoders:     buildDecoders(),
		idempotency:  guard,
		logg:         logg,
	}, nil
}

func buildDecoders() *registry.DecoderRegistry {
	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventVendorOrderCreated, 1, func(payload json.RawMessage) (interface{}, error) {
		var out payloads.VendorOrderCreatedEvent
		if err := json.Unmarshal(payload, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	decoders.Register(enums.EventVendorReturnRequested, 1, func(payload json.RawMessage) (interface{}, error) {
		var out payloads.VendorReturnRequestedEvent
		if err := json.Unmarshal(payload, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	decoders.Register(enums.EventVendorOrderSettled, 1, func(payload json.RawMessage) (interface{}, error) {
		var out payloads.VendorOrderSettledEvent
		if err := json.Unmarshal(payload, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	decoders.Register(enums.EventWalletAdjusted, 1, func(payload json.RawMessage) (interface{}, error) {
		var out payloads.WalletAdjustedEvent
		if err := json.Unmarshal(payload, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	return decoders
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	rawType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": rawType,
	})

	eventType, err := enums.ParseOutboxEventType(rawType)
	if err != nil {
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "unknown event type on vendor topic")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	version := envelope.Version
	if version <= 0 {
		version = 1
	}

	decoded, err := c.decoders.Decode(eventType, version, envelope.Data)
	if err != nil {
		c.logg.Info(c.logg.WithField(logCtx, "reason", err.Error()), "skipping unhandled event")
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, consumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	notification, err := c.buildNotification(decoded)
	if err != nil {
		c.logg.Error(logCtx, "failed to build notification", err)
		_ = c.idempotency.Delete(ctx, consumerName, eventID)
		return processResult{ack: true}
	}

	if err := c.repo.Create(ctx, notification); err != nil {
		c.logg.Error(logCtx, "failed to store notification", err)
		_ = c.idempotency.Delete(ctx, consumerName, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(c.logg.WithFields(logCtx, map[string]any{
		"vendor_id":         notification.VendorID.String(),
		"notification_type": notification.Type,
	}), "vendor notified")
	return processResult{ack: true}
}

func (c *Consumer) buildNotification(decoded interface{}) (*models.VendorNotification, error) {
	switch payload := decoded.(type) {
	case *payloads.VendorOrderCreatedEvent:
		if payload.VendorID == uuid.Nil {
			return nil, fmt.Errorf("vendor id missing")
		}
		return &models.VendorNotification{
			VendorID: payload.VendorID,
			Type:     enums.NotificationTypeNewOrder,
			Title:    "New order received",
			Message:  fmt.Sprintf("You have a new order worth %s (your earnings: %s).", payload.Subtotal.StringFixed(2), payload.NetAmount.StringFixed(2)),
			Link:     vendorOrderLink(payload.VendorOrderID),
		}, nil
	case *payloads.VendorReturnRequestedEvent:
		if payload.VendorID == uuid.Nil {
			return nil, fmt.Errorf("vendor id missing")
		}
		message := fmt.Sprintf("A buyer requested a return on order %s.", payload.OrderID)
		if payload.Reason != "" {
			message = fmt.Sprintf("A buyer requested a return on order %s. Reason: %s", payload.OrderID, payload.Reason)
		}
		return &models.VendorNotification{
			VendorID: payload.VendorID,
			Type:     enums.NotificationTypeReturnRequest,
			Title:    "Return requested",
			Message:  message,
			Link:     vendorOrderLink(payload.VendorOrderID),
		}, nil
	case *payloads.VendorOrderSettledEvent:
		if payload.VendorID == uuid.Nil {
			return nil, fmt.Errorf("vendor id missing")
		}
		return &models.VendorNotification{
			VendorID: payload.VendorID,
			Type:     enums.NotificationTypeSettlement,
			Title:    "Earnings settled",
			Message:  fmt.Sprintf("%s moved to your available balance.", payload.NetAmount.StringFixed(2)),
			Link:     vendorOrderLink(payload.VendorOrderID),
		}, nil
	case *payloads.WalletAdjustedEvent:
		if payload.VendorID == uuid.Nil {
			return nil, fmt.Errorf("vendor id missing")
		}
		return &models.VendorNotification{
			VendorID: payload.VendorID,
			Type:     enums.NotificationTypeWalletAdjustment,
			Title:    "Wallet adjusted",
			Message:  fmt.Sprintf("Your wallet was corrected by %s. Reason: %s", payload.Delta.StringFixed(2), payload.Reason),
		}, nil
	default:
		return nil, fmt.Errorf("no notification for payload %T", decoded)
	}
}

func vendorOrderLink(vendorOrderID uuid.UUID) *string {
	if vendorOrderID == uuid.Nil {
		return nil
	}
	link := fmt.Sprintf("/vendor/orders/%s", vendorOrderID)
	return &link
}
