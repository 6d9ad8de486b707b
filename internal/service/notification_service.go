package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/config"
	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/mq"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  mq.Publisher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service. A nil publisher disables forwarding.
func NewNotificationService(dispatcher events.Dispatcher, publisher mq.Publisher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if publisher == nil {
		publisher = mq.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketTransitioned, n.handleTicketTransitioned)
	n.dispatcher.Subscribe(events.EventTicketEvaluated, n.handleTicketEvaluated)
	n.dispatcher.Subscribe(events.EventTicketDeleted, n.handleTicketDeleted)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.Int64("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return n.forward(ctx, event)
}

func (n *NotificationService) handleTicketTransitioned(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketTransitioned", zap.Int64("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	if payload, ok := event.Payload.(events.TicketTransitionedPayload); ok && payload.OldStatus != payload.NewStatus {
		n.sendEmailNotificationStub(ctx, event)
	}
	n.sendWebhookNotificationStub(ctx, event)
	return n.forward(ctx, event)
}

func (n *NotificationService) handleTicketEvaluated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketEvaluated", zap.Int64("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return n.forward(ctx, event)
}

func (n *NotificationService) handleTicketDeleted(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketDeleted", zap.Int64("ticket_id", event.TicketID))
	return n.forward(ctx, event)
}

func (n *NotificationService) forward(ctx context.Context, event events.Event) error {
	if err := n.publisher.Publish(ctx, string(event.Type), event); err != nil {
		n.logger.Warn("forward event", zap.String("event_type", string(event.Type)), zap.Error(err))
		return err
	}
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.Int64("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.Int64("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
