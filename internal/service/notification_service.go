package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/oakstreet-digital/business-site-backend/internal/config"
	"github.com/oakstreet-digital/business-site-backend/internal/events"
)

// NotificationService reacts to contact lifecycle events. Delivery is stubbed
// to structured logs; the config carries the email/webhook targets a real
// sender would use.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to contact events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventContactSubmitted, n.handleContactSubmitted)
	n.dispatcher.Subscribe(events.EventContactStatusChanged, n.handleContactStatusChanged)
	n.dispatcher.Subscribe(events.EventContactDeleted, n.handleContactDeleted)
}

func (n *NotificationService) handleContactSubmitted(ctx context.Context, event events.Event) error {
	n.logger.Info("ContactSubmitted", zap.String("contact_id", event.ContactID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleContactStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("ContactStatusChanged", zap.String("contact_id", event.ContactID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleContactDeleted(ctx context.Context, event events.Event) error {
	n.logger.Info("ContactDeleted", zap.String("contact_id", event.ContactID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("contact_id", event.ContactID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("contact_id", event.ContactID),
		zap.String("event_type", string(event.Type)))
}
