package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fieldserve/ticket-tracker/internal/events"
	"github.com/fieldserve/ticket-tracker/internal/mail"
)

// NotificationService reacts to lifecycle events. All of its work is
// best-effort; a failed notification never fails the triggering operation.
type NotificationService struct {
	dispatcher events.Dispatcher
	mailer     mail.Mailer
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, mailer mail.Mailer, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		mailer:     mailer,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketDeleted, n.handleTicketDeleted)
	n.dispatcher.Subscribe(events.EventEstimateEmailed, n.handleEstimateEmailed)
}

// handleTicketCreated sends the customer an acknowledgment with their
// ticket number. The dispatcher runs handlers inline with creation, so
// the send is detached; a slow relay must not hold up intake.
func (n *NotificationService) handleTicketCreated(_ context.Context, event events.Event) error {
	n.logger.Info("TicketCreated",
		zap.String("ticket_id", event.TicketID),
		zap.String("ticket_number", event.TicketNumber))

	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok || n.mailer == nil {
		return nil
	}
	go n.sendAcknowledgment(payload, event.TicketNumber)
	return nil
}

func (n *NotificationService) sendAcknowledgment(payload events.TicketCreatedPayload, ticketNumber string) {
	_, err := n.mailer.Send(context.Background(), mail.Message{
		To:      payload.Email,
		Subject: fmt.Sprintf("Service request %s received", ticketNumber),
		Body: fmt.Sprintf("Hello %s,\n\nWe received your service request. Your ticket number is %s.\n",
			payload.Name, ticketNumber),
	})
	if err != nil {
		n.logger.Warn("acknowledgment email failed",
			zap.String("ticket_number", ticketNumber),
			zap.Error(err))
	}
}

func (n *NotificationService) handleTicketDeleted(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketDeleted",
		zap.String("ticket_id", event.TicketID),
		zap.String("ticket_number", event.TicketNumber),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleEstimateEmailed(ctx context.Context, event events.Event) error {
	n.logger.Info("EstimateEmailed",
		zap.String("ticket_number", event.TicketNumber),
		zap.Any("payload", event.Payload))
	return nil
}
