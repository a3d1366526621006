package event

import (
	"context"

	"boxoffice/entity"
)

type NotificationService interface {
	NotifyOrderPaid(ctx context.Context, notification entity.OrderNotification) error
}

type EventsRepository interface {
	Get(ctx context.Context, eventID string) (entity.Event, error)
}

type AuditRepository interface {
	Store(ctx context.Context, entry entity.PaymentAudit) error
}

type Handler struct {
	notificationService NotificationService
	eventsRepo          EventsRepository
	auditRepo           AuditRepository
}

func NewHandler(
	notificationService NotificationService,
	eventsRepo EventsRepository,
	auditRepo AuditRepository,
) Handler {
	if notificationService == nil {
		panic("missing notificationService")
	}
	if eventsRepo == nil {
		panic("missing eventsRepo")
	}
	if auditRepo == nil {
		panic("missing auditRepo")
	}

	return Handler{
		notificationService: notificationService,
		eventsRepo:          eventsRepo,
		auditRepo:           auditRepo,
	}
}
