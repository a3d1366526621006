package event

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/google/uuid"

	"boxoffice/entity"
)

// PaymentAuditHandler records failed payments so operators can tell sold-out
// rejections apart from gateway failures.
func (h Handler) PaymentAuditHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"PaymentAuditHandler",
		func(ctx context.Context, event *entity.OrderPaymentFailed) error {
			orderID := event.OrderID
			err := h.auditRepo.Store(ctx, entity.PaymentAudit{
				AuditID:        uuid.NewString(),
				TransactionRef: event.TransactionRef,
				OrderID:        &orderID,
				GatewayStatus:  event.GatewayStatus,
				Outcome:        string(entity.OrderStatusFailed),
				Reason:         event.Reason,
				RecordedAt:     event.Header.PublishedAt,
			})
			if err != nil {
				return fmt.Errorf("could not store payment audit entry: %w", err)
			}
			return nil
		},
	)
}
