package event

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"boxoffice/entity"
)

// NotifyBuyerHandler hands a paid order off to the notification collaborator.
// Delivery is at-least-once via router retries; a failure here can never roll
// back the payment, which committed before this event was forwarded.
func (h Handler) NotifyBuyerHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"NotifyBuyerHandler",
		func(ctx context.Context, event *entity.OrderPaid) error {
			log.FromContext(ctx).WithField("order_id", event.OrderID).Info("Notifying buyer")

			eventInfo, err := h.eventsRepo.Get(ctx, event.EventID)
			if err != nil {
				return fmt.Errorf("could not load event for notification: %w", err)
			}

			err = h.notificationService.NotifyOrderPaid(ctx, entity.OrderNotification{
				OrderID:         event.OrderID,
				AttendeeContact: event.BuyerID,
				EventSummary:    eventInfo.Summary(),
				TicketCount:     event.TicketCount,
				TotalAmount:     event.TotalAmount,
			})
			if err != nil {
				return fmt.Errorf("could not notify buyer: %w", err)
			}

			return nil
		},
	)
}
