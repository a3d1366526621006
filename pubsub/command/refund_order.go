package command

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/jmoiron/sqlx"

	"boxoffice/entity"
	"boxoffice/pubsub/bus"
	"boxoffice/pubsub/outbox"
)

// RefundOrderHandler moves a paid order to refunded and reverses its effects
// in the same transaction: inventory released, tickets voided, event counters
// rolled back. The refund approval workflow lives outside this service; this
// is the atomic primitive it consumes.
func (h Handler) RefundOrderHandler() cqrs.CommandHandler {
	return cqrs.NewCommandHandler(
		"RefundOrderHandler",
		func(ctx context.Context, command *entity.RefundOrder) error {
			log.FromContext(ctx).WithField("order_id", command.OrderID).Info("Refunding order")

			applied, _, err := h.ordersRepo.Finalize(
				ctx,
				command.OrderID,
				entity.OrderStatusRefunded,
				func(ctx context.Context, tx *sqlx.Tx, order entity.Order) error {
					for _, item := range order.Items {
						if err := h.inventoryRepo.ReleaseTx(ctx, tx, item.TicketTypeID, item.Quantity); err != nil {
							return err
						}
					}

					if err := h.ticketsRepo.MarkRefundedTx(ctx, tx, order.OrderID); err != nil {
						return err
					}

					if err := h.eventsRepo.IncrementSalesTx(ctx, tx, order.EventID, -order.TicketCount(), -order.TotalAmount); err != nil {
						return err
					}

					outboxPublisher, err := outbox.NewPublisherForDb(ctx, tx)
					if err != nil {
						return fmt.Errorf("could not create outbox publisher: %w", err)
					}
					eventBus, err := bus.NewEventBus(outboxPublisher)
					if err != nil {
						return err
					}

					return eventBus.Publish(ctx, entity.OrderRefunded{
						Header:      entity.NewEventHeaderWithIdempotencyKey(command.Header.IdempotencyKey),
						OrderID:     order.OrderID,
						EventID:     order.EventID,
						TicketCount: order.TicketCount(),
						TotalAmount: entity.Money{Amount: order.TotalAmount, Currency: order.Currency},
					})
				},
			)
			if err != nil {
				return fmt.Errorf("could not refund order %s: %w", command.OrderID, err)
			}

			if !applied {
				log.FromContext(ctx).WithField("order_id", command.OrderID).Info("Order already refunded")
			}

			return nil
		},
	)
}
