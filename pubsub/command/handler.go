package command

import (
	"context"

	"github.com/jmoiron/sqlx"

	"boxoffice/entity"
)

type OrdersRepository interface {
	Finalize(
		ctx context.Context,
		orderID string,
		outcome entity.OrderStatus,
		applyFn func(ctx context.Context, tx *sqlx.Tx, order entity.Order) error,
	) (applied bool, order entity.Order, err error)
}

type InventoryRepository interface {
	ReleaseTx(ctx context.Context, tx *sqlx.Tx, ticketTypeID string, quantity int) error
}

type TicketsRepository interface {
	MarkRefundedTx(ctx context.Context, tx *sqlx.Tx, orderID string) error
}

type EventsRepository interface {
	IncrementSalesTx(ctx context.Context, tx *sqlx.Tx, eventID string, tickets int, revenue int64) error
}

type Handler struct {
	ordersRepo    OrdersRepository
	inventoryRepo InventoryRepository
	ticketsRepo   TicketsRepository
	eventsRepo    EventsRepository
}

func NewHandler(
	ordersRepo OrdersRepository,
	inventoryRepo InventoryRepository,
	ticketsRepo TicketsRepository,
	eventsRepo EventsRepository,
) Handler {
	if ordersRepo == nil {
		panic("missing ordersRepo")
	}
	if inventoryRepo == nil {
		panic("missing inventoryRepo")
	}
	if ticketsRepo == nil {
		panic("missing ticketsRepo")
	}
	if eventsRepo == nil {
		panic("missing eventsRepo")
	}

	return Handler{
		ordersRepo:    ordersRepo,
		inventoryRepo: inventoryRepo,
		ticketsRepo:   ticketsRepo,
		eventsRepo:    eventsRepo,
	}
}
