// Package payment is the single entry point for gateway notifications. Both
// the browser redirect and the server-to-server callback go through the same
// Processor, which turns a verified callback into an order finalization.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"boxoffice/entity"
	"boxoffice/metrics"
	"boxoffice/sign"
)

type OrdersRepository interface {
	GetByTransactionRef(ctx context.Context, transactionRef string) (entity.Order, error)
	Finalize(
		ctx context.Context,
		orderID string,
		outcome entity.OrderStatus,
		applyFn func(ctx context.Context, tx *sqlx.Tx, order entity.Order) error,
	) (applied bool, order entity.Order, err error)
	SetGatewayCorrelationTx(ctx context.Context, tx *sqlx.Tx, orderID, correlationID string) error
}

type InventoryRepository interface {
	CommitTx(ctx context.Context, tx *sqlx.Tx, ticketTypeID string, quantity int) error
}

type TicketsRepository interface {
	StoreTx(ctx context.Context, tx *sqlx.Tx, tickets []entity.Ticket) error
}

type EventsRepository interface {
	IncrementSalesTx(ctx context.Context, tx *sqlx.Tx, eventID string, tickets int, revenue int64) error
}

type AuditRepository interface {
	Store(ctx context.Context, entry entity.PaymentAudit) error
}

type TicketIssuer interface {
	Issue(order entity.Order, attendeeID string) ([]entity.Ticket, error)
}

// Resolution says how a callback was handled. Every resolution except a
// returned error is a fully handled callback and must be acked to the
// gateway, or it will retry forever.
type Resolution string

const (
	ResolutionPaid      Resolution = "paid"
	ResolutionDuplicate Resolution = "duplicate"
	ResolutionFailed    Resolution = "failed"
	ResolutionSoldOut   Resolution = "sold_out"
	ResolutionRecorded  Resolution = "recorded"
)

type Result struct {
	Resolution  Resolution
	OrderID     string
	TicketCount int
}

const (
	finalizeAttempts = 3
	finalizeBackoff  = 50 * time.Millisecond
)

type Processor struct {
	callbackCodec sign.Codec
	ordersRepo    OrdersRepository
	inventoryRepo InventoryRepository
	ticketsRepo   TicketsRepository
	eventsRepo    EventsRepository
	auditRepo     AuditRepository
	issuer        TicketIssuer
	publisher     EventPublisher
}

func NewProcessor(
	callbackCodec sign.Codec,
	ordersRepo OrdersRepository,
	inventoryRepo InventoryRepository,
	ticketsRepo TicketsRepository,
	eventsRepo EventsRepository,
	auditRepo AuditRepository,
	issuer TicketIssuer,
	publisher EventPublisher,
) *Processor {
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
	if auditRepo == nil {
		panic("missing auditRepo")
	}
	if issuer == nil {
		panic("missing issuer")
	}
	if publisher == nil {
		panic("missing publisher")
	}

	return &Processor{
		callbackCodec: callbackCodec,
		ordersRepo:    ordersRepo,
		inventoryRepo: inventoryRepo,
		ticketsRepo:   ticketsRepo,
		eventsRepo:    eventsRepo,
		auditRepo:     auditRepo,
		issuer:        issuer,
		publisher:     publisher,
	}
}

// Process decodes, verifies and applies one gateway callback. Errors mean the
// callback was NOT handled (malformed, bad signature, unknown order, storage
// failure after retries) and the caller decides the HTTP status; any Result
// with a nil error is a handled callback, duplicates included.
func (p *Processor) Process(ctx context.Context, payload CallbackPayload) (Result, error) {
	fields, err := payload.Normalize()
	if err != nil {
		return Result{}, err
	}

	logger := log.FromContext(ctx).WithField("transaction_ref", fields[fieldTransactionRef])

	if !p.callbackCodec.Verify(fields, fields[fieldSignature]) {
		logger.WithField("gateway_status", fields[fieldStatus]).Warn("Callback signature verification failed")
		metrics.PaymentCallbacksProcessed.WithLabelValues("rejected").Inc()
		return Result{}, entity.ErrSignatureInvalid
	}

	order, err := p.ordersRepo.GetByTransactionRef(ctx, fields[fieldTransactionRef])
	if err != nil {
		return Result{}, err
	}

	gatewayStatus := fields[fieldStatus]
	outcome, terminal := outcomeForGatewayStatus(gatewayStatus)
	if !terminal {
		return p.recordUnrecognized(ctx, order, gatewayStatus)
	}

	var result Result
	if outcome == entity.OrderStatusPaid {
		result, err = p.finalizePaid(ctx, order, fields)
	} else {
		result, err = p.finalizeFailed(ctx, order, gatewayStatus, "gateway reported "+gatewayStatus)
	}
	if errors.Is(err, entity.ErrInvalidTransition) {
		// The order already settled the other way, e.g. a COMPLETE delivered
		// after its own FAILED. The transaction is resolved; not acking here
		// would make the gateway retry this callback forever.
		result, err = p.absorbSettled(ctx, order, gatewayStatus, outcome)
	}
	if err != nil {
		return Result{}, err
	}

	logger.WithFields(logrus.Fields{
		"order_id":   result.OrderID,
		"resolution": string(result.Resolution),
	}).Info("Payment callback processed")
	metrics.PaymentCallbacksProcessed.WithLabelValues(string(result.Resolution)).Inc()

	return result, nil
}

// finalizePaid commits inventory, mints tickets, bumps event aggregates and
// publishes OrderPaid, all inside the finalize transaction. A serialization
// conflict is retried a few times; the loser of a concurrent duplicate then
// observes the order already paid and absorbs the callback.
func (p *Processor) finalizePaid(ctx context.Context, order entity.Order, fields map[string]string) (Result, error) {
	var ticketCount int

	applyFn := func(ctx context.Context, tx *sqlx.Tx, order entity.Order) error {
		if correlationID := fields[fieldCorrelationID]; correlationID != "" {
			if err := p.ordersRepo.SetGatewayCorrelationTx(ctx, tx, order.OrderID, correlationID); err != nil {
				return err
			}
		}

		for _, item := range order.Items {
			if err := p.inventoryRepo.CommitTx(ctx, tx, item.TicketTypeID, item.Quantity); err != nil {
				return err
			}
		}

		tickets, err := p.issuer.Issue(order, order.BuyerID)
		if err != nil {
			return err
		}
		if err := p.ticketsRepo.StoreTx(ctx, tx, tickets); err != nil {
			return err
		}
		ticketCount = len(tickets)

		if err := p.eventsRepo.IncrementSalesTx(ctx, tx, order.EventID, ticketCount, order.TotalAmount); err != nil {
			return err
		}

		return p.publisher.PublishInTx(ctx, tx, entity.OrderPaid{
			Header:         entity.NewEventHeaderWithIdempotencyKey(order.TransactionRef),
			OrderID:        order.OrderID,
			EventID:        order.EventID,
			BuyerID:        order.BuyerID,
			TransactionRef: order.TransactionRef,
			TicketCount:    ticketCount,
			TotalAmount:    entity.Money{Amount: order.TotalAmount, Currency: order.Currency},
		})
	}

	applied, finalized, err := p.finalizeWithRetry(ctx, order.OrderID, entity.OrderStatusPaid, applyFn)
	if errors.Is(err, entity.ErrExhausted) {
		return p.finalizeFailed(ctx, order, GatewayStatusComplete, "sold_out")
	}
	if err != nil {
		return Result{}, err
	}

	if !applied {
		return Result{Resolution: ResolutionDuplicate, OrderID: finalized.OrderID}, nil
	}
	return Result{Resolution: ResolutionPaid, OrderID: finalized.OrderID, TicketCount: ticketCount}, nil
}

func (p *Processor) finalizeFailed(ctx context.Context, order entity.Order, gatewayStatus, reason string) (Result, error) {
	applyFn := func(ctx context.Context, tx *sqlx.Tx, order entity.Order) error {
		return p.publisher.PublishInTx(ctx, tx, entity.OrderPaymentFailed{
			Header:         entity.NewEventHeaderWithIdempotencyKey(order.TransactionRef),
			OrderID:        order.OrderID,
			EventID:        order.EventID,
			TransactionRef: order.TransactionRef,
			GatewayStatus:  gatewayStatus,
			Reason:         reason,
		})
	}

	applied, finalized, err := p.finalizeWithRetry(ctx, order.OrderID, entity.OrderStatusFailed, applyFn)
	if err != nil {
		return Result{}, err
	}

	if !applied {
		return Result{Resolution: ResolutionDuplicate, OrderID: finalized.OrderID}, nil
	}
	if reason == "sold_out" {
		return Result{Resolution: ResolutionSoldOut, OrderID: finalized.OrderID}, nil
	}
	return Result{Resolution: ResolutionFailed, OrderID: finalized.OrderID}, nil
}

func (p *Processor) finalizeWithRetry(
	ctx context.Context,
	orderID string,
	outcome entity.OrderStatus,
	applyFn func(ctx context.Context, tx *sqlx.Tx, order entity.Order) error,
) (bool, entity.Order, error) {
	var lastErr error
	for attempt := 0; attempt < finalizeAttempts; attempt++ {
		applied, order, err := p.ordersRepo.Finalize(ctx, orderID, outcome, applyFn)
		if !errors.Is(err, entity.ErrStorageConflict) {
			return applied, order, err
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return false, entity.Order{}, ctx.Err()
		case <-time.After(finalizeBackoff * time.Duration(attempt+1)):
		}
	}
	return false, entity.Order{}, fmt.Errorf("finalize did not settle after %d attempts: %w", finalizeAttempts, lastErr)
}

// absorbSettled acks a callback whose outcome conflicts with an order that is
// already terminal. The stored status wins; the conflicting callback goes on
// the audit trail instead of changing anything.
func (p *Processor) absorbSettled(ctx context.Context, order entity.Order, gatewayStatus string, outcome entity.OrderStatus) (Result, error) {
	settled, err := p.ordersRepo.GetByTransactionRef(ctx, order.TransactionRef)
	if err != nil {
		return Result{}, err
	}

	orderID := settled.OrderID
	err = p.auditRepo.Store(ctx, entity.PaymentAudit{
		AuditID:        uuid.NewString(),
		TransactionRef: settled.TransactionRef,
		OrderID:        &orderID,
		GatewayStatus:  gatewayStatus,
		Outcome:        string(settled.Status),
		Reason:         fmt.Sprintf("conflicting %s callback for %s order", outcome, settled.Status),
		RecordedAt:     time.Now().UTC(),
	})
	if err != nil {
		return Result{}, err
	}

	log.FromContext(ctx).WithFields(logrus.Fields{
		"order_id":       settled.OrderID,
		"order_status":   string(settled.Status),
		"gateway_status": gatewayStatus,
	}).Warn("Conflicting gateway callback absorbed")

	return Result{Resolution: ResolutionDuplicate, OrderID: settled.OrderID}, nil
}

// recordUnrecognized leaves the order pending and writes an audit row, so a
// gateway status we do not map never silently disappears.
func (p *Processor) recordUnrecognized(ctx context.Context, order entity.Order, gatewayStatus string) (Result, error) {
	orderID := order.OrderID
	err := p.auditRepo.Store(ctx, entity.PaymentAudit{
		AuditID:        uuid.NewString(),
		TransactionRef: order.TransactionRef,
		OrderID:        &orderID,
		GatewayStatus:  gatewayStatus,
		Outcome:        string(entity.OrderStatusPending),
		Reason:         "unrecognized gateway status",
		RecordedAt:     time.Now().UTC(),
	})
	if err != nil {
		return Result{}, err
	}

	log.FromContext(ctx).WithFields(logrus.Fields{
		"order_id":       order.OrderID,
		"gateway_status": gatewayStatus,
	}).Warn("Unrecognized gateway status recorded, order left pending")
	metrics.PaymentCallbacksProcessed.WithLabelValues(string(ResolutionRecorded)).Inc()

	return Result{Resolution: ResolutionRecorded, OrderID: order.OrderID}, nil
}
