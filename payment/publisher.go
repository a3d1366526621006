package payment

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"boxoffice/pubsub/bus"
	"boxoffice/pubsub/outbox"
)

// EventPublisher publishes a domain event as part of tx, so the event becomes
// visible only if the transaction commits.
type EventPublisher interface {
	PublishInTx(ctx context.Context, tx *sqlx.Tx, event any) error
}

// OutboxEventPublisher routes events through the Postgres outbox.
type OutboxEventPublisher struct{}

func (OutboxEventPublisher) PublishInTx(ctx context.Context, tx *sqlx.Tx, event any) error {
	outboxPublisher, err := outbox.NewPublisherForDb(ctx, tx)
	if err != nil {
		return fmt.Errorf("could not create outbox publisher: %w", err)
	}

	eventBus, err := bus.NewEventBus(outboxPublisher)
	if err != nil {
		return err
	}

	return eventBus.Publish(ctx, event)
}
