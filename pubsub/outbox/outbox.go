// Package outbox routes domain events through Postgres, so publishing commits
// atomically with the state change that caused it. A forwarder moves stored
// messages onto the Redis stream transport.
package outbox

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	watermillSQL "github.com/ThreeDotsLabs/watermill-sql/v2/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"
)

const Topic = "events_to_forward"

// NewPublisherForDb returns a publisher that writes to the outbox table
// within tx. Messages become visible to the forwarder only when tx commits.
func NewPublisherForDb(ctx context.Context, tx *sqlx.Tx) (message.Publisher, error) {
	sqlPublisher, err := watermillSQL.NewPublisher(
		tx,
		watermillSQL.PublisherConfig{
			SchemaAdapter: watermillSQL.DefaultPostgreSQLSchema{},
		},
		watermill.NopLogger{},
	)
	if err != nil {
		return nil, err
	}

	return forwarder.NewPublisher(sqlPublisher, forwarder.PublisherConfig{
		ForwarderTopic: Topic,
	}), nil
}

// NewForwarder subscribes to the outbox table and republishes stored messages
// to the Redis publisher. Run alongside the message router.
func NewForwarder(
	db *sqlx.DB,
	redisPublisher message.Publisher,
	logger watermill.LoggerAdapter,
) (*forwarder.Forwarder, error) {
	sub, err := watermillSQL.NewSubscriber(db, watermillSQL.SubscriberConfig{
		SchemaAdapter:    watermillSQL.DefaultPostgreSQLSchema{},
		OffsetsAdapter:   watermillSQL.DefaultPostgreSQLOffsetsAdapter{},
		InitializeSchema: true,
	}, logger)
	if err != nil {
		return nil, err
	}

	return forwarder.NewForwarder(sub, redisPublisher, logger, forwarder.Config{
		ForwarderTopic: Topic,
	})
}
