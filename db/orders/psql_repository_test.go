package orders_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boxoffice/db"
	"boxoffice/db/events"
	"boxoffice/db/orders"
	"boxoffice/db/tickettypes"
	"boxoffice/entity"
)

func TestOrdersRepository(t *testing.T) {
	ctx := context.Background()
	container, url := db.StartPostgresContainer()
	defer container.Terminate(ctx)

	t.Setenv("POSTGRES_URL", url)
	dbconn := db.GetDb(t)

	repo := orders.NewPostgresRepository(dbconn)
	eventID, ticketTypeID := seedEventWithTicketType(t, dbconn)

	newOrder := func(t *testing.T) entity.Order {
		t.Helper()
		order, err := entity.NewOrder("buyer-1", eventID, "USD", []entity.LineItem{
			{TicketTypeID: ticketTypeID, UnitPrice: 100, Quantity: 2},
		}, nil)
		require.NoError(t, err)
		require.NoError(t, repo.Add(ctx, order))
		return order
	}

	t.Run("add rejects duplicates", func(t *testing.T) {
		order := newOrder(t)

		err := repo.Add(ctx, order)
		assert.ErrorIs(t, err, entity.ErrConflict)
	})

	t.Run("get by transaction ref", func(t *testing.T) {
		order := newOrder(t)

		got, err := repo.GetByTransactionRef(ctx, order.TransactionRef)
		require.NoError(t, err)
		assert.Equal(t, order.OrderID, got.OrderID)
		require.Len(t, got.Items, 1)
		assert.Equal(t, int64(200), got.Items[0].Subtotal)

		_, err = repo.GetByTransactionRef(ctx, uuid.NewString())
		assert.ErrorIs(t, err, entity.ErrOrderNotFound)
	})

	t.Run("finalize applies once", func(t *testing.T) {
		order := newOrder(t)

		var applyCalls int
		applyFn := func(ctx context.Context, tx *sqlx.Tx, order entity.Order) error {
			applyCalls++
			return nil
		}

		applied, finalized, err := repo.Finalize(ctx, order.OrderID, entity.OrderStatusPaid, applyFn)
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, entity.OrderStatusPaid, finalized.Status)
		assert.NotNil(t, finalized.PaidAt)

		applied, finalized, err = repo.Finalize(ctx, order.OrderID, entity.OrderStatusPaid, applyFn)
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, entity.OrderStatusPaid, finalized.Status)

		assert.Equal(t, 1, applyCalls)
	})

	t.Run("finalize rejects invalid transitions", func(t *testing.T) {
		order := newOrder(t)

		applied, _, err := repo.Finalize(ctx, order.OrderID, entity.OrderStatusFailed, nil)
		require.NoError(t, err)
		require.True(t, applied)

		_, _, err = repo.Finalize(ctx, order.OrderID, entity.OrderStatusPaid, nil)
		assert.ErrorIs(t, err, entity.ErrInvalidTransition)
	})

	t.Run("paid callback after refund is absorbed", func(t *testing.T) {
		order := newOrder(t)

		applied, _, err := repo.Finalize(ctx, order.OrderID, entity.OrderStatusPaid, nil)
		require.NoError(t, err)
		require.True(t, applied)

		applied, _, err = repo.Finalize(ctx, order.OrderID, entity.OrderStatusRefunded, nil)
		require.NoError(t, err)
		require.True(t, applied)

		applied, finalized, err := repo.Finalize(ctx, order.OrderID, entity.OrderStatusPaid, nil)
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, entity.OrderStatusRefunded, finalized.Status)
	})

	t.Run("concurrent finalize settles exactly once", func(t *testing.T) {
		order := newOrder(t)

		var applyCalls atomic.Int64
		var appliedCount atomic.Int64

		const workers = 10
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					applied, _, err := repo.Finalize(ctx, order.OrderID, entity.OrderStatusPaid,
						func(ctx context.Context, tx *sqlx.Tx, order entity.Order) error {
							applyCalls.Add(1)
							return nil
						})
					if errors.Is(err, entity.ErrStorageConflict) {
						continue
					}
					assert.NoError(t, err)
					if applied {
						appliedCount.Add(1)
					}
					return
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(1), appliedCount.Load())
		// applyFn may run in a transaction that later rolls back on a
		// serialization failure; only one invocation ever commits
		assert.GreaterOrEqual(t, applyCalls.Load(), int64(1))

		got, err := repo.Get(ctx, order.OrderID)
		require.NoError(t, err)
		assert.Equal(t, entity.OrderStatusPaid, got.Status)
	})

	t.Run("two orders race one remaining ticket", func(t *testing.T) {
		inventory := tickettypes.NewPostgresRepository(dbconn)

		scarceTypeID := uuid.NewString()
		require.NoError(t, inventory.Add(ctx, entity.TicketType{
			TicketTypeID:      scarceTypeID,
			EventID:           eventID,
			Name:              "Last Seat",
			UnitPrice:         100,
			QuantityAvailable: 1,
		}))

		newScarceOrder := func() entity.Order {
			order, err := entity.NewOrder("buyer-"+uuid.NewString(), eventID, "USD", []entity.LineItem{
				{TicketTypeID: scarceTypeID, UnitPrice: 100, Quantity: 1},
			}, nil)
			require.NoError(t, err)
			require.NoError(t, repo.Add(ctx, order))
			return order
		}

		// settle pays the order if inventory holds, marks it failed when the
		// commit comes back exhausted, mirroring the callback path
		settle := func(order entity.Order) entity.OrderStatus {
			for {
				_, _, err := repo.Finalize(ctx, order.OrderID, entity.OrderStatusPaid,
					func(ctx context.Context, tx *sqlx.Tx, order entity.Order) error {
						return inventory.CommitTx(ctx, tx, scarceTypeID, 1)
					})
				if errors.Is(err, entity.ErrStorageConflict) {
					continue
				}
				if errors.Is(err, entity.ErrExhausted) {
					for {
						_, _, err := repo.Finalize(ctx, order.OrderID, entity.OrderStatusFailed, nil)
						if errors.Is(err, entity.ErrStorageConflict) {
							continue
						}
						assert.NoError(t, err)
						return entity.OrderStatusFailed
					}
				}
				assert.NoError(t, err)
				return entity.OrderStatusPaid
			}
		}

		results := make(chan entity.OrderStatus, 2)
		for _, order := range []entity.Order{newScarceOrder(), newScarceOrder()} {
			order := order
			go func() { results <- settle(order) }()
		}

		statuses := map[entity.OrderStatus]int{}
		for i := 0; i < 2; i++ {
			statuses[<-results]++
		}
		assert.Equal(t, map[entity.OrderStatus]int{
			entity.OrderStatusPaid:   1,
			entity.OrderStatusFailed: 1,
		}, statuses)

		ticketType, err := inventory.Get(ctx, scarceTypeID)
		require.NoError(t, err)
		assert.Equal(t, 1, ticketType.QuantitySold)
	})
}

func seedEventWithTicketType(t *testing.T, dbconn *sqlx.DB) (eventID, ticketTypeID string) {
	t.Helper()
	ctx := context.Background()

	eventID = uuid.NewString()
	err := events.NewPostgresRepository(dbconn).Store(ctx, entity.Event{
		EventID:  eventID,
		Name:     "Test Event",
		Venue:    "Test Venue",
		Currency: "USD",
	})
	require.NoError(t, err)

	ticketTypeID = uuid.NewString()
	err = tickettypes.NewPostgresRepository(dbconn).Add(ctx, entity.TicketType{
		TicketTypeID:      ticketTypeID,
		EventID:           eventID,
		Name:              "GA",
		UnitPrice:         100,
		QuantityAvailable: 100,
	})
	require.NoError(t, err)

	return eventID, ticketTypeID
}
