package tickettypes_test

import (
	"context"
	"database/sql"
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
	"boxoffice/db/tickettypes"
	"boxoffice/entity"
)

func TestTicketTypesRepository(t *testing.T) {
	ctx := context.Background()
	container, url := db.StartPostgresContainer()
	defer container.Terminate(ctx)

	t.Setenv("POSTGRES_URL", url)
	dbconn := db.GetDb(t)

	repo := tickettypes.NewPostgresRepository(dbconn)

	eventID := uuid.NewString()
	err := events.NewPostgresRepository(dbconn).Store(ctx, entity.Event{
		EventID:  eventID,
		Name:     "Test Event",
		Venue:    "Test Venue",
		Currency: "USD",
	})
	require.NoError(t, err)

	newTicketType := func(t *testing.T, available int) string {
		t.Helper()
		ticketTypeID := uuid.NewString()
		err := repo.Add(ctx, entity.TicketType{
			TicketTypeID:      ticketTypeID,
			EventID:           eventID,
			Name:              "GA",
			UnitPrice:         100,
			QuantityAvailable: available,
		})
		require.NoError(t, err)
		return ticketTypeID
	}

	quantitySold := func(t *testing.T, ticketTypeID string) int {
		t.Helper()
		ticketType, err := repo.Get(ctx, ticketTypeID)
		require.NoError(t, err)
		return ticketType.QuantitySold
	}

	t.Run("commit enforces availability", func(t *testing.T) {
		ticketTypeID := newTicketType(t, 3)

		require.NoError(t, repo.Commit(ctx, ticketTypeID, 2))
		assert.Equal(t, 2, quantitySold(t, ticketTypeID))

		err := repo.Commit(ctx, ticketTypeID, 2)
		assert.ErrorIs(t, err, entity.ErrExhausted)
		// a failed commit must not move the counter
		assert.Equal(t, 2, quantitySold(t, ticketTypeID))

		require.NoError(t, repo.Commit(ctx, ticketTypeID, 1))
		assert.Equal(t, 3, quantitySold(t, ticketTypeID))
	})

	t.Run("commit of unknown ticket type", func(t *testing.T) {
		err := repo.Commit(ctx, uuid.NewString(), 1)
		assert.ErrorIs(t, err, entity.ErrNotFound)
	})

	t.Run("concurrent commits never oversell", func(t *testing.T) {
		const available = 10
		const workers = 25

		ticketTypeID := newTicketType(t, available)

		var successes atomic.Int64
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := db.UpdateInTx(ctx, dbconn, sql.LevelDefault, func(ctx context.Context, tx *sqlx.Tx) error {
					return repo.CommitTx(ctx, tx, ticketTypeID, 1)
				})
				if err == nil {
					successes.Add(1)
					return
				}
				assert.True(t, errors.Is(err, entity.ErrExhausted), "unexpected error: %v", err)
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(available), successes.Load())
		assert.Equal(t, available, quantitySold(t, ticketTypeID))
	})

	t.Run("release floors at zero", func(t *testing.T) {
		ticketTypeID := newTicketType(t, 5)

		require.NoError(t, repo.Commit(ctx, ticketTypeID, 2))
		require.NoError(t, repo.Release(ctx, ticketTypeID, 5))

		assert.Equal(t, 0, quantitySold(t, ticketTypeID))
	})
}
