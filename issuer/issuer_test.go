package issuer

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boxoffice/entity"
	"boxoffice/sign"
)

func newTestOrder(t *testing.T) entity.Order {
	t.Helper()

	order, err := entity.NewOrder("buyer-1", "11111111-1111-1111-1111-111111111111", "USD", []entity.LineItem{
		{TicketTypeID: "vip-type", UnitPrice: 50000, Quantity: 1},
		{TicketTypeID: "ga-type", UnitPrice: 10000, Quantity: 2},
	}, nil)
	require.NoError(t, err)

	order.Status = entity.OrderStatusPaid
	return order
}

func TestIssuer_Issue(t *testing.T) {
	codec := sign.NewCodec("admission-secret", sign.AdmissionFieldOrder)
	issueTime := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewWithClock(codec, func() time.Time { return issueTime })

	order := newTestOrder(t)

	tickets, err := issuer.Issue(order, "attendee-1")
	require.NoError(t, err)
	require.Len(t, tickets, 3)

	byType := lo.CountValuesBy(tickets, func(ticket entity.Ticket) string {
		return ticket.TicketTypeID
	})
	assert.Equal(t, 1, byType["vip-type"])
	assert.Equal(t, 2, byType["ga-type"])

	seenIDs := map[string]bool{}
	for _, ticket := range tickets {
		assert.Equal(t, entity.TicketStatusConfirmed, ticket.Status)
		assert.Equal(t, order.OrderID, ticket.OrderID)
		assert.Equal(t, order.EventID, ticket.EventID)
		assert.Equal(t, "attendee-1", ticket.AttendeeID)
		assert.Equal(t, issueTime, ticket.IssuedAt)
		assert.False(t, seenIDs[ticket.TicketID], "ticket ids must be unique")
		seenIDs[ticket.TicketID] = true

		// every credential verifies under the admission codec and hashes to
		// the stored lookup key
		payload, err := sign.DecodeAdmission(codec, ticket.Credential)
		require.NoError(t, err)
		assert.Equal(t, ticket.TicketID, payload.TicketID)
		assert.Equal(t, order.OrderID, payload.OrderID)
		assert.Equal(t, sign.CredentialHash(ticket.Credential), ticket.CredentialHash)
	}
}

func TestIssuer_refusesUnpaidOrder(t *testing.T) {
	issuer := New(sign.NewCodec("admission-secret", sign.AdmissionFieldOrder))

	order := newTestOrder(t)
	order.Status = entity.OrderStatusPending

	_, err := issuer.Issue(order, "attendee-1")
	require.Error(t, err)
}
