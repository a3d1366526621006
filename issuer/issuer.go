// Package issuer mints signed admission credentials for paid orders.
package issuer

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"boxoffice/entity"
	"boxoffice/sign"
)

type Issuer struct {
	codec sign.Codec
	now   func() time.Time
}

func New(admissionCodec sign.Codec) Issuer {
	return Issuer{
		codec: admissionCodec,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// NewWithClock is used by tests that need deterministic issue times.
func NewWithClock(admissionCodec sign.Codec, now func() time.Time) Issuer {
	return Issuer{codec: admissionCodec, now: now}
}

// Issue mints one confirmed ticket per purchased unit. Ticket ids are
// allocated before signing, so each credential is signed exactly once and the
// signed payload already carries its final id.
//
// Issue is pure with respect to storage; the caller persists the result
// inside the same transaction that commits inventory, which is what makes
// "at most once per order" hold.
func (i Issuer) Issue(order entity.Order, attendeeID string) ([]entity.Ticket, error) {
	if order.Status != entity.OrderStatusPaid {
		return nil, fmt.Errorf("cannot issue tickets for %s order %s", order.Status, order.OrderID)
	}

	issuedAt := i.now().Truncate(time.Second)

	tickets := make([]entity.Ticket, 0, order.TicketCount())
	for _, item := range order.Items {
		for n := 0; n < item.Quantity; n++ {
			ticketID := uuid.NewString()

			credential, err := sign.EncodeAdmission(i.codec, sign.AdmissionPayload{
				TicketID:   ticketID,
				EventID:    order.EventID,
				AttendeeID: attendeeID,
				OrderID:    order.OrderID,
				IssuedAt:   issuedAt,
			})
			if err != nil {
				return nil, fmt.Errorf("could not encode admission credential: %w", err)
			}

			tickets = append(tickets, entity.Ticket{
				TicketID:       ticketID,
				TicketTypeID:   item.TicketTypeID,
				EventID:        order.EventID,
				AttendeeID:     attendeeID,
				OrderID:        order.OrderID,
				Credential:     credential,
				CredentialHash: sign.CredentialHash(credential),
				Status:         entity.TicketStatusConfirmed,
				IssuedAt:       issuedAt,
			})
		}
	}

	return tickets, nil
}
