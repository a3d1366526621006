// Package gate admits ticket holders at the venue door. It verifies scanned
// credentials offline, then settles the confirmed to checked_in transition
// against storage, so two scanners racing on the same ticket cannot both
// admit it.
package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/sirupsen/logrus"

	"boxoffice/entity"
	"boxoffice/metrics"
	"boxoffice/sign"
)

type TicketsRepository interface {
	GetByCredentialHash(ctx context.Context, hash string) (entity.Ticket, error)
	CheckIn(ctx context.Context, ticketID, actor string) (applied bool, ticket entity.Ticket, err error)
}

type EventsRepository interface {
	Get(ctx context.Context, eventID string) (entity.Event, error)
}

// AuthorizationService decides whether an actor may admit attendees for an
// event. Staff directory and role model live in a separate service.
type AuthorizationService interface {
	IsAuthorizedToCheckIn(ctx context.Context, actorID, eventID string) (bool, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// CheckInResult is the scanner-facing outcome of a scan. AlreadyAdmitted is
// not an error: re-scanning a used ticket is routine at a busy door, and the
// scanner shows who admitted it and when.
type CheckInResult struct {
	Ticket          entity.Ticket
	AlreadyAdmitted bool
	CheckedInAt     time.Time
	CheckedInBy     string
}

type Config struct {
	// EnforceStartTime rejects scans before the event's start time. Venues
	// that open doors early run with this off.
	EnforceStartTime bool
}

type Gate struct {
	admissionCodec sign.Codec
	ticketsRepo    TicketsRepository
	eventsRepo     EventsRepository
	authzService   AuthorizationService
	publisher      EventPublisher
	config         Config
	now            func() time.Time
}

func New(
	admissionCodec sign.Codec,
	ticketsRepo TicketsRepository,
	eventsRepo EventsRepository,
	authzService AuthorizationService,
	publisher EventPublisher,
	config Config,
) *Gate {
	if ticketsRepo == nil {
		panic("missing ticketsRepo")
	}
	if eventsRepo == nil {
		panic("missing eventsRepo")
	}
	if authzService == nil {
		panic("missing authzService")
	}
	if publisher == nil {
		panic("missing publisher")
	}

	return &Gate{
		admissionCodec: admissionCodec,
		ticketsRepo:    ticketsRepo,
		eventsRepo:     eventsRepo,
		authzService:   authzService,
		publisher:      publisher,
		config:         config,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// CheckIn verifies a scanned credential and admits its ticket.
//
// The status transition is a storage-level compare-and-set; when two scans
// race, exactly one admits and the other gets AlreadyAdmitted with the
// winner's timestamp and actor.
func (g *Gate) CheckIn(ctx context.Context, credential, actorID string) (CheckInResult, error) {
	payload, err := sign.DecodeAdmission(g.admissionCodec, credential)
	if err != nil {
		metrics.CheckIns.WithLabelValues("rejected").Inc()
		return CheckInResult{}, err
	}

	ticket, err := g.ticketsRepo.GetByCredentialHash(ctx, sign.CredentialHash(credential))
	if err != nil {
		if errors.Is(err, entity.ErrTicketNotFound) {
			metrics.CheckIns.WithLabelValues("rejected").Inc()
		}
		return CheckInResult{}, err
	}

	authorized, err := g.authzService.IsAuthorizedToCheckIn(ctx, actorID, ticket.EventID)
	if err != nil {
		return CheckInResult{}, fmt.Errorf("could not check authorization: %w", err)
	}
	if !authorized {
		metrics.CheckIns.WithLabelValues("rejected").Inc()
		return CheckInResult{}, entity.ErrNotAuthorized
	}

	switch ticket.Status {
	case entity.TicketStatusCheckedIn:
		return g.alreadyAdmitted(ticket), nil
	case entity.TicketStatusConfirmed:
	default:
		metrics.CheckIns.WithLabelValues("rejected").Inc()
		return CheckInResult{}, fmt.Errorf("%w: ticket is %s", entity.ErrTicketNotAdmissible, ticket.Status)
	}

	if g.config.EnforceStartTime {
		event, err := g.eventsRepo.Get(ctx, ticket.EventID)
		if err != nil {
			return CheckInResult{}, err
		}
		if g.now().Before(event.StartsAt) {
			metrics.CheckIns.WithLabelValues("rejected").Inc()
			return CheckInResult{}, entity.ErrEventNotStarted
		}
	}

	applied, ticket, err := g.ticketsRepo.CheckIn(ctx, payload.TicketID, actorID)
	if err != nil {
		return CheckInResult{}, err
	}
	if !applied {
		// lost the race, or the ticket was voided between read and write
		if ticket.Status == entity.TicketStatusCheckedIn {
			return g.alreadyAdmitted(ticket), nil
		}
		metrics.CheckIns.WithLabelValues("rejected").Inc()
		return CheckInResult{}, fmt.Errorf("%w: ticket is %s", entity.ErrTicketNotAdmissible, ticket.Status)
	}

	log.FromContext(ctx).WithFields(logrus.Fields{
		"ticket_id": ticket.TicketID,
		"event_id":  ticket.EventID,
		"actor_id":  actorID,
	}).Info("Ticket checked in")
	metrics.CheckIns.WithLabelValues("admitted").Inc()

	// audit trail only, admission already happened
	err = g.publisher.Publish(ctx, entity.TicketCheckedIn{
		Header:      entity.NewEventHeader(),
		TicketID:    ticket.TicketID,
		EventID:     ticket.EventID,
		CheckedInBy: actorID,
		CheckedInAt: *ticket.CheckedInAt,
	})
	if err != nil {
		log.FromContext(ctx).WithField("ticket_id", ticket.TicketID).
			WithError(err).Warn("Could not publish check-in event")
	}

	return CheckInResult{
		Ticket:      ticket,
		CheckedInAt: *ticket.CheckedInAt,
		CheckedInBy: actorID,
	}, nil
}

func (g *Gate) alreadyAdmitted(ticket entity.Ticket) CheckInResult {
	result := CheckInResult{Ticket: ticket, AlreadyAdmitted: true}
	if ticket.CheckedInAt != nil {
		result.CheckedInAt = *ticket.CheckedInAt
	}
	if ticket.CheckedInBy != nil {
		result.CheckedInBy = *ticket.CheckedInBy
	}
	metrics.CheckIns.WithLabelValues("already_admitted").Inc()
	return result
}
