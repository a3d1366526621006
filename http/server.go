package http

import (
	"context"
	"errors"
	"net/http"

	echoHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"boxoffice/entity"
	"boxoffice/gate"
	"boxoffice/payment"
)

type PaymentProcessor interface {
	Process(ctx context.Context, payload payment.CallbackPayload) (payment.Result, error)
}

type AdmissionGate interface {
	CheckIn(ctx context.Context, credential, actorID string) (gate.CheckInResult, error)
}

type OrdersRepository interface {
	Add(ctx context.Context, order entity.Order) error
	Get(ctx context.Context, orderID string) (entity.Order, error)
}

type TicketsRepository interface {
	FindByOrder(ctx context.Context, orderID string) ([]entity.Ticket, error)
}

type EventsRepository interface {
	Store(ctx context.Context, event entity.Event) error
	Get(ctx context.Context, eventID string) (entity.Event, error)
}

type TicketTypesRepository interface {
	Add(ctx context.Context, ticketType entity.TicketType) error
	Get(ctx context.Context, ticketTypeID string) (entity.TicketType, error)
	FindByEvent(ctx context.Context, eventID string) ([]entity.TicketType, error)
}

type Server struct {
	addr             string
	e                *echo.Echo
	commandBus       *cqrs.CommandBus
	paymentProcessor PaymentProcessor
	admissionGate    AdmissionGate
	ordersRepo       OrdersRepository
	ticketsRepo      TicketsRepository
	eventsRepo       EventsRepository
	ticketTypesRepo  TicketTypesRepository

	// paymentResultURL, when set, is where browser redirects land after a
	// callback; the resolution is appended as a query parameter.
	paymentResultURL string
}

func NewServer(
	addr string,
	commandBus *cqrs.CommandBus,
	paymentProcessor PaymentProcessor,
	admissionGate AdmissionGate,
	ordersRepo OrdersRepository,
	ticketsRepo TicketsRepository,
	eventsRepo EventsRepository,
	ticketTypesRepo TicketTypesRepository,
	paymentResultURL string,
) *Server {
	e := echoHTTP.NewEcho()
	e.Use(otelecho.Middleware("boxoffice"))

	server := &Server{
		addr:             addr,
		e:                e,
		commandBus:       commandBus,
		paymentProcessor: paymentProcessor,
		admissionGate:    admissionGate,
		ordersRepo:       ordersRepo,
		ticketsRepo:      ticketsRepo,
		eventsRepo:       eventsRepo,
		ticketTypesRepo:  ticketTypesRepo,
		paymentResultURL: paymentResultURL,
	}

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/payments/callback", server.PostPaymentCallback)
	e.GET("/payments/callback", server.GetPaymentCallback)

	e.POST("/check-ins", server.PostCheckIn)

	e.POST("/orders", server.PostOrders)
	e.GET("/orders/:order_id", server.GetOrder)
	e.GET("/orders/:order_id/tickets", server.GetOrderTickets)
	e.PUT("/orders/:order_id/refund", server.PutOrderRefund)

	e.POST("/events", server.PostEvents)
	e.GET("/events/:event_id", server.GetEvent)
	e.GET("/events/:event_id/ticket-types", server.GetEventTicketTypes)
	e.POST("/ticket-types", server.PostTicketTypes)

	return server
}

func (s Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		err := s.e.Shutdown(ctx)
		if err != nil {
			log.FromContext(ctx).WithError(err).Error("failed to shutdown HTTP server")
		}
	}()
	log.FromContext(ctx).WithField("addr", s.addr).Info("[HTTP] server listening")
	if err := s.e.Start(s.addr); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
