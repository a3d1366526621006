package service

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"boxoffice/db"
	"boxoffice/db/audit"
	"boxoffice/db/events"
	"boxoffice/db/orders"
	"boxoffice/db/tickets"
	"boxoffice/db/tickettypes"
	"boxoffice/gate"
	"boxoffice/http"
	"boxoffice/issuer"
	"boxoffice/payment"
	"boxoffice/pubsub"
	"boxoffice/pubsub/bus"
	"boxoffice/pubsub/command"
	"boxoffice/pubsub/event"
	"boxoffice/pubsub/outbox"
	"boxoffice/sign"
)

func init() {
	log.Init(logrus.InfoLevel)
}

type Config struct {
	HTTPAddr         string
	CallbackSecret   string
	AdmissionSecret  string
	PaymentResultURL string
	Gate             gate.Config
}

type Service struct {
	db              *sqlx.DB
	watermillRouter *message.Router
	outboxForwarder *forwarder.Forwarder
	httpServer      *http.Server
}

func New(
	cfg Config,
	db *sqlx.DB,
	redisClient *redis.Client,
	notificationService event.NotificationService,
	authorizationService gate.AuthorizationService,
) Service {
	ordersRepo := orders.NewPostgresRepository(db)
	ticketTypesRepo := tickettypes.NewPostgresRepository(db)
	ticketsRepo := tickets.NewPostgresRepository(db)
	eventsRepo := events.NewPostgresRepository(db)
	auditRepo := audit.NewPostgresRepository(db)

	callbackCodec := sign.NewCodec(cfg.CallbackSecret, payment.CallbackFieldOrder)
	admissionCodec := sign.NewCodec(cfg.AdmissionSecret, sign.AdmissionFieldOrder)

	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))

	var redisPublisher message.Publisher
	redisPublisher = pubsub.NewRedisPublisher(redisClient, watermillLogger)
	redisPublisher = log.CorrelationPublisherDecorator{Publisher: redisPublisher}

	eventBus, err := bus.NewEventBus(redisPublisher)
	if err != nil {
		panic(fmt.Errorf("failed to create event bus: %w", err))
	}

	commandBus, err := bus.NewCommandBus(redisPublisher)
	if err != nil {
		panic(fmt.Errorf("failed to create command bus: %w", err))
	}

	paymentProcessor := payment.NewProcessor(
		callbackCodec,
		ordersRepo,
		ticketTypesRepo,
		ticketsRepo,
		eventsRepo,
		auditRepo,
		issuer.New(admissionCodec),
		payment.OutboxEventPublisher{},
	)

	admissionGate := gate.New(
		admissionCodec,
		ticketsRepo,
		eventsRepo,
		authorizationService,
		eventBus,
		cfg.Gate,
	)

	eventsHandler := event.NewHandler(
		notificationService,
		eventsRepo,
		auditRepo,
	)

	commandsHandler := command.NewHandler(
		ordersRepo,
		ticketTypesRepo,
		ticketsRepo,
		eventsRepo,
	)

	eventProcessorConfig := event.NewProcessorConfig(redisClient, watermillLogger)
	commandProcessorConfig := command.NewProcessorConfig(redisClient, watermillLogger)

	watermillRouter, err := pubsub.NewWatermillRouter(
		eventProcessorConfig,
		eventsHandler,
		commandProcessorConfig,
		commandsHandler,
		watermillLogger,
	)
	if err != nil {
		panic(fmt.Errorf("failed to create watermill router: %w", err))
	}

	outboxForwarder, err := outbox.NewForwarder(db, redisPublisher, watermillLogger)
	if err != nil {
		panic(fmt.Errorf("failed to create outbox forwarder: %w", err))
	}

	httpServer := http.NewServer(
		cfg.HTTPAddr,
		commandBus,
		paymentProcessor,
		admissionGate,
		ordersRepo,
		ticketsRepo,
		eventsRepo,
		ticketTypesRepo,
		cfg.PaymentResultURL,
	)

	return Service{
		db:              db,
		watermillRouter: watermillRouter,
		outboxForwarder: outboxForwarder,
		httpServer:      httpServer,
	}
}

func (s Service) Run(ctx context.Context) error {
	if err := db.InitializeDatabaseSchema(s.db); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.watermillRouter.Run(ctx)
	})

	g.Go(func() error {
		return s.outboxForwarder.Run(ctx)
	})

	g.Go(func() error {
		// the service is not healthy until the router consumes messages
		<-s.watermillRouter.Running()

		return s.httpServer.Run(ctx)
	})

	return g.Wait()
}
