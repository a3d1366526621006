package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/jessevdk/go-flags"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"boxoffice/gate"
	"boxoffice/gateway"
	"boxoffice/service"
	"boxoffice/tracing"
)

type options struct {
	HTTPAddr         string `long:"http-addr" env:"HTTP_ADDR" default:":8080" description:"HTTP listen address"`
	PostgresURL      string `long:"postgres-url" env:"POSTGRES_URL" required:"true" description:"Postgres connection string"`
	RedisAddr        string `long:"redis-addr" env:"REDIS_ADDR" required:"true" description:"Redis address"`
	CallbackSecret   string `long:"callback-secret" env:"PAYMENT_CALLBACK_SECRET" required:"true" description:"Shared secret for gateway callback signatures"`
	AdmissionSecret  string `long:"admission-secret" env:"ADMISSION_SECRET" required:"true" description:"Secret for admission credential signatures"`
	NotificationURL  string `long:"notification-url" env:"NOTIFICATION_SERVICE_URL" required:"true" description:"Notification service base URL"`
	AuthorizationURL string `long:"authorization-url" env:"AUTHORIZATION_SERVICE_URL" required:"true" description:"Staff authorization service base URL"`
	PaymentResultURL string `long:"payment-result-url" env:"PAYMENT_RESULT_URL" description:"Page browsers are redirected to after a payment callback"`
	JaegerEndpoint   string `long:"jaeger-endpoint" env:"JAEGER_ENDPOINT" default:"http://localhost:14268/api/traces" description:"Jaeger collector endpoint"`
	EnforceStartTime bool   `long:"enforce-start-time" env:"CHECKIN_ENFORCE_START_TIME" description:"Reject check-ins before the event starts"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	traceProvider := tracing.ConfigureTraceProvider(opts.JaegerEndpoint)
	defer func() {
		_ = traceProvider.Shutdown(context.Background())
	}()

	sqlDB, err := otelsql.Open("postgres", opts.PostgresURL,
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithDBName("boxoffice"),
	)
	if err != nil {
		panic(err)
	}
	db := sqlx.NewDb(sqlDB, "postgres")
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr: opts.RedisAddr,
	})
	defer redisClient.Close()

	svc := service.New(
		service.Config{
			HTTPAddr:         opts.HTTPAddr,
			CallbackSecret:   opts.CallbackSecret,
			AdmissionSecret:  opts.AdmissionSecret,
			PaymentResultURL: opts.PaymentResultURL,
			Gate:             gate.Config{EnforceStartTime: opts.EnforceStartTime},
		},
		db,
		redisClient,
		gateway.NewNotificationClient(opts.NotificationURL),
		gateway.NewAuthorizationClient(opts.AuthorizationURL),
	)

	if err := svc.Run(ctx); err != nil {
		log.FromContext(ctx).WithError(err).Error("service stopped with error")
		os.Exit(1)
	}
}
