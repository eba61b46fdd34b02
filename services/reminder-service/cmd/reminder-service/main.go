package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/glowdesk/glowdesk/libs/config"
	"github.com/glowdesk/glowdesk/libs/db"
	"github.com/glowdesk/glowdesk/libs/eventx"
	"github.com/glowdesk/glowdesk/libs/httpx"
	"github.com/glowdesk/glowdesk/libs/kafkax"
	otelx "github.com/glowdesk/glowdesk/libs/otel"
	"github.com/glowdesk/glowdesk/libs/runtime"
	"github.com/glowdesk/glowdesk/services/reminder-service/internal/jobs"
	"github.com/glowdesk/glowdesk/services/reminder-service/migrations"
)

func main() {
	config.LoadDotenv()

	service := config.String("SERVICE_NAME", "reminder-service")
	port, err := config.Port("PORT", "8084")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, migrations.FS); err != nil {
		logger.Error("migrations failed", "err", err)
		panic(err)
	}

	jobRepo := jobs.NewRepository()
	inboxRepo := eventx.NewInboxRepository(pool)
	outboxRepo := eventx.NewOutboxRepository(pool)

	publisher := eventx.NewPublisher(pool, outboxRepo, logger, eventx.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	worker := jobs.NewWorker(pool, jobRepo, outboxRepo, logger, jobs.WorkerConfig{
		Interval:  2 * time.Second,
		BatchSize: 50,
		Backoff:   time.Duration(config.Int("REMINDER_BACKOFF_SECONDS", 60)) * time.Second,
	})
	go worker.Run(ctx)

	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "reminder-service")

	intake := eventx.NewConsumer(logger, inboxRepo, eventx.ConsumerConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   config.String("KAFKA_CONSUME_TOPIC", "scheduling.reminder.requested.v1"),
	}, func(ctx context.Context, msg kafka.Message) error {
		var req jobs.ReminderRequest
		if err := json.Unmarshal(msg.Value, &req); err != nil {
			logger.Error("invalid reminder request", "err", err)
			return nil
		}
		job, err := jobs.BuildJob(req, time.Now().UTC())
		if err != nil {
			if errors.Is(err, jobs.ErrDropped) {
				logger.Info("past-due reminder dropped", "appointment_id", req.AppointmentID, "kind", req.Kind)
				return nil
			}
			logger.Error("reminder request rejected", "err", err)
			return nil
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if err := jobRepo.Insert(ctx, tx, job); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
	go intake.Run(ctx)

	for _, topic := range jobs.CancelTopics() {
		c := eventx.NewConsumer(logger, inboxRepo, eventx.ConsumerConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}, func(ctx context.Context, msg kafka.Message) error {
			var ev jobs.AppointmentEvent
			if err := json.Unmarshal(msg.Value, &ev); err != nil {
				logger.Error("invalid appointment event", "err", err)
				return nil
			}
			target := jobs.CancelTarget(msg.Topic, ev)
			if target == "" {
				logger.Error("appointment event without a cancel target", "topic", msg.Topic)
				return nil
			}

			tx, err := pool.Begin(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = tx.Rollback(ctx) }()

			n, err := jobRepo.CancelForAppointment(ctx, tx, target)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("pending reminders cancelled", "appointment_id", target, "count", n)
			}
			return tx.Commit(ctx)
		})
		go c.Run(ctx)
	}

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "reminder")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
