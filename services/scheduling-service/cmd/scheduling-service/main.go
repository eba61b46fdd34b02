package main

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/glowdesk/glowdesk/libs/config"
	"github.com/glowdesk/glowdesk/libs/db"
	"github.com/glowdesk/glowdesk/libs/eventx"
	"github.com/glowdesk/glowdesk/libs/httpx"
	"github.com/glowdesk/glowdesk/libs/kafkax"
	otelx "github.com/glowdesk/glowdesk/libs/otel"
	"github.com/glowdesk/glowdesk/libs/runtime"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/availability"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/directory"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/handlers"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/scheduling"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/storage"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/timegrid"
	"github.com/glowdesk/glowdesk/services/scheduling-service/migrations"
)

func slotConfigFromEnv() availability.SlotConfig {
	cfg := availability.DefaultSlotConfig()
	if start, err := timegrid.ParseClock(config.String("SLOT_DAY_START", "08:00")); err == nil {
		cfg.DayStart = start
	}
	if end, err := timegrid.ParseClock(config.String("SLOT_DAY_END", "18:00")); err == nil {
		cfg.DayEnd = end
	}
	if mins := config.Int("SLOT_MINUTES", 30); mins > 0 {
		cfg.SlotMinutes = mins
	}
	return cfg
}

func main() {
	config.LoadDotenv()

	service := config.String("SERVICE_NAME", "scheduling-service")
	port, err := config.Port("PORT", "8083")
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

	refs := storage.NewReferenceRepository(pool)
	provider, err := directory.NewProvider(config.String("DIRECTORY_GRPC_ADDR", ""))
	if err != nil {
		logger.Error("directory provider init failed; using cache only", "err", err)
		provider = nil
	}
	repo := storage.NewAppointmentRepository(pool)
	svc := scheduling.New(repo, directory.NewFallbackDirectory(refs, provider), logger, slotConfigFromEnv())

	outboxRepo := eventx.NewOutboxRepository(pool)
	publisher := eventx.NewPublisher(pool, outboxRepo, logger, eventx.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	inboxRepo := eventx.NewInboxRepository(pool)
	sync := directory.NewSync(refs, logger)
	for _, topic := range directory.Topics() {
		c := eventx.NewConsumer(logger, inboxRepo, eventx.ConsumerConfig{
			Brokers: config.String("KAFKA_BROKERS", ""),
			GroupID: config.String("KAFKA_GROUP_ID", "scheduling-service"),
			Topic:   topic,
		}, sync.Handle)
		go c.Run(ctx)
	}

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	handlers.NewAppointmentHandler(svc, logger).Register(mux)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "scheduling")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
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
