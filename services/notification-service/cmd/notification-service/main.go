package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
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
	"github.com/glowdesk/glowdesk/services/notification-service/internal/compose"
	"github.com/glowdesk/glowdesk/services/notification-service/internal/email"
	"github.com/glowdesk/glowdesk/services/notification-service/internal/refs"
	"github.com/glowdesk/glowdesk/services/notification-service/internal/sms"
	"github.com/glowdesk/glowdesk/services/notification-service/internal/storage"
	"github.com/glowdesk/glowdesk/services/notification-service/migrations"
)

type duePayload struct {
	AppointmentID  string `json:"appointment_id"`
	ClientID       string `json:"client_id"`
	ProfessionalID string `json:"professional_id"`
	ServiceID      string `json:"service_id"`
	Kind           string `json:"kind"`
	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
	SendAt         string `json:"send_at"`
}

func writeOutboxResult(ctx context.Context, pool *db.Pool, outboxRepo *eventx.OutboxRepository, payload duePayload, channel, providerID, reason string) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	eventType := "notification.sent.v1"
	body := map[string]any{
		"appointment_id": payload.AppointmentID,
		"client_id":      payload.ClientID,
		"kind":           payload.Kind,
		"channel":        channel,
	}
	if reason == "" {
		if strings.TrimSpace(providerID) == "" {
			providerID = "unknown"
		}
		body["provider_id"] = providerID
		body["sent_at"] = time.Now().UTC().Format(time.RFC3339)
	} else {
		eventType = "notification.failed.v1"
		body["error_reason"] = reason
		body["failed_at"] = time.Now().UTC().Format(time.RFC3339)
	}

	eventPayload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	if err := outboxRepo.Insert(ctx, tx, eventx.Event{
		AggregateType: "notification",
		AggregateID:   payload.AppointmentID,
		EventType:     eventType,
		Payload:       eventPayload,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func main() {
	config.LoadDotenv()

	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8085")
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

	inboxRepo := eventx.NewInboxRepository(pool)
	notificationsRepo := storage.NewRepository(pool)
	contactsRepo := storage.NewContactsRepository(pool)
	outboxRepo := eventx.NewOutboxRepository(pool)
	publisher := eventx.NewPublisher(pool, outboxRepo, logger, eventx.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	clinicName := config.String("CLINIC_NAME", "")

	emailSender := email.NewSMTPSender(email.Config{
		Host:     config.String("SMTP_HOST", "mailpit"),
		Port:     config.String("SMTP_PORT", "1025"),
		From:     config.String("SMTP_FROM", "no-reply@glowdesk.local"),
		FromName: clinicName,
		ReplyTo:  config.String("SMTP_REPLY_TO", ""),
	})
	emailProviderID := "smtp"

	var smsSender sms.Sender
	switch strings.ToLower(config.String("SMS_PROVIDER", "noop")) {
	case "noop":
		smsSender = sms.NewNoopSender()
	default:
		smsSender = sms.NewWebhookSender(sms.Config{
			WebhookURL: config.String("SMS_WEBHOOK_URL", ""),
			Token:      config.String("SMS_WEBHOOK_TOKEN", ""),
			SenderID:   config.String("SMS_SENDER_ID", clinicName),
		})
	}

	failSuffix := config.String("NOTIFICATION_FAIL_SUFFIX", "")
	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "notification-service")

	sync := refs.NewSync(contactsRepo, logger)
	for _, topic := range refs.Topics() {
		c := eventx.NewConsumer(logger, inboxRepo, eventx.ConsumerConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}, sync.Handle)
		go c.Run(ctx)
	}

	dueConsumer := eventx.NewConsumer(logger, inboxRepo, eventx.ConsumerConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   config.String("KAFKA_CONSUME_TOPIC", "reminder.due.v1"),
	}, func(ctx context.Context, msg kafka.Message) error {
		var payload duePayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid reminder payload", "err", err)
			return nil
		}
		if payload.AppointmentID == "" || payload.ClientID == "" || payload.Kind == "" {
			logger.Error("missing reminder fields")
			return nil
		}

		contact, found, err := contactsRepo.GetClient(ctx, payload.ClientID)
		if err != nil {
			return err
		}

		serviceName, err := contactsRepo.ServiceName(ctx, payload.ServiceID)
		if err != nil {
			return err
		}
		msgText := compose.Build(compose.Input{
			Kind:        payload.Kind,
			ClientName:  contact.Name,
			ServiceName: serviceName,
			Date:        payload.Date,
			StartTime:   payload.StartTime,
			ClinicName:  clinicName,
		})

		// Email preferred; SMS when the client has no email on file.
		channel, recipient := "email", contact.Email
		if recipient == "" {
			channel, recipient = "sms", contact.Phone
		}

		status := "sent"
		failureReason := ""
		providerID := ""
		switch {
		case !found || recipient == "":
			status = "failed"
			failureReason = "no contact info for client"
		case failSuffix != "" && strings.HasSuffix(recipient, failSuffix):
			status = "failed"
			failureReason = "simulated failure"
		case channel == "email":
			if err := emailSender.Send(recipient, msgText.Subject, msgText.Body); err != nil {
				status = "failed"
				failureReason = err.Error()
				logger.Error("email send failed", "err", err, "recipient", recipient)
			} else {
				providerID = emailProviderID
			}
		default:
			if err := smsSender.Send(ctx, recipient, msgText.Body); err != nil {
				status = "failed"
				failureReason = err.Error()
				logger.Error("sms send failed", "err", err, "recipient", recipient)
			} else {
				providerID = smsSender.ProviderID()
			}
		}

		if err := notificationsRepo.Insert(ctx, storage.Notification{
			AppointmentID: payload.AppointmentID,
			ClientID:      payload.ClientID,
			Kind:          payload.Kind,
			Channel:       channel,
			Recipient:     recipient,
			Body:          msgText.Body,
			Status:        status,
			FailureReason: failureReason,
		}); err != nil {
			logger.Error("failed to persist notification", "err", err)
			return err
		}

		if err := writeOutboxResult(ctx, pool, outboxRepo, payload, channel, providerID, failureReason); err != nil {
			logger.Error("failed to enqueue notification result", "err", err)
			return err
		}

		logger.Info("reminder processed", "appointment_id", payload.AppointmentID, "channel", channel, "status", status)
		return nil
	})
	go dueConsumer.Run(ctx)

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")
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
