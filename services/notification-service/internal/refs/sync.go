// Package refs keeps the notification service's contact cache in sync
// with directory-service events.
package refs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/glowdesk/glowdesk/services/notification-service/internal/storage"
)

const (
	TopicClientUpserted  = "directory.client.upserted.v1"
	TopicServiceUpserted = "directory.service.upserted.v1"
)

func Topics() []string {
	return []string{TopicClientUpserted, TopicServiceUpserted}
}

type Sync struct {
	contacts *storage.ContactsRepository
	logger   *slog.Logger
}

func NewSync(contacts *storage.ContactsRepository, logger *slog.Logger) *Sync {
	return &Sync{contacts: contacts, logger: logger}
}

type clientPayload struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type servicePayload struct {
	ServiceID string `json:"service_id"`
	Name      string `json:"name"`
}

func (s *Sync) Handle(ctx context.Context, msg kafka.Message) error {
	switch msg.Topic {
	case TopicClientUpserted:
		var p clientPayload
		if err := json.Unmarshal(msg.Value, &p); err != nil {
			return fmt.Errorf("decode client event: %w", err)
		}
		if p.ClientID == "" {
			s.logger.Warn("client event missing id")
			return nil
		}
		return s.contacts.UpsertClient(ctx, storage.Contact{
			ClientID: p.ClientID,
			Name:     p.Name,
			Email:    p.Email,
			Phone:    p.Phone,
		})
	case TopicServiceUpserted:
		var p servicePayload
		if err := json.Unmarshal(msg.Value, &p); err != nil {
			return fmt.Errorf("decode service event: %w", err)
		}
		if p.ServiceID == "" {
			s.logger.Warn("service event missing id")
			return nil
		}
		return s.contacts.UpsertService(ctx, p.ServiceID, p.Name)
	default:
		s.logger.Warn("unexpected topic", "topic", msg.Topic)
		return nil
	}
}
