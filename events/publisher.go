// Package events announces new notifications on NATS so push workers can
// fan them out.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	models "github.com/berprestasi/lomba-api/models"
)

const SubjectNotificationCreated = "notification.created"

type Publisher interface {
	PublishNotification(n *models.Notification) error
	Close()
}

type NotificationCreatedEvent struct {
	EventID    string                  `json:"event_id"`
	EventType  string                  `json:"event_type"`
	ID         string                  `json:"notification_id"`
	UserID     string                  `json:"user_id"`
	PostID     string                  `json:"post_id,omitempty"`
	FollowerID string                  `json:"follower_id,omitempty"`
	Type       models.NotificationType `json:"type"`
	Message    string                  `json:"message"`
	CreatedAt  time.Time               `json:"created_at"`
}

// conn is the part of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

type NatsPublisher struct {
	conn conn
	log  *slog.Logger
}

func NewNatsPublisher(natsURL string, log *slog.Logger) (*NatsPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("lomba-api"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NatsPublisher{conn: nc, log: log}, nil
}

func (p *NatsPublisher) PublishNotification(n *models.Notification) error {
	event := NotificationCreatedEvent{
		EventID:    uuid.NewString(),
		EventType:  SubjectNotificationCreated,
		ID:         n.ID.Hex(),
		UserID:     n.UserID,
		PostID:     n.PostID,
		FollowerID: n.FollowerID,
		Type:       n.Type,
		Message:    n.Message,
		CreatedAt:  n.CreatedAt,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(SubjectNotificationCreated, payload); err != nil {
		p.log.Error("publish to nats failed", "subject", SubjectNotificationCreated, "error", err)
		return err
	}

	p.log.Debug("published event", "subject", SubjectNotificationCreated, "user_id", n.UserID)
	return nil
}

func (p *NatsPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.log.Warn("drain nats connection", "error", err)
	}
}

// NopPublisher is used when NATS_URL is unset.
type NopPublisher struct{}

func (NopPublisher) PublishNotification(*models.Notification) error { return nil }
func (NopPublisher) Close()                                        {}
