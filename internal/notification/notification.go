package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/logger"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/pubsub"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Topic is the bus topic delivery workers consume from. Delivery mechanics
// (email, push, in-app) live outside this module.
const Topic = "notifications"

// Message is a notification to a single user
type Message struct {
	ID              string                 `json:"id"`
	UserID          string                 `json:"user_id"`
	Type            types.NotificationType `json:"type"`
	Title           string                 `json:"title"`
	Body            string                 `json:"body"`
	RelatedEntityID string                 `json:"related_entity_id,omitempty"`
	Metadata        types.Metadata         `json:"metadata,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

// Publisher dispatches notifications. Dispatch is fire-and-forget from the
// caller's perspective: services log publish failures and never propagate
// them.
type Publisher interface {
	Publish(ctx context.Context, msg *Message) error
}

type pubsubPublisher struct {
	bus    pubsub.Publisher
	logger *logger.Logger
}

// NewPublisher creates a Publisher backed by the message bus
func NewPublisher(bus pubsub.Publisher, logger *logger.Logger) Publisher {
	return &pubsubPublisher{
		bus:    bus,
		logger: logger,
	}
}

func (p *pubsubPublisher) Publish(ctx context.Context, msg *Message) error {
	if msg.ID == "" {
		msg.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_NOTIFICATION)
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	p.logger.Debugw("publishing notification",
		"notification_id", msg.ID,
		"user_id", msg.UserID,
		"type", msg.Type)

	return p.bus.Publish(ctx, Topic, message.NewMessage(msg.ID, payload))
}
