package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/north-market/api/internal/services"
)

// PubSubNotificationPublisher publishes notification events to a Pub/Sub
// topic. Downstream workers (email sender, invoice generator, ops alerting)
// subscribe to the same topic and dispatch on the kind attribute.
type PubSubNotificationPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubNotificationPublisher constructs a Pub/Sub backed notification publisher.
func NewPubSubNotificationPublisher(topic *pubsub.Topic) (*PubSubNotificationPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub notification publisher: topic is required")
	}
	return &PubSubNotificationPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// Publish enqueues a notification message on the configured topic.
func (p *PubSubNotificationPublisher) Publish(ctx context.Context, notification services.Notification) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub notification publisher: not initialised")
	}

	data, err := p.marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "kind", notification.Kind)
	setAttr(attrs, "userId", notification.UserID)
	setAttr(attrs, "orderId", notification.OrderID)
	setAttr(attrs, "orderReference", notification.OrderReference)
	setAttr(attrs, "productId", notification.ProductID)
	for key, value := range notification.Metadata {
		setAttr(attrs, strings.TrimSpace(key), value)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if key == "" {
		return
	}
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
