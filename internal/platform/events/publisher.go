// Package events publishes catalog change notifications over Pub/Sub.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
)

// EventCatalogUpdated marks messages emitted after a successful publish.
const EventCatalogUpdated = "catalog.updated"

// CatalogUpdatedMessage is the JSON payload consumers receive.
type CatalogUpdatedMessage struct {
	Event           string    `json:"event"`
	BaseProductName string    `json:"baseProductName"`
	ProductIDs      []string  `json:"productIds"`
	OccurredAt      time.Time `json:"occurredAt"`
}

// PubSubCatalogPublisher emits catalog events on a Pub/Sub topic.
type PubSubCatalogPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
	now     func() time.Time
}

// PublisherOption customises publisher behaviour.
type PublisherOption func(*PubSubCatalogPublisher)

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) PublisherOption {
	return func(p *PubSubCatalogPublisher) {
		if clock != nil {
			p.now = clock
		}
	}
}

// NewPubSubCatalogPublisher constructs a Pub/Sub backed catalog event publisher.
func NewPubSubCatalogPublisher(topic *pubsub.Topic, opts ...PublisherOption) (*PubSubCatalogPublisher, error) {
	if topic == nil {
		return nil, errors.New("catalog publisher: topic is required")
	}
	publisher := &PubSubCatalogPublisher{
		topic:   topic,
		marshal: json.Marshal,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(publisher)
		}
	}
	return publisher, nil
}

// PublishCatalogUpdated enqueues a catalog.updated message on the topic.
func (p *PubSubCatalogPublisher) PublishCatalogUpdated(ctx context.Context, baseProductName string, productIDs []string) error {
	if p == nil || p.topic == nil {
		return errors.New("catalog publisher: not initialised")
	}

	message := CatalogUpdatedMessage{
		Event:           EventCatalogUpdated,
		BaseProductName: strings.TrimSpace(baseProductName),
		ProductIDs:      append([]string(nil), productIDs...),
		OccurredAt:      p.now().UTC(),
	}
	data, err := p.marshal(message)
	if err != nil {
		return fmt.Errorf("marshal catalog event: %w", err)
	}

	attrs := map[string]string{"event": EventCatalogUpdated}
	if message.BaseProductName != "" {
		attrs["baseProductName"] = message.BaseProductName
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish catalog event: %w", err)
	}
	return nil
}
