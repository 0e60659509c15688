// Package events publishes storefront activity (cart changes, placed orders)
// to Kafka for downstream analytics.
package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Publisher emits storefront events. Implementations never block the caller on
// broker round-trips.
type Publisher interface {
	CartUpdated(ctx context.Context, sessionID string, cartCount, wishlistCount int)
	OrderPlaced(ctx context.Context, sessionID, orderID string)
	Close()
}

// ProducerClient is the subset of *kgo.Client used for producing.
type ProducerClient interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
	Close()
}

// NewProducerClient connects a franz-go client that writes to topic.
func NewProducerClient(ctx context.Context, seedBrokers []string, topic string) (*kgo.Client, error) {
	if len(seedBrokers) == 0 {
		return nil, errors.New("events: no seed brokers")
	}
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(seedBrokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("events: create kafka client: %w", err)
	}
	if err := cl.Ping(ctx); err != nil {
		cl.Close()
		return nil, fmt.Errorf("events: ping brokers: %w", err)
	}
	return cl, nil
}

// KafkaPublisher produces Avro-encoded StorefrontEventV1 records keyed by session id.
type KafkaPublisher struct {
	cl      ProducerClient
	encoder Encoder
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewKafkaPublisher(cl ProducerClient, encoder Encoder, log logrus.FieldLogger) *KafkaPublisher {
	return &KafkaPublisher{cl: cl, encoder: encoder, log: log, now: time.Now}
}

func (p *KafkaPublisher) CartUpdated(ctx context.Context, sessionID string, cartCount, wishlistCount int) {
	p.publish(ctx, StorefrontEventV1{
		EventType:     TypeCartUpdated,
		SessionID:     sessionID,
		CartCount:     cartCount,
		WishlistCount: wishlistCount,
	})
}

func (p *KafkaPublisher) OrderPlaced(ctx context.Context, sessionID, orderID string) {
	p.publish(ctx, StorefrontEventV1{
		EventType: TypeOrderPlaced,
		SessionID: sessionID,
		OrderID:   orderID,
	})
}

func (p *KafkaPublisher) publish(ctx context.Context, ev StorefrontEventV1) {
	ev.OccurredAt = p.now().UTC().Truncate(time.Millisecond)

	b, err := p.encoder.Encode(ev)
	if err != nil {
		p.log.WithError(err).WithField("event_type", ev.EventType).Error("Failed to encode storefront event")
		return
	}

	// The request context may be cancelled as soon as the handler returns.
	ctx = context.WithoutCancel(ctx)
	r := &kgo.Record{Key: []byte(ev.SessionID), Value: b}
	p.cl.Produce(ctx, r, func(r *kgo.Record, err error) {
		if err != nil {
			p.log.WithError(err).WithField("event_type", ev.EventType).Warn("Failed to produce storefront event")
		}
	})
}

// Close flushes buffered records and closes the client.
func (p *KafkaPublisher) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.cl.Flush(ctx); err != nil {
		p.log.WithError(err).Warn("Failed to flush storefront events")
	}
	p.cl.Close()
	p.log.Info("Event producer closed")
}

// Nop discards every event. It is used when no brokers are configured.
type Nop struct{}

func (Nop) CartUpdated(context.Context, string, int, int) {}
func (Nop) OrderPlaced(context.Context, string, string)   {}
func (Nop) Close()                                        {}
