package events

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/hamba/avro/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type fakeProducer struct {
	mu      sync.Mutex
	records []*kgo.Record
	err     error
	flushed bool
	closed  bool
}

func (f *fakeProducer) Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error)) {
	f.mu.Lock()
	f.records = append(f.records, r)
	f.mu.Unlock()
	if promise != nil {
		promise(r, f.err)
	}
}

func (f *fakeProducer) Flush(ctx context.Context) error {
	f.flushed = true
	return nil
}

func (f *fakeProducer) Close() { f.closed = true }

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestKafkaPublisher_CartUpdated(t *testing.T) {
	fp := &fakeProducer{}
	p := NewKafkaPublisher(fp, NewAvroSerde(), quietLogger())
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	p.CartUpdated(context.Background(), "sess-1", 3, 1)

	require.Len(t, fp.records, 1)
	assert.Equal(t, []byte("sess-1"), fp.records[0].Key)

	var ev StorefrontEventV1
	require.NoError(t, avro.Unmarshal(storefrontEventSchemaV1, fp.records[0].Value, &ev))
	assert.Equal(t, TypeCartUpdated, ev.EventType)
	assert.Equal(t, "sess-1", ev.SessionID)
	assert.Equal(t, 3, ev.CartCount)
	assert.Equal(t, 1, ev.WishlistCount)
	assert.True(t, fixed.Equal(ev.OccurredAt))
}

func TestKafkaPublisher_OrderPlaced(t *testing.T) {
	fp := &fakeProducer{}
	p := NewKafkaPublisher(fp, NewAvroSerde(), quietLogger())

	p.OrderPlaced(context.Background(), "sess-1", "555")

	require.Len(t, fp.records, 1)
	var ev StorefrontEventV1
	require.NoError(t, avro.Unmarshal(storefrontEventSchemaV1, fp.records[0].Value, &ev))
	assert.Equal(t, TypeOrderPlaced, ev.EventType)
	assert.Equal(t, "555", ev.OrderID)
}

func TestKafkaPublisher_ProduceFailureIsSwallowed(t *testing.T) {
	fp := &fakeProducer{err: errors.New("broker down")}
	p := NewKafkaPublisher(fp, NewAvroSerde(), quietLogger())

	assert.NotPanics(t, func() {
		p.CartUpdated(context.Background(), "sess-1", 1, 0)
	})
}

type failingEncoder struct{}

func (failingEncoder) Encode(any) ([]byte, error) { return nil, errors.New("bad schema") }

func TestKafkaPublisher_EncodeFailureSkipsProduce(t *testing.T) {
	fp := &fakeProducer{}
	p := NewKafkaPublisher(fp, failingEncoder{}, quietLogger())

	p.CartUpdated(context.Background(), "sess-1", 1, 0)
	assert.Empty(t, fp.records)
}

func TestKafkaPublisher_Close(t *testing.T) {
	fp := &fakeProducer{}
	NewKafkaPublisher(fp, NewAvroSerde(), quietLogger()).Close()
	assert.True(t, fp.flushed)
	assert.True(t, fp.closed)
}

func TestNewProducerClient_NoBrokers(t *testing.T) {
	_, err := NewProducerClient(context.Background(), nil, "storefront-events")
	assert.Error(t, err)
}
