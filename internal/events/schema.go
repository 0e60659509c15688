package events

import (
	"time"

	"github.com/hamba/avro/v2"
)

const StorefrontEventSchemaTextV1 = `{
	"type": "record",
	"namespace": "storefront",
	"name": "storefront_event",
	"fields": [
		{"name": "event_type", "type": "string"},
		{"name": "session_id", "type": "string"},
		{"name": "cart_count", "type": "int"},
		{"name": "wishlist_count", "type": "int"},
		{"name": "order_id", "type": "string", "default": ""},
		{"name": "occurred_at", "type": {"type": "long", "logicalType": "timestamp-millis"}}
	]
}`

// Event types published to the events topic.
const (
	TypeCartUpdated = "cart_updated"
	TypeOrderPlaced = "order_placed"
)

// StorefrontEventV1 is the wire form of a storefront event.
type StorefrontEventV1 struct {
	EventType     string    `avro:"event_type"`
	SessionID     string    `avro:"session_id"`
	CartCount     int       `avro:"cart_count"`
	WishlistCount int       `avro:"wishlist_count"`
	OrderID       string    `avro:"order_id"`
	OccurredAt    time.Time `avro:"occurred_at"`
}

var storefrontEventSchemaV1 = avro.MustParse(StorefrontEventSchemaTextV1)

// Encoder serialises events for the wire.
type Encoder interface {
	Encode(v any) ([]byte, error)
}

// AvroSerde encodes StorefrontEventV1 values with the v1 schema.
type AvroSerde struct {
	schema avro.Schema
}

func NewAvroSerde() AvroSerde {
	return AvroSerde{schema: storefrontEventSchemaV1}
}

func (s AvroSerde) Encode(v any) ([]byte, error) {
	return avro.Marshal(s.schema, v)
}
