package contracts

import (
	"encoding/json"
	"time"
)

// Event is the journaled form of a checkout action.
type Event struct {
	EventID   string          `json:"event_id"`
	SessionID string          `json:"session_id"`
	CartID    string          `json:"cart_id"`
	CreatedAt time.Time       `json:"created_at"`
	Type      string          `json:"type"`
	Error     string          `json:"error,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

const (
	EventShippingAccepted = "checkout.shipping_accepted"
	EventShippingRejected = "checkout.shipping_rejected"
	EventOrderPlaced      = "checkout.order_placed"
	EventOrderRejected    = "checkout.order_rejected"
)

const TopicCheckoutEvents = "storefront.checkout.events"
