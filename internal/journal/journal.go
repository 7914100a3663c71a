// Package journal records the outcome of checkout submissions as events in
// the outbox.
package journal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/nazeru/storefront-checkout-go/internal/checkout"
	"github.com/nazeru/storefront-checkout-go/internal/state"
	"github.com/nazeru/storefront-checkout-go/pkg/action"
	"github.com/nazeru/storefront-checkout-go/pkg/contracts"
	"github.com/nazeru/storefront-checkout-go/pkg/logging"
	"github.com/nazeru/storefront-checkout-go/pkg/store"
)

const writeTimeout = 2 * time.Second

type Sink interface {
	Insert(ctx context.Context, eventID, topic, key string, payload any) error
}

var eventTypes = map[action.Type]string{
	checkout.Input.Accept: contracts.EventShippingAccepted,
	checkout.Input.Reject: contracts.EventShippingRejected,
	checkout.Order.Accept: contracts.EventOrderPlaced,
	checkout.Order.Reject: contracts.EventOrderRejected,
}

// Event converts a checkout action into its journaled form. ok is false for
// actions that are not journaled.
func Event(a action.Action, sessionID, cartID string, now time.Time) (contracts.Event, bool) {
	typ, ok := eventTypes[a.Type]
	if !ok {
		return contracts.Event{}, false
	}
	evt := contracts.Event{
		EventID:   uuid.NewString(),
		SessionID: sessionID,
		CartID:    cartID,
		CreatedAt: now.UTC(),
		Type:      typ,
	}
	if err := a.Err(); err != nil {
		evt.Error = err.Error()
	} else if raw, ok := a.Payload.(json.RawMessage); ok && len(raw) > 0 {
		evt.Payload = raw
	}
	return evt, true
}

// Middleware appends journaled actions to sink under topic, or the default
// checkout topic when topic is empty. Write failures are logged and never
// block the action from reaching the reducer.
func Middleware(sink Sink, sessionID, topic string) state.Middleware {
	if topic == "" {
		topic = contracts.TopicCheckoutEvents
	}
	return func(getState func() state.State, next store.DispatchFunc) store.DispatchFunc {
		return func(a action.Action) {
			cartID := getState().Cart.GuestCartID.String()
			next(a)

			evt, ok := Event(a, sessionID, cartID, time.Now())
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			defer cancel()
			if err := sink.Insert(ctx, evt.EventID, topic, evt.CartID, evt); err != nil {
				logging.Log(logging.Fields{Service: "journal", SessionID: sessionID, CartID: cartID, EventID: evt.EventID, Step: evt.Type, Status: "outbox_error", Message: err.Error()})
			}
		}
	}
}
