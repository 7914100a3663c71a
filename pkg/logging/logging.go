package logging

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nazeru/storefront-checkout-go/pkg/action"
	"github.com/nazeru/storefront-checkout-go/pkg/store"
)

type Fields struct {
	Service    string `json:"service"`
	SessionID  string `json:"session_id,omitempty"`
	CartID     string `json:"cart_id,omitempty"`
	EventID    string `json:"event_id,omitempty"`
	Action     string `json:"action,omitempty"`
	Step       string `json:"step,omitempty"`
	Status     string `json:"status,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Message    string `json:"message,omitempty"`
}

func Log(fields Fields) {
	payload := map[string]any{
		"service":     fields.Service,
		"session_id":  fields.SessionID,
		"cart_id":     fields.CartID,
		"event_id":    fields.EventID,
		"action":      fields.Action,
		"step":        fields.Step,
		"status":      fields.Status,
		"duration_ms": fields.DurationMS,
		"message":     fields.Message,
		"timestamp":   time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("{\"service\":%q,\"status\":\"log_error\",\"error\":%q}", fields.Service, err.Error())
		return
	}
	log.Print(string(data))
}

// Middleware logs every dispatched action. Failed actions carry the error text.
func Middleware[S any](service, sessionID string) store.Middleware[S] {
	return func(getState func() S, next store.DispatchFunc) store.DispatchFunc {
		return func(a action.Action) {
			start := time.Now()
			next(a)
			fields := Fields{
				Service:    service,
				SessionID:  sessionID,
				Action:     a.Type.String(),
				Status:     "dispatched",
				DurationMS: time.Since(start).Milliseconds(),
			}
			if err := a.Err(); err != nil {
				fields.Status = "failed"
				fields.Message = err.Error()
			}
			Log(fields)
		}
	}
}
