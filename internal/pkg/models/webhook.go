package models

import (
	"encoding/json"
	"fmt"
)

// WebhookEventKind is the "event" discriminator sent by the gateway
type WebhookEventKind string

const (
	WebhookEventChargeSuccess WebhookEventKind = "charge.success"
)

// WebhookEvent is a decoded gateway event. Implementations are
// ChargeSuccessEvent and UnknownEvent.
type WebhookEvent interface {
	Kind() WebhookEventKind
}

// ChargeSuccessEvent reports that a charge completed on the gateway
type ChargeSuccessEvent struct {
	Reference string
	Data      GatewayData
}

// Kind implements WebhookEvent
func (ChargeSuccessEvent) Kind() WebhookEventKind { return WebhookEventChargeSuccess }

// UnknownEvent is any event this service does not act on
type UnknownEvent struct {
	EventKind WebhookEventKind
}

// Kind implements WebhookEvent
func (e UnknownEvent) Kind() WebhookEventKind { return e.EventKind }

type webhookEnvelope struct {
	Event WebhookEventKind `json:"event"`
	Data  json.RawMessage  `json:"data"`
}

// DecodeWebhookEvent decodes a raw gateway payload into a WebhookEvent
func DecodeWebhookEvent(payload []byte) (WebhookEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}

	switch env.Event {
	case WebhookEventChargeSuccess:
		data := GatewayData{}
		if len(env.Data) > 0 && string(env.Data) != "null" {
			if err := json.Unmarshal(env.Data, &data); err != nil {
				return nil, fmt.Errorf("invalid charge data: %w", err)
			}
		}
		ref, _ := data["reference"].(string)
		if ref == "" {
			return nil, fmt.Errorf("charge event has no reference")
		}
		return ChargeSuccessEvent{Reference: ref, Data: data}, nil
	default:
		return UnknownEvent{EventKind: env.Event}, nil
	}
}
