package gateway

import (
	"context"
	"fmt"

	"github.com/piresc/payrelay/internal/pkg/constants"
	"github.com/piresc/payrelay/internal/pkg/logger"
	"github.com/piresc/payrelay/internal/pkg/models"
	natspkg "github.com/piresc/payrelay/internal/pkg/nats"
	nrpkg "github.com/piresc/payrelay/internal/pkg/newrelic"
)

// NATSGateway publishes payment outcome events to NATS
type NATSGateway struct {
	client *natspkg.Client
}

// NewNATSGateway creates a new NATS gateway
func NewNATSGateway(client *natspkg.Client) *NATSGateway {
	return &NATSGateway{
		client: client,
	}
}

// PublishPaymentEvent publishes event on the subject matching its type
func (g *NATSGateway) PublishPaymentEvent(ctx context.Context, event models.PaymentEvent) error {
	subject, err := subjectFor(event.Type)
	if err != nil {
		return err
	}

	return nrpkg.WithExternalSegment(ctx, "nats", "publish", subject, func() error {
		if err := g.client.PublishJSON(subject, event); err != nil {
			return err
		}
		logger.DebugCtx(ctx, "Payment event published",
			logger.String("subject", subject),
			logger.Reference(event.Reference))
		return nil
	})
}

func subjectFor(eventType string) (string, error) {
	switch eventType {
	case models.PaymentEventInitiated:
		return constants.SubjectPaymentInitiated, nil
	case models.PaymentEventSucceeded:
		return constants.SubjectPaymentSucceeded, nil
	case models.PaymentEventFailed:
		return constants.SubjectPaymentFailed, nil
	default:
		return "", fmt.Errorf("unknown payment event type %q", eventType)
	}
}

// NoopEventGW discards events when NATS is not configured
type NoopEventGW struct{}

// PublishPaymentEvent implements payment.EventGW
func (NoopEventGW) PublishPaymentEvent(ctx context.Context, event models.PaymentEvent) error {
	return nil
}
