package donation

import (
	"context"
	"errors"
	"time"
)

const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// ErrNotConfigured is returned when an optional integration has no settings.
var ErrNotConfigured = errors.New("not configured")

// WebhookEvent is a verified payment outcome reported by the processor.
type WebhookEvent struct {
	ID           string       `json:"id"`
	Type         string       `json:"type"`
	IntentID     string       `json:"intentId"`
	AmountCents  int64        `json:"amount"`
	Currency     string       `json:"currency"`
	DonationType DonationType `json:"donationType,omitempty"`
	DonorName    string       `json:"donorName,omitempty"`
	DonorEmail   string       `json:"donorEmail,omitempty"`
	ReceivedAt   time.Time    `json:"receivedAt"`
}

// Succeeded reports whether the event settles the payment.
func (e WebhookEvent) Succeeded() bool {
	return e.Type == EventPaymentSucceeded
}

// EventSink receives webhook outcomes after they have been logged.
type EventSink interface {
	Record(context.Context, WebhookEvent) error
}

// Sinks delivers an event to every sink and joins their errors. One failing
// sink does not keep the event from the rest.
type Sinks []EventSink

func (s Sinks) Record(ctx context.Context, event WebhookEvent) error {
	var errs []error

	for _, sink := range s {
		if err := sink.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
