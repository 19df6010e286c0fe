package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/vasaviseattle/site-tools/donation"
)

var (
	ErrMissingSecretKey     = errors.New("payment processor secret key is not configured")
	ErrMissingWebhookSecret = errors.New("webhook signing secret is not configured")
)

// Processor creates payment intents with the payment processor.
type Processor interface {
	CreatePaymentIntent(context.Context, donation.PaymentIntentRequest) (donation.PaymentIntent, error)
}

// WebhookVerifier checks an inbound webhook's signature and decodes it.
type WebhookVerifier interface {
	VerifyEvent(payload []byte, signature string) (donation.WebhookEvent, error)
}

type StripeOption func(*StripeProcessor)

// WithBackend points the processor at a specific API backend.
func WithBackend(backend stripe.Backend) StripeOption {
	return func(p *StripeProcessor) {
		p.backend = backend
	}
}

// StripeProcessor is the Stripe implementation of Processor and
// WebhookVerifier. Requests are sent once; nothing is retried.
type StripeProcessor struct {
	secretKey     string
	webhookSecret string
	backend       stripe.Backend
	now           func() time.Time
}

func NewStripeProcessor(secretKey, webhookSecret string, opts ...StripeOption) *StripeProcessor {
	p := &StripeProcessor{
		secretKey:     strings.TrimSpace(secretKey),
		webhookSecret: strings.TrimSpace(webhookSecret),
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.backend == nil {
		p.backend = stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			MaxNetworkRetries: stripe.Int64(0),
		})
	}

	return p
}

// Configured reports whether payment intents can be created.
func (p *StripeProcessor) Configured() bool {
	return p.secretKey != ""
}

// WebhooksConfigured reports whether inbound webhooks can be verified.
func (p *StripeProcessor) WebhooksConfigured() bool {
	return p.webhookSecret != ""
}

func (p *StripeProcessor) CreatePaymentIntent(ctx context.Context, req donation.PaymentIntentRequest) (donation.PaymentIntent, error) {
	if p.secretKey == "" {
		return donation.PaymentIntent{}, ErrMissingSecretKey
	}

	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(req.Amount),
		Currency:    stripe.String(string(stripe.CurrencyUSD)),
		Description: stripe.String(req.Description()),
	}
	params.Context = ctx

	for key, value := range req.Metadata() {
		params.AddMetadata(key, value)
	}

	client := paymentintent.Client{B: p.backend, Key: p.secretKey}

	intent, err := client.New(params)
	if err != nil {
		return donation.PaymentIntent{}, processorError(err)
	}

	return donation.PaymentIntent{ID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// processorError unwraps Stripe's error into its human readable message.
func processorError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return errors.New(stripeErr.Msg)
	}
	return err
}

// VerifyEvent checks signature against the raw payload using Stripe's
// signing scheme and decodes the event. Payment intent events carry the
// intent's amount and donor metadata. Without a signing secret every
// event is rejected.
func (p *StripeProcessor) VerifyEvent(payload []byte, signature string) (donation.WebhookEvent, error) {
	if p.webhookSecret == "" {
		return donation.WebhookEvent{}, ErrMissingWebhookSecret
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return donation.WebhookEvent{}, err
	}

	received := donation.WebhookEvent{
		ID:         event.ID,
		Type:       string(event.Type),
		ReceivedAt: p.now().UTC(),
	}

	if !strings.HasPrefix(received.Type, "payment_intent.") || event.Data == nil {
		return received, nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return donation.WebhookEvent{}, fmt.Errorf("failed to decode payment intent: %w", err)
	}

	received.IntentID = intent.ID
	received.AmountCents = intent.Amount
	received.Currency = string(intent.Currency)
	received.DonationType = donation.DonationType(intent.Metadata["donationType"])
	received.DonorName = intent.Metadata["donorName"]
	received.DonorEmail = intent.Metadata["donorEmail"]

	return received, nil
}
