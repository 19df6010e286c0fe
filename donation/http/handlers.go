package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vasaviseattle/site-tools/donation"
	"github.com/vasaviseattle/site-tools/logger"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "requestId"

	signatureHeader = "Stripe-Signature"
)

// RequestID tags every request with an ID, reusing the caller's when given.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func requestLogger(c *gin.Context, lggr logger.Logger) logger.Logger {
	if id := c.GetString(requestIDKey); id != "" {
		return lggr.With("requestId", id)
	}
	return lggr
}

func CreatePaymentIntentHandler(processor Processor, lggr logger.Logger) func(*gin.Context) {
	return func(c *gin.Context) {
		var req donation.PaymentIntentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		intent, err := processor.CreatePaymentIntent(c.Request.Context(), req)
		if err != nil {
			requestLogger(c, lggr).Errorw("Error creating payment intent", "err", err, "amount", req.Amount)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		requestLogger(c, lggr).Infow("payment intent created", "intentId", intent.ID, "amount", req.Amount, "donationType", req.DonationType)

		c.JSON(http.StatusOK, gin.H{"clientSecret": intent.ClientSecret})
	}
}

// WebhookHandler verifies and logs processor webhooks, then hands payment
// outcomes to sink. A nil sink only logs. Sink failures are logged and the
// event is still acknowledged so the processor does not redeliver it.
func WebhookHandler(verifier WebhookVerifier, sink donation.EventSink, lggr logger.Logger) func(*gin.Context) {
	return func(c *gin.Context) {
		lggr := requestLogger(c, lggr)

		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			lggr.Errorw("Failed to read webhook body", "err", err)
			c.String(http.StatusBadRequest, "Webhook Error: %s", err.Error())
			return
		}

		event, err := verifier.VerifyEvent(payload, c.GetHeader(signatureHeader))
		if err != nil {
			lggr.Errorw("Webhook signature verification failed", "err", err)
			c.String(http.StatusBadRequest, "Webhook Error: %s", err.Error())
			return
		}

		handled := true

		switch event.Type {
		case donation.EventPaymentSucceeded:
			lggr.Infow("Payment succeeded", "intentId", event.IntentID, "amount", event.AmountCents, "eventId", event.ID)
		case donation.EventPaymentFailed:
			lggr.Warnw("Payment failed", "intentId", event.IntentID, "amount", event.AmountCents, "eventId", event.ID)
		default:
			handled = false
			lggr.Infow("Unhandled event type", "type", event.Type, "eventId", event.ID)
		}

		if handled && sink != nil {
			if err := sink.Record(c.Request.Context(), event); err != nil {
				lggr.Errorw("Failed to record webhook event", "eventId", event.ID, "err", err)
			}
		}

		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}

func HealthHandler() func(*gin.Context) {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "message": "Donation server is running"})
	}
}

// MethodOption is one payment method offered on the wizard's last step.
type MethodOption struct {
	Method     donation.PaymentMethod `json:"method"`
	Configured bool                   `json:"configured"`
}

type DonationOptions struct {
	DonationType  donation.DonationType `json:"donationType"`
	Presets       []int64               `json:"presets"`
	DefaultAmount int64                 `json:"defaultAmount"`
	Methods       []MethodOption        `json:"methods"`
}

// Options lists the payment methods for t and whether each is configured.
func Options(opts donation.WizardOptions, t donation.DonationType) DonationOptions {
	methods := donation.MethodsFor(t)
	if opts.CardEnabled && t == donation.DonationTypeOnce {
		methods = append([]donation.PaymentMethod{donation.MethodCard}, methods...)
	}

	options := DonationOptions{
		DonationType:  t,
		Presets:       donation.PresetAmounts,
		DefaultAmount: donation.DefaultAmount,
	}

	for _, m := range methods {
		options.Methods = append(options.Methods, MethodOption{Method: m, Configured: methodConfigured(opts, m)})
	}

	return options
}

func methodConfigured(opts donation.WizardOptions, m donation.PaymentMethod) bool {
	switch m {
	case donation.MethodCard:
		return opts.CardEnabled
	case donation.MethodPayPal:
		return opts.PayPalClientID != ""
	case donation.MethodVenmo:
		return opts.VenmoUsername != ""
	case donation.MethodCashApp:
		return opts.CashAppUsername != ""
	case donation.MethodBank:
		return opts.Bank.AccountNumber != ""
	default:
		return false
	}
}

func DonationOptionsHandler(opts donation.WizardOptions) func(*gin.Context) {
	return func(c *gin.Context) {
		t := donation.DonationType(c.DefaultQuery("type", string(donation.DonationTypeOnce)))
		if t != donation.DonationTypeOnce && t != donation.DonationTypeMonthly {
			c.JSON(http.StatusBadRequest, gin.H{"error": "type must be once or monthly"})
			return
		}

		c.JSON(http.StatusOK, Options(opts, t))
	}
}

// Register mounts the payment server endpoints on api.
func Register(api *gin.RouterGroup, processor Processor, verifier WebhookVerifier, sink donation.EventSink, opts donation.WizardOptions, lggr logger.Logger) {
	api.POST("/create-payment-intent", CreatePaymentIntentHandler(processor, lggr.Named("payments")))
	api.POST("/webhook", WebhookHandler(verifier, sink, lggr.Named("webhook")))
	api.GET("/health", HealthHandler())
	api.GET("/donation/options", DonationOptionsHandler(opts))
}
