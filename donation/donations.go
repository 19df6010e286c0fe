package donation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type DonationType string

const (
	DonationTypeOnce    DonationType = "once"
	DonationTypeMonthly DonationType = "monthly"
)

func (t DonationType) Label() string {
	if t == DonationTypeMonthly {
		return "Monthly"
	}
	return "One-time"
}

type PaymentMethod string

const (
	MethodNone    PaymentMethod = ""
	MethodCard    PaymentMethod = "card"
	MethodPayPal  PaymentMethod = "paypal"
	MethodVenmo   PaymentMethod = "venmo"
	MethodCashApp PaymentMethod = "cashapp"
	MethodApple   PaymentMethod = "apple"
	MethodBank    PaymentMethod = "bank"
)

// Status is the outcome shown once a payment surface reports back.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

type DonorInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message,omitempty"`
}

// Complete reports whether the required donor fields are filled in.
func (d DonorInfo) Complete() bool {
	return strings.TrimSpace(d.Name) != "" && strings.TrimSpace(d.Email) != ""
}

// PaymentIntentRequest is the body of POST /api/create-payment-intent.
type PaymentIntentRequest struct {
	// Amount is in cents.
	Amount       int64        `json:"amount"`
	DonationType DonationType `json:"donationType"`
	DonorInfo    DonorInfo    `json:"donorInfo"`
}

var (
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	ErrMissingDonor  = errors.New("donor name and email are required")
)

func (r PaymentIntentRequest) Validate() error {
	if r.Amount <= 0 {
		return ErrInvalidAmount
	}

	if !r.DonorInfo.Complete() {
		return ErrMissingDonor
	}

	return nil
}

// Description is the human readable label stored on the payment intent.
func (r PaymentIntentRequest) Description() string {
	return fmt.Sprintf("%s donation from %s", r.DonationType.Label(), r.DonorInfo.Name)
}

// Metadata tags the payment intent with the donation and donor details.
func (r PaymentIntentRequest) Metadata() map[string]string {
	return map[string]string{
		"donationType": string(r.DonationType),
		"donorName":    r.DonorInfo.Name,
		"donorEmail":   r.DonorInfo.Email,
		"donorMessage": r.DonorInfo.Message,
	}
}

// PaymentIntent is the processor-side intent. Only the client secret leaves
// the server; nothing is kept locally.
type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
}

var hundred = decimal.NewFromInt(100)

// ToCents converts a dollar amount to whole cents, rounding half away from zero.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FormatAmount renders a dollar amount without trailing zeros ("25", "12.5").
func FormatAmount(amount decimal.Decimal) string {
	return amount.String()
}
