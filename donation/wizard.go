package donation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vasaviseattle/site-tools/logger"
	"github.com/vasaviseattle/site-tools/paypal"
)

type Step int

const (
	StepAmount Step = iota + 1
	StepDonorInfo
	StepPaymentMethod
)

const (
	DefaultAmount = 100
	// ResetDelay is how long the success message stays up before the wizard
	// starts over.
	ResetDelay = 3000 * time.Millisecond
)

var PresetAmounts = []int64{50, 100, 150, 200}

var (
	ErrStepBlocked       = errors.New("step requirements are not met")
	ErrWrongStep         = errors.New("action is not available on this step")
	ErrMethodUnavailable = errors.New("payment method is not available for this donation type")
	ErrNoMethod          = errors.New("no payment method selected")
)

// ScriptLoader loads the PayPal checkout script.
type ScriptLoader interface {
	Load(ctx context.Context, url string) *paypal.Script
}

type BankDetails struct {
	Bank          string `json:"bank"`
	AccountName   string `json:"accountName"`
	AccountNumber string `json:"accountNumber"`
	RoutingNumber string `json:"routingNumber"`
}

// WizardOptions is the site configuration the wizard depends on. Empty
// values leave the matching payment surface unconfigured.
type WizardOptions struct {
	OrganizationName string
	PayPalClientID   string
	VenmoUsername    string
	CashAppUsername  string
	Bank             BankDetails
	// CardEnabled allows the processor-hosted card flow for one-time gifts.
	CardEnabled bool
	ResetDelay  time.Duration
}

// Intent is a snapshot of the wizard: the donation being assembled. It only
// lives in memory.
type Intent struct {
	Step          Step            `json:"step"`
	DonationType  DonationType    `json:"donationType"`
	Amount        decimal.Decimal `json:"amount"`
	CustomAmount  string          `json:"customAmount"`
	CustomActive  bool            `json:"customActive"`
	Donor         DonorInfo       `json:"donor"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	Status        Status          `json:"status"`
}

// Wizard walks a donor through amount, donor details and payment method.
// Moving forward is gated by validation; moving back is always allowed.
type Wizard struct {
	opts   WizardOptions
	loader ScriptLoader
	lggr   logger.Logger

	mu         sync.Mutex
	intent     Intent
	script     *paypal.Script
	resetTimer *time.Timer
}

func NewWizard(opts WizardOptions, loader ScriptLoader, lggr logger.Logger) *Wizard {
	if opts.ResetDelay <= 0 {
		opts.ResetDelay = ResetDelay
	}

	w := &Wizard{opts: opts, loader: loader, lggr: lggr.Named("wizard")}
	w.intent = w.initialIntent(DonationTypeOnce)

	return w
}

func (w *Wizard) initialIntent(t DonationType) Intent {
	return Intent{
		Step:         StepAmount,
		DonationType: t,
		Amount:       decimal.NewFromInt(DefaultAmount),
		Status:       StatusIdle,
	}
}

func (w *Wizard) Snapshot() Intent {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.intent
}

// SetDonationType switches between one-time and monthly. A selected method
// that monthly donations cannot use is cleared.
func (w *Wizard) SetDonationType(t DonationType) error {
	if t != DonationTypeOnce && t != DonationTypeMonthly {
		return fmt.Errorf("unknown donation type %q", t)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.intent.DonationType = t
	if !w.methodAllowed(w.intent.PaymentMethod) {
		w.intent.PaymentMethod = MethodNone
	}

	return nil
}

func (w *Wizard) SelectPreset(dollars int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.intent.Amount = decimal.NewFromInt(dollars)
	w.intent.CustomAmount = ""
	w.intent.CustomActive = false
}

// EnableCustomAmount opens the free-form amount field. The current amount is
// kept until something is typed.
func (w *Wizard) EnableCustomAmount() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.intent.CustomActive = true
	w.intent.CustomAmount = ""
}

// SetCustomAmount parses the free-form field. Anything that is not a
// positive number sets the amount to zero.
func (w *Wizard) SetCustomAmount(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.intent.CustomActive = true
	w.intent.CustomAmount = text

	amount, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil || !amount.IsPositive() {
		w.intent.Amount = decimal.Zero
		return
	}

	w.intent.Amount = amount
}

// ClearCustomAmount closes the custom field, leaving the amount as it was.
func (w *Wizard) ClearCustomAmount() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.intent.CustomActive = false
	w.intent.CustomAmount = ""
}

func (w *Wizard) SetDonor(info DonorInfo) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.intent.Donor = info
}

// CanContinue reports whether Next would succeed.
func (w *Wizard) CanContinue() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canContinue()
}

func (w *Wizard) canContinue() bool {
	switch w.intent.Step {
	case StepAmount:
		return w.intent.Amount.IsPositive()
	case StepDonorInfo:
		return w.intent.Donor.Complete()
	default:
		return false
	}
}

func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.canContinue() {
		return ErrStepBlocked
	}

	w.intent.Step++
	return nil
}

// Back returns to the previous step; it reports false on the first step.
func (w *Wizard) Back() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.intent.Step <= StepAmount {
		return false
	}

	w.intent.Step--
	return true
}

// AvailableMethods lists the methods offered on the payment step. Monthly
// donations are PayPal only.
func (w *Wizard) AvailableMethods() []PaymentMethod {
	w.mu.Lock()
	defer w.mu.Unlock()
	return MethodsFor(w.intent.DonationType)
}

// MethodsFor lists the payment step's methods for a donation type.
func MethodsFor(t DonationType) []PaymentMethod {
	if t == DonationTypeMonthly {
		return []PaymentMethod{MethodPayPal}
	}
	return []PaymentMethod{MethodPayPal, MethodVenmo, MethodCashApp, MethodApple, MethodBank}
}

// CheckoutMethods is AvailableMethods plus the processor-hosted card flow
// when it is enabled for this donation.
func (w *Wizard) CheckoutMethods() []PaymentMethod {
	w.mu.Lock()
	defer w.mu.Unlock()

	methods := MethodsFor(w.intent.DonationType)
	if w.methodAllowed(MethodCard) {
		methods = append([]PaymentMethod{MethodCard}, methods...)
	}
	return methods
}

func (w *Wizard) methodAllowed(m PaymentMethod) bool {
	if m == MethodNone {
		return true
	}
	if m == MethodCard {
		return w.opts.CardEnabled && w.intent.DonationType == DonationTypeOnce
	}
	return slices.Contains(MethodsFor(w.intent.DonationType), m)
}

// SelectMethod picks the payment method on the last step. Picking PayPal
// with a configured client ID starts loading the checkout script; a failed
// load is only logged.
func (w *Wizard) SelectMethod(ctx context.Context, m PaymentMethod) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.intent.Step != StepPaymentMethod {
		return ErrWrongStep
	}

	if m == MethodNone || !w.methodAllowed(m) {
		return ErrMethodUnavailable
	}

	w.intent.PaymentMethod = m

	if m == MethodPayPal && w.opts.PayPalClientID != "" && w.loader != nil {
		w.script = w.loader.Load(ctx, paypal.SDKURL(w.opts.PayPalClientID, "USD"))
	}

	return nil
}

type ActionKind string

const (
	// ActionCreateIntent asks the API server for a payment intent.
	ActionCreateIntent ActionKind = "create_payment_intent"
	// ActionPayPalButtons renders the PayPal buttons.
	ActionPayPalButtons ActionKind = "paypal_buttons"
	// ActionRedirect opens URL in a new browsing context.
	ActionRedirect ActionKind = "redirect"
	// ActionInfo shows a static panel.
	ActionInfo ActionKind = "info"
	// ActionNotice is an inert notice in place of the payment surface.
	ActionNotice ActionKind = "notice"
	// ActionAlert is a blocking alert; nothing else happens.
	ActionAlert ActionKind = "alert"
	// ActionDisabled marks a placeholder method.
	ActionDisabled ActionKind = "disabled"
)

// Action is what the payment step does for the selected method.
type Action struct {
	Kind    ActionKind            `json:"kind"`
	URL     string                `json:"url,omitempty"`
	Message string                `json:"message,omitempty"`
	Request *PaymentIntentRequest `json:"request,omitempty"`
	Order   *paypal.OrderRequest  `json:"order,omitempty"`
	Bank    *BankDetails          `json:"bank,omitempty"`
	// Reference is the transfer reference for bank payments.
	Reference string `json:"reference,omitempty"`
}

// Checkout resolves the selected method into its action. For PayPal it waits
// for the checkout script; a load failure is logged and degrades to a notice.
func (w *Wizard) Checkout(ctx context.Context) (Action, error) {
	w.mu.Lock()
	intent := w.intent
	script := w.script
	w.mu.Unlock()

	if intent.Step != StepPaymentMethod {
		return Action{}, ErrWrongStep
	}

	amount := FormatAmount(intent.Amount)

	switch intent.PaymentMethod {
	case MethodCard:
		return Action{Kind: ActionCreateIntent, Request: &PaymentIntentRequest{
			Amount:       ToCents(intent.Amount),
			DonationType: intent.DonationType,
			DonorInfo:    intent.Donor,
		}}, nil

	case MethodPayPal:
		if w.opts.PayPalClientID == "" || script == nil {
			return Action{Kind: ActionNotice, Message: "PayPal Not Configured. Add PAYPAL_CLIENT_ID to the environment to enable PayPal donations."}, nil
		}

		if err := script.Wait(ctx); err != nil {
			w.lggr.Errorw("paypal checkout unavailable", "url", script.URL, "err", err)
			return Action{Kind: ActionNotice, Message: "PayPal is unavailable right now. Please choose another payment method."}, nil
		}

		buttons, err := script.Buttons(paypal.ButtonsConfig{
			Value:       amount,
			Currency:    "USD",
			Description: paypal.Description(w.opts.OrganizationName, intent.Donor.Name, intent.DonationType == DonationTypeMonthly),
		})
		if err != nil {
			w.lggr.Errorw("paypal buttons unavailable", "err", err)
			return Action{Kind: ActionNotice, Message: "PayPal is unavailable right now. Please choose another payment method."}, nil
		}

		order := buttons.CreateOrder()
		return Action{Kind: ActionPayPalButtons, Order: &order}, nil

	case MethodVenmo:
		if w.opts.VenmoUsername == "" {
			return Action{Kind: ActionAlert, Message: "Venmo username not configured. Please contact the administrator."}, nil
		}
		note := "Donation to " + w.opts.OrganizationName
		return Action{Kind: ActionRedirect, URL: VenmoURL(w.opts.VenmoUsername, amount, note)}, nil

	case MethodCashApp:
		if w.opts.CashAppUsername == "" {
			return Action{Kind: ActionAlert, Message: "Cash App username not configured. Please contact the administrator."}, nil
		}
		return Action{Kind: ActionRedirect, URL: CashAppURL(w.opts.CashAppUsername, amount)}, nil

	case MethodBank:
		name := intent.Donor.Name
		if name == "" {
			name = "Anonymous"
		}
		bank := w.opts.Bank
		return Action{
			Kind:      ActionInfo,
			Message:   "Please include your name in the reference field so we can thank you properly.",
			Bank:      &bank,
			Reference: "Donation - " + name,
		}, nil

	case MethodApple:
		return Action{Kind: ActionDisabled, Message: "Apple Pay integration is coming soon! For now, please use another payment method."}, nil

	default:
		return Action{}, ErrNoMethod
	}
}

// Approve records a successful payment and starts the timer that resets the
// wizard. The donation type survives the reset.
func (w *Wizard) Approve() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.intent.Status = StatusSuccess

	if w.resetTimer != nil {
		w.resetTimer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(w.opts.ResetDelay, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.timedReset(timer)
	})
	w.resetTimer = timer
}

// timedReset runs when timer fires. A timer that was replaced or cancelled
// after it fired no longer owns the wizard and does nothing. w.mu must be held.
func (w *Wizard) timedReset(timer *time.Timer) {
	if w.resetTimer != timer {
		return
	}

	w.intent = w.initialIntent(w.intent.DonationType)
	w.script = nil
	w.resetTimer = nil
}

// Fail records a payment error reported by the payment surface.
func (w *Wizard) Fail() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.intent.Status = StatusError
}

// Reset starts over immediately, cancelling a pending timed reset.
func (w *Wizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.resetTimer != nil {
		w.resetTimer.Stop()
		w.resetTimer = nil
	}
	w.intent = w.initialIntent(w.intent.DonationType)
	w.script = nil
}
