package donation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/vasaviseattle/site-tools/logger"
	"github.com/vasaviseattle/site-tools/paypal"
)

// recordingLoader serves every script from srv and remembers the requested URLs.
type recordingLoader struct {
	loader *paypal.Loader
	srv    *httptest.Server
	urls   []string
}

func newRecordingLoader(t *testing.T, status int) *recordingLoader {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	return &recordingLoader{loader: paypal.NewLoader(srv.Client(), logger.Nop()), srv: srv}
}

func (l *recordingLoader) Load(ctx context.Context, url string) *paypal.Script {
	l.urls = append(l.urls, url)
	return l.loader.Load(ctx, l.srv.URL)
}

func testOptions() WizardOptions {
	return WizardOptions{
		OrganizationName: "Vasavi Seattle",
		PayPalClientID:   "client-123",
		VenmoUsername:    "vasavi",
		CashAppUsername:  "$vasavi",
		Bank: BankDetails{
			Bank:          "First Bank",
			AccountName:   "Vasavi Seattle",
			AccountNumber: "1234",
			RoutingNumber: "5678",
		},
	}
}

// toPaymentStep moves the wizard to the payment step with a complete donor.
func toPaymentStep(t *testing.T, w *Wizard) {
	t.Helper()
	require.NoError(t, w.Next())
	w.SetDonor(DonorInfo{Name: "Asha", Email: "asha@example.com"})
	require.NoError(t, w.Next())
	require.Equal(t, StepPaymentMethod, w.Snapshot().Step)
}

func TestWizard_Defaults(t *testing.T) {
	w := NewWizard(testOptions(), nil, logger.Test(t))

	snap := w.Snapshot()
	assert.Equal(t, StepAmount, snap.Step)
	assert.Equal(t, DonationTypeOnce, snap.DonationType)
	assert.True(t, decimal.NewFromInt(100).Equal(snap.Amount))
	assert.Equal(t, MethodNone, snap.PaymentMethod)
	assert.Equal(t, StatusIdle, snap.Status)
	assert.True(t, w.CanContinue())
}

func TestWizard_CustomAmount(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected decimal.Decimal
	}{
		{"whole", "25", decimal.NewFromInt(25)},
		{"fraction", "12.50", decimal.RequireFromString("12.5")},
		{"padded", " 40 ", decimal.NewFromInt(40)},
		{"not a number", "abc", decimal.Zero},
		{"zero", "0", decimal.Zero},
		{"negative", "-5", decimal.Zero},
		{"empty", "", decimal.Zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWizard(testOptions(), nil, logger.Test(t))
			w.EnableCustomAmount()
			w.SetCustomAmount(tt.text)

			snap := w.Snapshot()
			assert.True(t, tt.expected.Equal(snap.Amount), "got %s", snap.Amount)
			assert.Equal(t, snap.Amount.IsPositive(), w.CanContinue())
		})
	}
}

func TestWizard_PresetClearsCustom(t *testing.T) {
	w := NewWizard(testOptions(), nil, logger.Test(t))
	w.SetCustomAmount("7")
	w.SelectPreset(150)

	snap := w.Snapshot()
	assert.False(t, snap.CustomActive)
	assert.Empty(t, snap.CustomAmount)
	assert.True(t, decimal.NewFromInt(150).Equal(snap.Amount))
}

func TestWizard_NextIsGated(t *testing.T) {
	w := NewWizard(testOptions(), nil, logger.Test(t))

	w.SetCustomAmount("nope")
	assert.ErrorIs(t, w.Next(), ErrStepBlocked)
	assert.Equal(t, StepAmount, w.Snapshot().Step)

	w.SelectPreset(50)
	require.NoError(t, w.Next())
	assert.Equal(t, StepDonorInfo, w.Snapshot().Step)

	w.SetDonor(DonorInfo{Name: "Asha"})
	assert.ErrorIs(t, w.Next(), ErrStepBlocked)

	w.SetDonor(DonorInfo{Name: "Asha", Email: "   "})
	assert.ErrorIs(t, w.Next(), ErrStepBlocked)

	w.SetDonor(DonorInfo{Name: "Asha", Email: "asha@example.com"})
	require.NoError(t, w.Next())
	assert.Equal(t, StepPaymentMethod, w.Snapshot().Step)

	assert.ErrorIs(t, w.Next(), ErrStepBlocked)
}

func TestWizard_BackKeepsState(t *testing.T) {
	w := NewWizard(testOptions(), nil, logger.Test(t))
	assert.False(t, w.Back())

	toPaymentStep(t, w)
	require.NoError(t, w.SelectMethod(context.Background(), MethodVenmo))

	assert.True(t, w.Back())
	assert.True(t, w.Back())
	assert.False(t, w.Back())

	snap := w.Snapshot()
	assert.Equal(t, StepAmount, snap.Step)
	assert.Equal(t, "Asha", snap.Donor.Name)
	assert.Equal(t, MethodVenmo, snap.PaymentMethod)
}

func TestWizard_AvailableMethods(t *testing.T) {
	w := NewWizard(testOptions(), nil, logger.Test(t))
	assert.Equal(t, []PaymentMethod{MethodPayPal, MethodVenmo, MethodCashApp, MethodApple, MethodBank}, w.AvailableMethods())

	require.NoError(t, w.SetDonationType(DonationTypeMonthly))
	assert.Equal(t, []PaymentMethod{MethodPayPal}, w.AvailableMethods())

	assert.Error(t, w.SetDonationType("weekly"))
}

func TestWizard_MonthlyClearsIneligibleMethod(t *testing.T) {
	w := NewWizard(testOptions(), nil, logger.Test(t))
	toPaymentStep(t, w)

	ctx := context.Background()
	require.NoError(t, w.SelectMethod(ctx, MethodBank))

	require.NoError(t, w.SetDonationType(DonationTypeMonthly))
	assert.Equal(t, MethodNone, w.Snapshot().PaymentMethod)
	assert.ErrorIs(t, w.SelectMethod(ctx, MethodVenmo), ErrMethodUnavailable)
}

func TestWizard_SelectMethodOnlyOnPaymentStep(t *testing.T) {
	w := NewWizard(testOptions(), nil, logger.Test(t))
	assert.ErrorIs(t, w.SelectMethod(context.Background(), MethodVenmo), ErrWrongStep)
}

func TestWizard_CardRequiresOptIn(t *testing.T) {
	ctx := context.Background()

	w := NewWizard(testOptions(), nil, logger.Test(t))
	toPaymentStep(t, w)
	assert.ErrorIs(t, w.SelectMethod(ctx, MethodCard), ErrMethodUnavailable)
	assert.NotContains(t, w.CheckoutMethods(), MethodCard)

	opts := testOptions()
	opts.CardEnabled = true
	w = NewWizard(opts, nil, logger.Test(t))
	w.SetCustomAmount("12.345")
	toPaymentStep(t, w)
	require.NoError(t, w.SelectMethod(ctx, MethodCard))
	assert.Equal(t, MethodCard, w.CheckoutMethods()[0])

	action, err := w.Checkout(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionCreateIntent, action.Kind)
	require.NotNil(t, action.Request)
	assert.EqualValues(t, 1235, action.Request.Amount)
	assert.Equal(t, DonationTypeOnce, action.Request.DonationType)
	assert.Equal(t, "Asha", action.Request.DonorInfo.Name)
}

func TestWizard_CheckoutRedirects(t *testing.T) {
	ctx := context.Background()
	w := NewWizard(testOptions(), nil, logger.Test(t))
	w.SetCustomAmount("25")
	toPaymentStep(t, w)

	require.NoError(t, w.SelectMethod(ctx, MethodVenmo))
	action, err := w.Checkout(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionRedirect, action.Kind)
	assert.Equal(t, "https://venmo.com/vasavi?txn=pay&recipients=vasavi&amount=25&note=Donation+to+Vasavi+Seattle", action.URL)

	require.NoError(t, w.SelectMethod(ctx, MethodCashApp))
	action, err = w.Checkout(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionRedirect, action.Kind)
	assert.Equal(t, "https://cash.app/$vasavi/25", action.URL)
}

func TestWizard_CheckoutUnconfiguredWallets(t *testing.T) {
	ctx := context.Background()
	opts := testOptions()
	opts.VenmoUsername = ""
	opts.CashAppUsername = ""

	w := NewWizard(opts, nil, logger.Test(t))
	toPaymentStep(t, w)

	require.NoError(t, w.SelectMethod(ctx, MethodVenmo))
	action, err := w.Checkout(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionAlert, action.Kind)
	assert.Equal(t, "Venmo username not configured. Please contact the administrator.", action.Message)
	assert.Empty(t, action.URL)

	require.NoError(t, w.SelectMethod(ctx, MethodCashApp))
	action, err = w.Checkout(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionAlert, action.Kind)
	assert.Contains(t, action.Message, "Cash App username not configured")
}

func TestWizard_CheckoutBankAndApple(t *testing.T) {
	ctx := context.Background()
	w := NewWizard(testOptions(), nil, logger.Test(t))
	toPaymentStep(t, w)

	require.NoError(t, w.SelectMethod(ctx, MethodBank))
	action, err := w.Checkout(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionInfo, action.Kind)
	assert.Equal(t, "Donation - Asha", action.Reference)
	require.NotNil(t, action.Bank)
	assert.Equal(t, "1234", action.Bank.AccountNumber)

	require.NoError(t, w.SelectMethod(ctx, MethodApple))
	action, err = w.Checkout(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionDisabled, action.Kind)
	assert.Contains(t, action.Message, "coming soon")
}

func TestWizard_CheckoutWithoutMethod(t *testing.T) {
	w := NewWizard(testOptions(), nil, logger.Test(t))
	_, err := w.Checkout(context.Background())
	assert.ErrorIs(t, err, ErrWrongStep)

	toPaymentStep(t, w)
	_, err = w.Checkout(context.Background())
	assert.ErrorIs(t, err, ErrNoMethod)
}

func TestWizard_PayPal(t *testing.T) {
	ctx := context.Background()
	loader := newRecordingLoader(t, http.StatusOK)

	w := NewWizard(testOptions(), loader, logger.Test(t))
	require.NoError(t, w.SetDonationType(DonationTypeMonthly))
	w.SetCustomAmount("30")
	toPaymentStep(t, w)

	require.NoError(t, w.SelectMethod(ctx, MethodPayPal))
	require.Equal(t, []string{"https://www.paypal.com/sdk/js?client-id=client-123&currency=USD"}, loader.urls)

	action, err := w.Checkout(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionPayPalButtons, action.Kind)
	require.NotNil(t, action.Order)
	assert.Equal(t, paypal.IntentCapture, action.Order.Intent)
	assert.Equal(t, "30", action.Order.PurchaseUnits[0].Amount.Value)
	assert.Equal(t, "Donation to Vasavi Seattle - Asha - Monthly", action.Order.PurchaseUnits[0].Description)
}

func TestWizard_PayPalNotConfigured(t *testing.T) {
	ctx := context.Background()
	loader := newRecordingLoader(t, http.StatusOK)
	opts := testOptions()
	opts.PayPalClientID = ""

	w := NewWizard(opts, loader, logger.Test(t))
	toPaymentStep(t, w)
	require.NoError(t, w.SelectMethod(ctx, MethodPayPal))
	assert.Empty(t, loader.urls)

	action, err := w.Checkout(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionNotice, action.Kind)
	assert.Contains(t, action.Message, "PayPal Not Configured")
}

func TestWizard_PayPalLoadFailure(t *testing.T) {
	ctx := context.Background()
	loader := newRecordingLoader(t, http.StatusInternalServerError)

	lggr, logs := logger.TestObserved(t, zapcore.ErrorLevel)
	w := NewWizard(testOptions(), loader, lggr)
	toPaymentStep(t, w)
	require.NoError(t, w.SelectMethod(ctx, MethodPayPal))

	action, err := w.Checkout(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionNotice, action.Kind)
	assert.Equal(t, StatusIdle, w.Snapshot().Status)
	assert.Equal(t, 1, logs.FilterMessage("paypal checkout unavailable").Len())
}

func TestWizard_ApproveResetsAfterDelay(t *testing.T) {
	opts := testOptions()
	opts.ResetDelay = 10 * time.Millisecond

	w := NewWizard(opts, nil, logger.Test(t))
	require.NoError(t, w.SetDonationType(DonationTypeMonthly))
	w.SelectPreset(200)
	toPaymentStep(t, w)

	w.Approve()
	assert.Equal(t, StatusSuccess, w.Snapshot().Status)

	require.Eventually(t, func() bool {
		return w.Snapshot().Step == StepAmount
	}, time.Second, 5*time.Millisecond)

	snap := w.Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Equal(t, DonationTypeMonthly, snap.DonationType)
	assert.True(t, decimal.NewFromInt(DefaultAmount).Equal(snap.Amount))
	assert.Empty(t, snap.Donor.Name)
}

func TestWizard_ResetCancelsPendingReset(t *testing.T) {
	opts := testOptions()
	opts.ResetDelay = 20 * time.Millisecond

	w := NewWizard(opts, nil, logger.Test(t))
	toPaymentStep(t, w)
	w.Approve()
	w.Reset()

	require.NoError(t, w.Next())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StepDonorInfo, w.Snapshot().Step)
}

// A timer whose callback already fired cannot be stopped; once it gets the
// lock it must leave a newer approval and a manual reset alone.
func TestWizard_FiredTimerAfterReapproveOrReset(t *testing.T) {
	opts := testOptions()
	opts.ResetDelay = time.Hour

	w := NewWizard(opts, nil, logger.Test(t))
	toPaymentStep(t, w)

	w.Approve()
	w.mu.Lock()
	fired := w.resetTimer
	w.mu.Unlock()

	w.Approve()
	w.mu.Lock()
	current := w.resetTimer
	w.timedReset(fired)
	assert.Same(t, current, w.resetTimer)
	w.mu.Unlock()

	snap := w.Snapshot()
	assert.Equal(t, StatusSuccess, snap.Status)
	assert.Equal(t, StepPaymentMethod, snap.Step)

	w.Reset()
	toPaymentStep(t, w)
	w.mu.Lock()
	w.timedReset(current)
	assert.Nil(t, w.resetTimer)
	w.mu.Unlock()
	assert.Equal(t, StepPaymentMethod, w.Snapshot().Step)

	w.Approve()
	w.mu.Lock()
	latest := w.resetTimer
	latest.Stop()
	w.timedReset(latest)
	w.mu.Unlock()
	assert.Equal(t, StepAmount, w.Snapshot().Step)
}

func TestWizard_Fail(t *testing.T) {
	w := NewWizard(testOptions(), nil, logger.Test(t))
	toPaymentStep(t, w)
	w.Fail()

	snap := w.Snapshot()
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, StepPaymentMethod, snap.Step)
}
