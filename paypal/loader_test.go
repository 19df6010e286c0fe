package paypal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasaviseattle/site-tools/logger"
)

func TestSDKURL(t *testing.T) {
	assert.Equal(t, "https://www.paypal.com/sdk/js?client-id=abc123&currency=USD", SDKURL("abc123", "USD"))
}

func TestLoad_IsMemoizedByURL(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte("window.paypal = {};"))
	}))
	defer srv.Close()

	loader := NewLoader(srv.Client(), logger.Test(t))
	ctx := context.Background()

	first := loader.Load(ctx, srv.URL+"/sdk.js")
	second := loader.Load(ctx, srv.URL+"/sdk.js")
	require.Same(t, first, second)

	require.NoError(t, first.Wait(ctx))
	require.NoError(t, second.Wait(ctx))
	assert.True(t, first.Loaded())
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))

	other := loader.Load(ctx, srv.URL+"/other.js")
	require.NotSame(t, first, other)
	require.NoError(t, other.Wait(ctx))
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestLoad_FailureIsReportedNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	loader := NewLoader(srv.Client(), logger.Test(t))
	ctx := context.Background()

	script := loader.Load(ctx, srv.URL+"/sdk.js")
	err := script.Wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.False(t, script.Loaded())

	_, err = script.Buttons(ButtonsConfig{Value: "10"})
	assert.Error(t, err)

	again := loader.Load(ctx, srv.URL+"/sdk.js")
	assert.Same(t, script, again)
	assert.Error(t, again.Wait(ctx))
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestButtons_BeforeLoadReturnsNotLoaded(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()
	defer close(release)

	loader := NewLoader(srv.Client(), logger.Nop())
	script := loader.Load(context.Background(), srv.URL)

	_, err := script.Buttons(ButtonsConfig{Value: "10"})
	assert.ErrorIs(t, err, ErrNotLoaded)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, script.Wait(ctx), context.DeadlineExceeded)
}

func TestButtons_CreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	loader := NewLoader(srv.Client(), logger.Test(t))
	script := loader.Load(context.Background(), srv.URL)
	require.NoError(t, script.Wait(context.Background()))

	buttons, err := script.Buttons(ButtonsConfig{
		Value:       "12.5",
		Description: Description("Vasavi Seattle", "", true),
	})
	require.NoError(t, err)

	order := buttons.CreateOrder()
	assert.Equal(t, IntentCapture, order.Intent)
	require.Len(t, order.PurchaseUnits, 1)
	assert.Equal(t, Amount{CurrencyCode: "USD", Value: "12.5"}, order.PurchaseUnits[0].Amount)
	assert.Equal(t, "Donation to Vasavi Seattle - Anonymous - Monthly", order.PurchaseUnits[0].Description)
}
