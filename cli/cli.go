package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"

	"github.com/vasaviseattle/site-tools/config"
	"github.com/vasaviseattle/site-tools/donation"
	donationhttp "github.com/vasaviseattle/site-tools/donation/http"
	drivehttp "github.com/vasaviseattle/site-tools/drive/http"
	"github.com/vasaviseattle/site-tools/logger"
	"github.com/vasaviseattle/site-tools/notify"
	"github.com/vasaviseattle/site-tools/paypal"
	"github.com/vasaviseattle/site-tools/widget"
	widgethttp "github.com/vasaviseattle/site-tools/widget/http"
)

const shutdownTimeout = 5 * time.Second

// Environment provides an abstraction around the execution environment
type Environment struct {
	Stderr io.Writer
	Stdout io.Writer
	Stdin  io.Reader
}

func (env *Environment) printJSON(v any) error {
	enc := json.NewEncoder(env.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func wizardOptions(site config.Site, cardEnabled bool) donation.WizardOptions {
	return donation.WizardOptions{
		OrganizationName: site.OrganizationName,
		PayPalClientID:   site.PayPalClientID,
		VenmoUsername:    site.VenmoUsername,
		CashAppUsername:  site.CashAppUsername,
		CardEnabled:      cardEnabled,
		Bank: donation.BankDetails{
			Bank:          site.BankName,
			AccountName:   site.BankAccountName,
			AccountNumber: site.BankAccountNumber,
			RoutingNumber: site.BankRoutingNumber,
		},
	}
}

type ServeCmd struct {
	Port string `help:"the port to listen on (defaults to PORT)."`
}

// sinks opens the optional webhook sinks. Neither is required; when one is
// configured but cannot be reached the server does not start.
func sinks(ctx context.Context, cfg config.Config, lggr logger.Logger) (donation.Sinks, func(), error) {
	var (
		out     donation.Sinks
		closers []func() error
	)

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				lggr.Errorw("failed to close webhook sink", "err", err)
			}
		}
	}

	ledger, err := donation.NewLedger(ctx, cfg.DatabaseURL, lggr)
	switch {
	case errors.Is(err, donation.ErrNotConfigured):
	case err != nil:
		return nil, closeAll, err
	default:
		out = append(out, ledger)
		closers = append(closers, ledger.Close)
	}

	publisher, err := notify.Dial(ctx, cfg.RabbitMQURL, lggr)
	switch {
	case errors.Is(err, donation.ErrNotConfigured):
	case err != nil:
		closeAll()
		return nil, func() {}, err
	default:
		out = append(out, publisher)
		closers = append(closers, publisher.Close)
	}

	return out, closeAll, nil
}

func accessLog(lggr logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		lggr.Infow("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"requestId", c.Writer.Header().Get(donationhttp.RequestIDHeader),
		)
	}
}

func (cmd *ServeCmd) Run(env *Environment, cfg config.Config, lggr logger.Logger, driveClient drivehttp.Client) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eventSinks, closeSinks, err := sinks(ctx, cfg, lggr)
	if err != nil {
		return err
	}
	defer closeSinks()

	processor := donationhttp.NewStripeProcessor(cfg.StripeSecretKey, cfg.StripeWebhookKey)
	if !processor.Configured() {
		lggr.Warnw("STRIPE_SECRET_KEY is not set; payment intents will fail")
	}
	if !processor.WebhooksConfigured() {
		lggr.Warnw("STRIPE_WEBHOOK_SECRET is not set; webhooks will be rejected")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), donationhttp.RequestID(), accessLog(lggr.Named("http")))

	api := r.Group("/api")
	{
		donationhttp.Register(api, processor, processor, eventSinks, wizardOptions(cfg.Site, processor.Configured()), lggr)
		widgethttp.Register(api, driveClient, cfg.Site.GoogleAPIKey, cfg.Site.Folder, cfg.Site.CalendarFeedID, cfg.Site.CalendarTimezone, lggr.Named("widget"))
	}

	handler := cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Stripe-Signature", donationhttp.RequestIDHeader},
		ExposedHeaders: []string{donationhttp.RequestIDHeader},
		MaxAge:         300,
	})(r)

	port := cmd.Port
	if port == "" {
		port = cfg.Port
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	lggr.Infow("Donation server running", "port", port, "sinks", len(eventSinks))

	select {
	case err := <-serveErr:
		return fmt.Errorf("listen error: %w", err)
	case <-ctx.Done():
	}

	lggr.Infow("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	lggr.Infow("Server exited gracefully")

	return nil
}

type FolderCmd struct {
	Kind   string `arg enum:"board-members,gallery,financials,past-events" help:"the widget to run (board-members, gallery, financials, past-events)."`
	Folder string `help:"a Drive folder URL or ID; defaults to the widget's configured folder."`
}

func (cmd *FolderCmd) Run(env *Environment, cfg config.Config, lggr logger.Logger, driveClient drivehttp.Client) error {
	kind, ok := widget.Kinds[cmd.Kind]
	if !ok {
		return fmt.Errorf("unknown widget %q", cmd.Kind)
	}

	w := widget.New(kind, driveClient, widget.Options{
		APIKey:        cfg.Site.GoogleAPIKey,
		DefaultFolder: cfg.Site.Folder(kind.FolderKey),
	}, lggr)

	state := w.Load(context.Background(), cmd.Folder)
	if err := env.printJSON(state); err != nil {
		return err
	}

	if state.Status == widget.StatusError {
		return errors.New(state.Message)
	}

	return nil
}

type DonateCmd struct {
	Type    string `default:"once" enum:"once,monthly" help:"once or monthly."`
	Amount  string `default:"100" help:"the amount in dollars, e.g. 50 or 12.50."`
	Name    string `required help:"the donor's name."`
	Email   string `required help:"the donor's email address."`
	Message string `help:"an optional message from the donor."`
	Method  string `required enum:"card,paypal,venmo,cashapp,apple,bank" help:"the payment method."`
	APIURL  string `name:"api-url" default:"http://localhost:5000" help:"the donation API server used for card payments."`
}

func (cmd *DonateCmd) Run(env *Environment, cfg config.Config, lggr logger.Logger, loader donation.ScriptLoader) error {
	ctx := context.Background()

	w := donation.NewWizard(wizardOptions(cfg.Site, true), loader, lggr)

	if err := w.SetDonationType(donation.DonationType(cmd.Type)); err != nil {
		return err
	}

	w.SetCustomAmount(cmd.Amount)
	if err := w.Next(); err != nil {
		return fmt.Errorf("invalid amount %q: %w", cmd.Amount, err)
	}

	w.SetDonor(donation.DonorInfo{Name: cmd.Name, Email: cmd.Email, Message: cmd.Message})
	if err := w.Next(); err != nil {
		return fmt.Errorf("donor name and email are required: %w", err)
	}

	if err := w.SelectMethod(ctx, donation.PaymentMethod(cmd.Method)); err != nil {
		return fmt.Errorf("%s: %w", cmd.Method, err)
	}

	action, err := w.Checkout(ctx)
	if err != nil {
		return err
	}

	if action.Kind == donation.ActionCreateIntent {
		client, err := donationhttp.NewAPIClient(cmd.APIURL)
		if err != nil {
			return err
		}

		clientSecret, err := client.CreatePaymentIntent(ctx, *action.Request)
		if err != nil {
			w.Fail()
			return err
		}

		return env.printJSON(map[string]any{"kind": action.Kind, "clientSecret": clientSecret})
	}

	return env.printJSON(action)
}

type EventsCmd struct {
	Limit int `default:"20" help:"the maximum number of events to list."`
}

func (cmd *EventsCmd) Run(env *Environment, cfg config.Config, lggr logger.Logger) error {
	ctx := context.Background()

	ledger, err := donation.NewLedger(ctx, cfg.DatabaseURL, lggr)
	if errors.Is(err, donation.ErrNotConfigured) {
		return fmt.Errorf("DATABASE_URL is not set: %w", err)
	}
	if err != nil {
		return err
	}
	defer ledger.Close()

	events, err := ledger.Recent(ctx, cmd.Limit)
	if err != nil {
		return err
	}

	return env.printJSON(events)
}

type CLI struct {
	Serve  ServeCmd  `cmd help:"Serves the donation API and the Drive-backed widget endpoints."`
	Folder FolderCmd `cmd help:"Loads one Drive-backed widget and prints its state."`
	Donate DonateCmd `cmd help:"Walks the donation wizard from flags and prints the payment action."`
	Events EventsCmd `cmd help:"Lists the most recent recorded webhook outcomes, newest first."`
}

func Run(env Environment) int {
	app := CLI{}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(env.Stderr, "failed to load configuration: %v\n", err)
		return 1
	}

	lggr, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(env.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = lggr.Sync() }()

	driveClient := drivehttp.NewDriveClient(cfg.Site.GoogleAPIKey)
	loader := paypal.NewLoader(nil, lggr)

	cntx := kong.Parse(&app,
		kong.Description("site tools"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	cntx.Bind(cfg)
	cntx.BindTo(lggr, (*logger.Logger)(nil))
	cntx.BindTo(driveClient, (*drivehttp.Client)(nil))
	cntx.BindTo(loader, (*donation.ScriptLoader)(nil))

	err = cntx.Run(&env)
	cntx.FatalIfErrorf(err)

	return 0
}
