package donation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/vasaviseattle/site-tools/donation/internal/sqlite/ledger"
	"github.com/vasaviseattle/site-tools/logger"
)

// connectTimeout bounds the startup ping retries.
const connectTimeout = 30 * time.Second

// Ledger keeps a record of verified webhook outcomes. Redelivered events are
// stored once.
type Ledger struct {
	db      *sql.DB
	queries *ledger.Queries
	lggr    logger.Logger
}

// driverFor picks the database/sql driver from the DATABASE_URL scheme.
func driverFor(databaseURL string) (string, error) {
	switch {
	case strings.HasPrefix(databaseURL, "libsql://"):
		return "libsql", nil
	case strings.HasPrefix(databaseURL, "file:"):
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported DATABASE_URL: %s", databaseURL)
	}
}

// NewLedger opens the ledger at databaseURL and creates its tables. An empty
// URL returns ErrNotConfigured.
func NewLedger(ctx context.Context, databaseURL string, lggr logger.Logger) (*Ledger, error) {
	if databaseURL == "" {
		return nil, ErrNotConfigured
	}

	driver, err := driverFor(databaseURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("encountered an error connecting to the database: %w", err)
	}

	lggr = lggr.Named("ledger")

	operation := func() (struct{}, error) {
		err := db.PingContext(ctx)
		if err != nil {
			lggr.Warnw("database not reachable yet", "driver", driver, "err", err)
		}
		return struct{}{}, err
	}

	_, err = backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(connectTimeout),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("encountered an error reaching the database: %w", err)
	}

	if _, err := db.ExecContext(ctx, ledger.Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("encountered an error creating the ledger schema: %w", err)
	}

	lggr.Infow("webhook ledger ready", "driver", driver)

	return &Ledger{db: db, queries: ledger.New(db), lggr: lggr}, nil
}

func (l *Ledger) Record(ctx context.Context, event WebhookEvent) error {
	stored, err := l.queries.SaveWebhookEvent(ctx, ledger.SaveWebhookEventParams{
		ID:           event.ID,
		Type:         event.Type,
		IntentID:     event.IntentID,
		AmountCents:  event.AmountCents,
		Currency:     nullString(event.Currency),
		DonationType: nullString(string(event.DonationType)),
		DonorName:    nullString(event.DonorName),
		DonorEmail:   nullString(event.DonorEmail),
		ReceivedAt:   event.ReceivedAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encountered an error persisting a webhook event: %w", err)
	}

	if stored == 0 {
		l.lggr.Debugw("webhook event already recorded", "eventId", event.ID)
	}

	return nil
}

// Recent returns up to limit events, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]WebhookEvent, error) {
	rows, err := l.queries.ListWebhookEvents(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("encountered an error fetching webhook events: %w", err)
	}

	events := make([]WebhookEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, asWebhookEvent(row))
	}

	return events, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

func asWebhookEvent(row ledger.WebhookEvent) WebhookEvent {
	return WebhookEvent{
		ID:           row.ID,
		Type:         row.Type,
		IntentID:     row.IntentID,
		AmountCents:  row.AmountCents,
		Currency:     row.Currency.String,
		DonationType: DonationType(row.DonationType.String),
		DonorName:    row.DonorName.String,
		DonorEmail:   row.DonorEmail.String,
		ReceivedAt:   time.UnixMilli(row.ReceivedAt).UTC(),
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
