package paypal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/vasaviseattle/site-tools/logger"
)

const sdkBaseURL = "https://www.paypal.com/sdk/js"

var ErrNotLoaded = errors.New("paypal script has not finished loading")

// SDKURL is the checkout SDK script URL for a client ID.
func SDKURL(clientID, currency string) string {
	params := url.Values{}
	params.Set("client-id", clientID)
	params.Set("currency", currency)
	return sdkBaseURL + "?" + params.Encode()
}

// Loader fetches checkout scripts once per URL and hands every caller the
// same Script handle.
type Loader struct {
	client *http.Client
	lggr   logger.Logger

	mu      sync.Mutex
	scripts map[string]*Script
}

func NewLoader(client *http.Client, lggr logger.Logger) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &Loader{
		client:  client,
		lggr:    lggr.Named("paypal"),
		scripts: map[string]*Script{},
	}
}

// Load starts fetching scriptURL unless an earlier call already did. The
// fetch outlives ctx's cancellation so later callers can still share it.
// A failed load stays failed; there is no automatic retry.
func (l *Loader) Load(ctx context.Context, scriptURL string) *Script {
	l.mu.Lock()
	defer l.mu.Unlock()

	if s, ok := l.scripts[scriptURL]; ok {
		return s
	}

	s := &Script{URL: scriptURL, done: make(chan struct{})}
	l.scripts[scriptURL] = s

	go l.fetch(context.WithoutCancel(ctx), s)

	return s
}

func (l *Loader) fetch(ctx context.Context, s *Script) {
	defer close(s.done)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		s.err = fmt.Errorf("failed to create request: %w", err)
		return
	}

	resp, err := l.client.Do(req)
	if err != nil {
		s.err = fmt.Errorf("failed to load script: %w", err)
		l.lggr.Errorw("paypal script load failed", "url", s.URL, "err", err)
		return
	}
	defer resp.Body.Close()

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		s.err = fmt.Errorf("failed to read script: %w", err)
		l.lggr.Errorw("paypal script load failed", "url", s.URL, "err", err)
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.err = fmt.Errorf("failed to load script: HTTP %d", resp.StatusCode)
		l.lggr.Errorw("paypal script load failed", "url", s.URL, "status", resp.StatusCode)
		return
	}

	l.lggr.Debugw("paypal script loaded", "url", s.URL)
}

// Script is a handle on one script load.
type Script struct {
	URL string

	done chan struct{}
	err  error
}

// Wait blocks until the load finishes or ctx ends.
func (s *Script) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Loaded reports whether the script finished loading successfully.
func (s *Script) Loaded() bool {
	select {
	case <-s.done:
		return s.err == nil
	default:
		return false
	}
}

// Buttons returns the checkout buttons for cfg. It never blocks: before the
// script is ready it returns ErrNotLoaded, after a failed load the load error.
func (s *Script) Buttons(cfg ButtonsConfig) (*Buttons, error) {
	select {
	case <-s.done:
		if s.err != nil {
			return nil, s.err
		}
		return &Buttons{cfg: cfg}, nil
	default:
		return nil, ErrNotLoaded
	}
}
