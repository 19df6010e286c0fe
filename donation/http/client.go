package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vasaviseattle/site-tools/donation"
)

// Client talks to a running donation API server.
type Client interface {
	CreatePaymentIntent(context.Context, donation.PaymentIntentRequest) (string, error)
	Options(context.Context, donation.DonationType) (DonationOptions, error)
	Health(context.Context) error
}

// APIError is a non-2xx answer from the API server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

type apiClient struct {
	BaseURL string
	client  *http.Client
}

func NewAPIClient(baseURL string) (Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("missing API server URL")
	}

	return &apiClient{
		BaseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *apiClient) makeRequest(ctx context.Context, method, endpoint string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		message := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			message = errResp.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// CreatePaymentIntent validates req and returns the client secret for it.
func (c *apiClient) CreatePaymentIntent(ctx context.Context, req donation.PaymentIntentRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	var resp struct {
		ClientSecret string `json:"clientSecret"`
	}
	if err := c.makeRequest(ctx, http.MethodPost, "/api/create-payment-intent", req, &resp); err != nil {
		return "", err
	}

	if resp.ClientSecret == "" {
		return "", errors.New("API server returned an empty client secret")
	}

	return resp.ClientSecret, nil
}

func (c *apiClient) Options(ctx context.Context, t donation.DonationType) (DonationOptions, error) {
	params := url.Values{}
	params.Set("type", string(t))

	var options DonationOptions
	if err := c.makeRequest(ctx, http.MethodGet, "/api/donation/options?"+params.Encode(), nil, &options); err != nil {
		return DonationOptions{}, err
	}

	return options, nil
}

func (c *apiClient) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.makeRequest(ctx, http.MethodGet, "/api/health", nil, &resp); err != nil {
		return err
	}

	if resp.Status != "OK" {
		return fmt.Errorf("unexpected health status %q", resp.Status)
	}

	return nil
}
