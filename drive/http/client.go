package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/vasaviseattle/site-tools/drive"
)

const (
	DefaultBaseURL = "https://www.googleapis.com/drive/v3"

	// MaxPageSize is the largest page the Drive files.list call accepts.
	MaxPageSize = 1000
)

// Query describes one folder listing.
type Query struct {
	FolderID string
	// MimePrefix keeps files whose MIME type contains it, e.g. "image/".
	MimePrefix string
	// MimeType keeps files with exactly this MIME type.
	MimeType string
	OrderBy  string
	// Limit caps the number of files returned; 0 means no cap.
	Limit int
}

func (q Query) expression() string {
	clauses := []string{
		fmt.Sprintf("'%s' in parents", escape(q.FolderID)),
		"trashed = false",
	}

	if q.MimePrefix != "" {
		clauses = append(clauses, fmt.Sprintf("mimeType contains '%s'", escape(q.MimePrefix)))
	}

	if q.MimeType != "" {
		clauses = append(clauses, fmt.Sprintf("mimeType = '%s'", escape(q.MimeType)))
	}

	return strings.Join(clauses, " and ")
}

func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

type Client interface {
	ListFiles(context.Context, Query) ([]drive.File, error)
}

type driveClient struct {
	APIKey  string
	BaseURL string
	client  *http.Client
}

type Option func(*driveClient)

func WithBaseURL(baseURL string) Option {
	return func(c *driveClient) {
		c.BaseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *driveClient) {
		c.client = client
	}
}

// NewDriveClient returns a Drive client authenticated with an API key. An
// empty key is allowed; every call then fails with drive.ErrMissingAPIKey.
func NewDriveClient(apiKey string, opts ...Option) Client {
	c := &driveClient{
		APIKey:  strings.TrimSpace(apiKey),
		BaseURL: DefaultBaseURL,
		client:  &http.Client{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type fileList struct {
	NextPageToken string       `json:"nextPageToken"`
	Files         []drive.File `json:"files"`
}

// APIError is a non-2xx answer from the Drive API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Drive API error (%d). Ensure the folder and its files are shared as \"Anyone with the link\". Details: %s", e.StatusCode, e.Body)
}

func (c *driveClient) makeRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// ListFiles pages through the folder one request at a time, following the
// continuation token until it runs out or the query's limit is reached.
func (c *driveClient) ListFiles(ctx context.Context, q Query) ([]drive.File, error) {
	if c.APIKey == "" {
		return nil, drive.ErrMissingAPIKey
	}

	if q.FolderID == "" {
		return nil, drive.ErrMissingFolder
	}

	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "name"
	}

	var collected []drive.File
	pageToken := ""

	for {
		params := url.Values{}
		params.Set("key", c.APIKey)
		params.Set("q", q.expression())
		params.Set("fields", "nextPageToken, files(id,name,mimeType)")
		params.Set("pageSize", strconv.Itoa(MaxPageSize))
		params.Set("orderBy", orderBy)

		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		body, err := c.makeRequest(ctx, "/files", params)
		if err != nil {
			return nil, err
		}

		var page fileList
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal file list: %w", err)
		}

		for _, f := range page.Files {
			if q.Limit > 0 && len(collected) >= q.Limit {
				break
			}
			collected = append(collected, f)
		}

		pageToken = page.NextPageToken

		if pageToken == "" || (q.Limit > 0 && len(collected) >= q.Limit) {
			break
		}
	}

	return collected, nil
}
