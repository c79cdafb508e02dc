// Package ledgerclient talks to the personal-finance ledger service over
// HTTP. Requests are retried with backoff on connection errors, 429s and
// 5xx responses.
package ledgerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eshaffer321/ledger-tagger/internal/domain/ledger"
	"github.com/hashicorp/go-retryablehttp"
)

// Config holds client configuration
type Config struct {
	BaseURL    string
	Token      string
	MaxRetries int
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Client implements ledger.Client against the ledger REST API.
type Client struct {
	baseURL string
	token   string
	http    *retryablehttp.Client
	logger  *slog.Logger
}

// Compile-time check that Client implements ledger.Client
var _ ledger.Client = (*Client)(nil)

// New creates a client.
func New(cfg Config) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	// Hand the last response back so exhausted retries surface as a StatusError
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = nil
	if cfg.Logger != nil {
		rc.Logger = cfg.Logger
	}
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    rc,
		logger:  cfg.Logger,
	}
}

// FetchTransactions returns every transaction dated on or after since,
// split children included, following pagination cursors.
func (c *Client) FetchTransactions(ctx context.Context, since time.Time) ([]*ledger.Transaction, error) {
	var out []*ledger.Transaction
	cursor := ""
	for {
		q := url.Values{}
		if !since.IsZero() {
			q.Set("since", since.Format(dateLayout))
		}
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var page transactionsResponse
		if err := c.do(ctx, http.MethodGet, "/api/transactions?"+q.Encode(), nil, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch transactions: %w", err)
		}
		for _, dto := range page.Transactions {
			t, err := dto.toDomain()
			if err != nil {
				return nil, fmt.Errorf("invalid date on transaction %s: %w", dto.ID, err)
			}
			out = append(out, t)
		}

		c.logDebug("Fetched transaction page", "count", len(page.Transactions), "total", len(out))
		if page.NextCursor == "" {
			return out, nil
		}
		cursor = page.NextCursor
	}
}

// FetchCategories returns the ledger's category name to ID mapping.
func (c *Client) FetchCategories(ctx context.Context) (map[string]string, error) {
	var resp categoriesResponse
	if err := c.do(ctx, http.MethodGet, "/api/categories", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}
	out := make(map[string]string, len(resp.Categories))
	for _, cat := range resp.Categories {
		out[cat.Name] = cat.ID
	}
	return out, nil
}

// Edit updates one transaction in place.
func (c *Client) Edit(ctx context.Context, req ledger.EditRequest) error {
	path := "/api/transactions/" + url.PathEscape(req.ID)
	return c.do(ctx, http.MethodPatch, path, req, nil)
}

// Split replaces a transaction with children and returns their IDs in line order.
func (c *Client) Split(ctx context.Context, req ledger.SplitRequest) ([]string, error) {
	path := "/api/transactions/" + url.PathEscape(req.ParentID) + "/split"
	var resp splitResponse
	if err := c.do(ctx, http.MethodPost, path, newSplitRequestDTO(req), &resp); err != nil {
		return nil, err
	}
	return resp.ChildIDs, nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{Method: method, Path: strings.SplitN(path, "?", 2)[0], StatusCode: resp.StatusCode}
		var apiErr errorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil {
			statusErr.Message = apiErr.Error
		}
		return statusErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) logDebug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
