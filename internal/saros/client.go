// Package saros fetches pool and position data from the Saros finance API
// and normalizes it into the domain model. Raw response shapes never leave
// this package.
package saros

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"dlmm-position-lab/internal/domain"
)

// DefaultBaseURL is the production Saros API endpoint.
const DefaultBaseURL = "https://api.saros.finance"

// DefaultTimeout bounds a single upstream request.
const DefaultTimeout = 30 * time.Second

// Client is an HTTP client for the Saros finance API. Each call issues
// exactly one upstream request: no caching, no retries.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *log.Logger
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL overrides the upstream base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithLogger sets the client's logger.
func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a Saros API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: DefaultTimeout},
		logger:  log.New(os.Stdout, "[saros] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Forward issues one upstream GET and returns the raw body on 2xx. Non-2xx
// statuses and transport failures are errors. The proxy endpoints relay the
// returned body verbatim; the fetchers below decode it.
func (c *Client) Forward(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("saros API error: status %d", resp.StatusCode)
	}
	return body, nil
}

// FetchPoolInfoChecked retrieves and normalizes pool data, surfacing the
// underlying error.
func (c *Client) FetchPoolInfoChecked(ctx context.Context, poolID, ownerID string) (*domain.PoolInfo, error) {
	query := url.Values{
		"page_num":  {"1"},
		"page_size": {"100"},
	}
	if poolID != "" {
		query.Set("pair_id", poolID)
	}
	if ownerID != "" {
		query.Set("user_id", ownerID)
	}

	body, err := c.Forward(ctx, "/api/pool-position", query)
	if err != nil {
		return nil, err
	}

	var resp rawPoolResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode pool response: %w", err)
	}
	if resp.Pool == nil {
		if len(resp.Data) == 0 {
			return nil, fmt.Errorf("pool %s not in response", poolID)
		}
		resp.Pool = &resp.Data[0].Pool
	}
	info := normalizePool(poolID, resp.Pool)
	return &info, nil
}

// FetchPoolInfo retrieves pool data, returning nil when the data is
// unavailable for any reason. Callers must treat nil as "data unavailable",
// not as an empty pool.
func (c *Client) FetchPoolInfo(ctx context.Context, poolID, ownerID string) *domain.PoolInfo {
	info, err := c.FetchPoolInfoChecked(ctx, poolID, ownerID)
	if err != nil {
		c.logger.Printf("fetch pool info %s: %v", poolID, err)
		return nil
	}
	return info
}

// FetchUserPositionsChecked retrieves and normalizes an owner's positions,
// surfacing the underlying error.
func (c *Client) FetchUserPositionsChecked(ctx context.Context, ownerID string) ([]domain.Position, error) {
	query := url.Values{
		"user_id":   {ownerID},
		"page_num":  {"1"},
		"page_size": {"100"},
	}

	body, err := c.Forward(ctx, "/api/bin-position", query)
	if err != nil {
		return nil, err
	}

	var resp rawPositionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode position response: %w", err)
	}

	positions := make([]domain.Position, 0, len(resp.Data))
	for i := range resp.Data {
		positions = append(positions, normalizePosition(&resp.Data[i]))
	}
	return positions, nil
}

// FetchUserPositions retrieves an owner's positions, returning an empty
// slice on any failure. The empty result does not distinguish "no
// positions" from "fetch failed"; use the Checked variant when that
// matters.
func (c *Client) FetchUserPositions(ctx context.Context, ownerID string) []domain.Position {
	positions, err := c.FetchUserPositionsChecked(ctx, ownerID)
	if err != nil {
		c.logger.Printf("fetch user positions %s: %v", ownerID, err)
		return []domain.Position{}
	}
	return positions
}
