package kazanexpress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ketracker/backend/internal/domain"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	defaultRPS        = 5.0
	defaultBurst      = 10

	// maxBodySize caps how much of a response body is read
	maxBodySize = 32 << 20
)

// Config holds the marketplace endpoints and client limits
type Config struct {
	ProductURL string
	ReviewsURL string
	ActionsURL string
	GraphQLURL string
	Timeout    time.Duration
	MaxRetries int
	RPS        float64
	Burst      int
}

// Client handles communication with the KazanExpress REST and GraphQL APIs
type Client struct {
	httpClient  *http.Client
	cfg         Config
	iid         string
	rateLimiter *rate.Limiter
	logger      *slog.Logger
	debug       bool
}

// statusError is a non-200 upstream response
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%v: status %d", domain.ErrUpstream, e.Code)
}

func (e *statusError) Unwrap() error {
	return domain.ErrUpstream
}

// NewClient creates a new marketplace API client
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RPS <= 0 {
		cfg.RPS = defaultRPS
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cfg:         cfg,
		iid:         uuid.NewString(),
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		logger:      logger,
	}
}

// SetDebug enables logging of every request
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// exponentialBackoff returns the wait before the given retry attempt (1-based)
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// upstreamErr maps a transport failure to the domain taxonomy.
func upstreamErr(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
}

// doRequest executes a request, retrying network failures, 429 and 5xx responses
// with exponential backoff. It returns the body of a 200 response.
func (c *Client) doRequest(ctx context.Context, method, reqURL string, payload []byte) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, upstreamErr(ctx, ctx.Err())
			case <-time.After(exponentialBackoff(attempt - 1)):
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, upstreamErr(ctx, err)
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "KETracker/1.0")
		req.Header.Set("x-iid", c.iid)
		req.Header.Set("apollographql-client-name", "web-customers")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		if c.debug {
			c.logger.Debug("marketplace request", "method", method, "url", reqURL, "attempt", attempt)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = upstreamErr(ctx, err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
			c.logger.Warn("marketplace request error", "url", reqURL, "attempt", attempt, "error", err)
			continue
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		resp.Body.Close()
		if err != nil {
			lastErr = upstreamErr(ctx, err)
			continue
		}

		if resp.StatusCode == http.StatusOK {
			return data, nil
		}

		lastErr = &statusError{Code: resp.StatusCode, Body: string(data)}
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			return data, lastErr
		}
		c.logger.Warn("marketplace API error", "url", reqURL, "attempt", attempt, "status", resp.StatusCode)
	}

	return nil, lastErr
}

// FetchProductDetail retrieves the product document by id
func (c *Client) FetchProductDetail(ctx context.Context, productID int64) (*domain.ProductDetail, error) {
	reqURL := fmt.Sprintf("%s/%d", strings.TrimRight(c.cfg.ProductURL, "/"), productID)

	body, err := c.doRequest(ctx, http.MethodGet, reqURL, nil)
	var se *statusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return nil, fmt.Errorf("%w: product %d", domain.ErrProductNotFound, productID)
	}
	if err != nil && body == nil {
		return nil, err
	}

	var resp productResponse
	if jerr := json.Unmarshal(body, &resp); jerr != nil {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: decode product %d: %v", domain.ErrUpstream, productID, jerr)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, resp.Errors[0].DetailMessage)
	}
	if err != nil {
		return nil, err
	}
	if resp.Payload == nil || resp.Payload.Data == nil {
		return nil, fmt.Errorf("%w: product %d has no payload", domain.ErrUpstream, productID)
	}

	detail := mapProduct(resp.Payload.Data)
	return &detail, nil
}

// FetchReviews retrieves every review of a product
func (c *Client) FetchReviews(ctx context.Context, productID int64) ([]domain.ReviewRecord, error) {
	reqURL := fmt.Sprintf("%s/%d/reviews", strings.TrimRight(c.cfg.ReviewsURL, "/"), productID)

	body, err := c.doRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	var resp reviewsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode reviews of %d: %v", domain.ErrUpstream, productID, err)
	}

	reviews := make([]domain.ReviewRecord, 0, len(resp.Payload))
	for _, r := range resp.Payload {
		reviews = append(reviews, mapReview(r))
	}
	return reviews, nil
}

// FetchWeekOrders returns how many orders the product got this week, 0 when the
// marketplace shows no such badge
func (c *Client) FetchWeekOrders(ctx context.Context, productID int64) (int, error) {
	reqURL := fmt.Sprintf("%s/%d", strings.TrimRight(c.cfg.ActionsURL, "/"), productID)

	body, err := c.doRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, err
	}

	var actions []rawAction
	if err := json.Unmarshal(body, &actions); err != nil {
		return 0, fmt.Errorf("%w: decode actions of %d: %v", domain.ErrUpstream, productID, err)
	}
	if len(actions) == 0 {
		return 0, nil
	}
	return parseWeekOrders(actions[0].Text), nil
}

// FetchSearchPage runs one page of the full-text search
func (c *Client) FetchSearchPage(ctx context.Context, query string, offset, limit int) (*domain.SearchPage, error) {
	payload, err := json.Marshal(newSearchRequest(query, offset, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	body, err := c.doRequest(ctx, http.MethodPost, c.cfg.GraphQLURL, payload)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode search %q: %v", domain.ErrUpstream, query, err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("%w: search %q: %s", domain.ErrUpstream, query, resp.Errors[0].Message)
	}
	if resp.Data == nil || resp.Data.MakeSearch == nil {
		return nil, fmt.Errorf("%w: search %q returned no data", domain.ErrUpstream, query)
	}

	page := &domain.SearchPage{
		Cards: make([]domain.CatalogCard, 0, len(resp.Data.MakeSearch.Items)),
		Total: resp.Data.MakeSearch.Total,
	}
	for _, item := range resp.Data.MakeSearch.Items {
		page.Cards = append(page.Cards, mapCard(item.CatalogCard))
	}

	if c.debug {
		c.logger.Debug("search page", "query", query, "offset", offset, "cards", len(page.Cards), "total", page.Total)
	}
	return page, nil
}
