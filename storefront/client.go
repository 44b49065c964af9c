// Package storefront is a thin client for the shop's REST API. Callers get
// decoded JSON back; everything past transport and error handling is theirs.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"storefront-bot/config"
	"storefront-bot/observability"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	maxErrorLog      = 100
	defaultRetryWait = time.Second
	maxRetryWait     = 30 * time.Second
	maxErrorBody     = 300
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storefront api: %d %s", e.Status, e.Message)
}

// ErrorEntry is one failed call kept in the rolling log.
type ErrorEntry struct {
	At      time.Time `json:"at"`
	Method  string    `json:"method"`
	Path    string    `json:"path"`
	Status  int       `json:"status"`
	Message string    `json:"message"`
}

type Client struct {
	baseURL string
	apiKey  string
	shopID  string
	http    *http.Client
	limiter *rate.Limiter
	metrics *observability.Metrics
	logger  *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	errLog []ErrorEntry
}

func New(cfg config.StorefrontConfig, metrics *observability.Metrics, logger *zap.Logger) *Client {
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 5
	}
	if metrics == nil {
		metrics = observability.NewNoopMetrics()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		shopID:  cfg.ShopID,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		metrics: metrics,
		logger:  logger.Named("storefront"),
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Get fetches a shop-scoped resource into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

// InvoiceExists reports whether the shop knows the invoice.
func (c *Client) InvoiceExists(ctx context.Context, invoiceID string) (bool, error) {
	var raw json.RawMessage
	err := c.Get(ctx, "invoices/"+url.PathEscape(invoiceID), nil, &raw)
	var apiErr *APIError
	switch {
	case err == nil:
		return true, nil
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound:
		return false, nil
	}
	return false, err
}

// Errors returns the most recent failures, oldest first.
func (c *Client) Errors() []ErrorEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ErrorEntry(nil), c.errLog...)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = b
	}

	endpoint := fmt.Sprintf("%s/shops/%s/%s", c.baseURL, url.PathEscape(c.shopID), strings.TrimLeft(path, "/"))
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	status, data, retryAfter, err := c.send(ctx, method, endpoint, payload)
	if err == nil && status == http.StatusTooManyRequests {
		wait := retryAfter
		if wait <= 0 {
			wait = defaultRetryWait
		}
		wait = min(wait, maxRetryWait)
		c.logger.Warn("rate limited, retrying once", zap.String("path", path), zap.Duration("wait", wait))
		if err := c.sleep(ctx, wait); err != nil {
			return err
		}
		status, data, _, err = c.send(ctx, method, endpoint, payload)
	}
	if err != nil {
		c.record(method, path, 0, err.Error())
		return fmt.Errorf("storefront %s %s: %w", method, path, err)
	}

	if status < 200 || status > 299 {
		apiErr := &APIError{Status: status, Message: errorMessage(data)}
		c.record(method, path, status, apiErr.Message)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(unwrap(data), out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload []byte) (int, []byte, time.Duration, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, 0, err
	}

	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rd)
	if err != nil {
		return 0, nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, 0, err
	}
	return resp.StatusCode, data, parseRetryAfter(resp.Header.Get("Retry-After")), nil
}

func (c *Client) record(method, path string, status int, msg string) {
	c.metrics.StorefrontErr.WithLabelValues(strconv.Itoa(status)).Inc()
	c.logger.Warn("storefront call failed",
		zap.String("method", method), zap.String("path", path), zap.Int("status", status), zap.String("message", msg))

	c.mu.Lock()
	defer c.mu.Unlock()
	c.errLog = append(c.errLog, ErrorEntry{At: time.Now().UTC(), Method: method, Path: path, Status: status, Message: msg})
	if over := len(c.errLog) - maxErrorLog; over > 0 {
		c.errLog = append(c.errLog[:0], c.errLog[over:]...)
	}
}

// unwrap returns the "data" member of an enveloped response, or the body
// unchanged.
func unwrap(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return trimmed
	}
	if data, ok := env["data"]; ok && len(data) > 0 && string(data) != "null" {
		return data
	}
	return trimmed
}

func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	if msg == "" {
		msg = "empty response"
	}
	return msg
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(v); err == nil {
		return time.Until(at)
	}
	return 0
}
