package mempool

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"golang.org/x/time/rate"
)

var (
	// ErrRequestFailed is returned when the API could not be reached or
	// kept failing after all retry attempts.
	ErrRequestFailed = errors.New("mempool api request failed")

	// ErrRejected is returned when the API understood the request but
	// refused it, e.g. a broadcast of an invalid transaction.
	ErrRejected = errors.New("mempool api rejected request")
)

// Config holds configuration for the mempool.space client.
type Config struct {
	// BaseURL is the base URL for the mempool.space API.
	// Default: https://mempool.space/api
	BaseURL string

	// RateLimit is the number of requests per second allowed.
	// Default: 10
	RateLimit int

	// Timeout is the HTTP request timeout.
	// Default: 30 seconds
	Timeout time.Duration

	// RetryAttempts is the number of retry attempts for failed requests.
	// Default: 3
	RetryAttempts int

	// RetryDelay is the delay between retry attempts.
	// Default: 1 second
	RetryDelay time.Duration
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:       "https://mempool.space/api",
		RateLimit:     10,
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}
}

// Client is an HTTP client for the mempool.space API with rate limiting.
type Client struct {
	cfg *Config

	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// NewClient creates a new mempool.space API client.
func NewClient(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit)

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: limiter,
	}
}

// doRequest performs an HTTP request with rate limiting and retries.
// Transport failures and exhausted retries wrap ErrRequestFailed while
// definite refusals wrap ErrRejected.
func (c *Client) doRequest(ctx context.Context, method, path string,
	body []byte, contentType string) ([]byte, error) {

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + path

	var lastErr error
	for attempt := 0; attempt <= c.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			log.Debugf("Retrying %s %s (attempt %d): %v", method,
				path, attempt, lastErr)

			if err := sleepCtx(ctx, c.backoff(attempt, lastErr)); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %w",
				ErrRequestFailed, err)
		}

		var reqBody io.Reader
		if body != nil {
			reqBody = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		respBody, status, err := c.do(req)
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case status >= 200 && status < 300:
			return respBody, nil

		case status == http.StatusTooManyRequests:
			lastErr = errRateLimited

		case status >= 500:
			lastErr = fmt.Errorf("server error (%d): %s", status,
				respBody)

		default:
			return nil, fmt.Errorf("%w (%d): %s", ErrRejected,
				status, respBody)
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRequestFailed,
		c.cfg.RetryAttempts+1, lastErr)
}

var errRateLimited = errors.New("rate limited by server (429)")

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w",
			err)
	}

	return respBody, resp.StatusCode, nil
}

// backoff returns the delay before the given retry attempt. Server side
// rate limiting backs off twice as long.
func (c *Client) backoff(attempt int, lastErr error) time.Duration {
	delay := c.cfg.RetryDelay * time.Duration(attempt)
	if errors.Is(lastErr, errRateLimited) {
		delay *= 2
	}

	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetFeeEstimates retrieves fee estimates for different confirmation targets.
func (c *Client) GetFeeEstimates(ctx context.Context) (*FeeEstimates, error) {
	respBody, err := c.doRequest(
		ctx, http.MethodGet, "/v1/fees/recommended", nil, "",
	)
	if err != nil {
		return nil, err
	}

	var fees FeeEstimates
	if err := json.Unmarshal(respBody, &fees); err != nil {
		return nil, fmt.Errorf("failed to parse fee estimates: %w", err)
	}

	return &fees, nil
}

// BroadcastTransaction broadcasts a raw transaction to the network and
// returns the txid reported by the API.
func (c *Client) BroadcastTransaction(ctx context.Context,
	tx *wire.MsgTx) (*chainhash.Hash, error) {

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize transaction: %w", err)
	}
	txHex := hex.EncodeToString(buf.Bytes())

	respBody, err := c.doRequest(
		ctx, http.MethodPost, "/tx", []byte(txHex), "text/plain",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to broadcast transaction: %w", err)
	}

	txid, err := chainhash.NewHashFromStr(strings.TrimSpace(string(respBody)))
	if err != nil {
		return nil, fmt.Errorf("unexpected broadcast response %q: %w",
			respBody, err)
	}

	return txid, nil
}
