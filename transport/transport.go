// Package transport is a thin, replaceable wrapper over an HTTP client
// that maps status codes to the SDK's closed error taxonomy and
// centralizes retry policy.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/constellation-network/sdk-go/pkg/config"
	"github.com/constellation-network/sdk-go/pkg/errs"
	"github.com/constellation-network/sdk-go/pkg/log"
)

// Response is the typed result of a Transport call.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Transport is the contract the rest of the SDK codes against; the
// default implementation is HTTPTransport, but callers may substitute
// their own (e.g. for tests or a non-net/http client).
type Transport interface {
	Request(ctx context.Context, method, url string, headers map[string]string, body []byte) (*Response, error)
}

// HTTPTransport is the default Transport, backed by a pooled
// *http.Client. It retries a default three attempts, with exponential
// backoff doubling from a base delay, retryable only on Timeout,
// ConnectionFailed, and HTTP 5xx.
type HTTPTransport struct {
	client *http.Client
	cfg    config.ClientConfig
	logger log.Logger
}

// New builds an HTTPTransport with a single connection pool sized per
// cfg: at most MaxConnsPerHost connections per host (100 by default) and
// MaxIdleConnsPerHost idle connections per host (30 by default). The
// number of connections across all hosts is not limited.
func New(cfg config.ClientConfig, logger log.Logger) *HTTPTransport {
	if logger == nil {
		logger = log.Noop()
	}
	transport := &http.Transport{
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
	}
	return &HTTPTransport{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		},
		cfg:    cfg,
		logger: logger,
	}
}

// Request performs method against url with the given headers/body,
// retrying per the configured policy. The returned error, when non-nil,
// is always an *errs.Error from the closed taxonomy.
func (t *HTTPTransport) Request(ctx context.Context, method, url string, headers map[string]string, body []byte) (*Response, error) {
	attempts := t.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(t.cfg.RetryBaseDelay) * math.Pow(2, float64(attempt-1)))
			t.logger.Debugf("transport: retrying %s %s (attempt %d) after %s", method, url, attempt+1, delay)
			select {
			case <-ctx.Done():
				return nil, errs.Wrap(errs.KindTimeout, "context cancelled before retry", ctx.Err())
			case <-time.After(delay):
			}
		}

		resp, err := t.once(ctx, method, url, headers, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (t *HTTPTransport) once(ctx context.Context, method, url string, headers map[string]string, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, errs.Wrap(errs.KindConnectionFailed, "build request", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errs.Wrap(errs.KindTimeout, "request deadline exceeded", err)
		}
		return nil, errs.Wrap(errs.KindConnectionFailed, fmt.Sprintf("%s %s", method, url), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidResponse, "read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errs.New(errs.KindHTTPError, fmt.Sprintf("%s %s returned %d", method, url, resp.StatusCode)).
			WithDetails(map[string]any{"status": resp.StatusCode, "body": string(respBody)})
	}

	return &Response{Status: resp.StatusCode, Headers: resp.Header, Body: respBody}, nil
}

func retryable(err error) bool {
	sdkErr, ok := err.(*errs.Error)
	if !ok {
		return false
	}
	switch sdkErr.Kind {
	case errs.KindTimeout, errs.KindConnectionFailed:
		return true
	case errs.KindHTTPError:
		if status, ok := sdkErr.Details["status"].(int); ok {
			return status >= 500
		}
	}
	return false
}
