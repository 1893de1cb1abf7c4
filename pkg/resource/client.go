package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp-forge/hal/pkg/halurl"
)

// maxErrorBody caps how much of an error response body ends up in errors.
const maxErrorBody = 512

// Doer performs a single HTTP exchange and decodes its JSON body.
type Doer interface {
	Do(ctx context.Context, method, url string, header http.Header, body any) (*Response, error)
}

// Client is the HTTP fetch capability. Network errors and 5xx responses are
// retried with exponential backoff; every other non-2xx status is returned
// as a *StatusError without retrying.
type Client struct {
	config *Config
	client *http.Client
	logger hclog.Logger
}

var _ Doer = (*Client)(nil)

// NewClient creates a new client. A nil config uses DefaultConfig.
func NewClient(cfg *Config, logger hclog.Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &Client{
		config: cfg,
		client: cfg.NewHTTPClient(),
		logger: logger.Named("client"),
	}, nil
}

// MediaType returns the hypermedia media type this client requests.
func (c *Client) MediaType() string {
	return c.config.MediaType
}

// Fetch issues a GET for url asking for the hypermedia media type.
func (c *Client) Fetch(ctx context.Context, url string) (*Response, error) {
	header := http.Header{}
	header.Set("Accept", c.config.MediaType+", application/json;q=0.9")
	return c.Do(ctx, http.MethodGet, url, header, nil)
}

// Do executes an HTTP request with retry logic and error handling.
func (c *Client) Do(ctx context.Context, method, url string, header http.Header, body any) (*Response, error) {
	endpoint := c.resolve(url)

	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	requestID := uuid.NewString()

	var result *Response
	operation := func() error {
		var bodyReader io.Reader
		if bodyBytes != nil {
			bodyReader = bytes.NewReader(bodyBytes)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}

		for k, v := range c.config.Headers {
			req.Header.Set(k, v)
		}
		// Per-call headers replace configured ones of the same name.
		for k, vs := range header {
			req.Header.Del(k)
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		if req.Header.Get("Accept") == "" {
			req.Header.Set("Accept", "application/json")
		}
		if bodyBytes != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("X-Request-ID", requestID)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			statusErr := &StatusError{
				Method:     method,
				URL:        endpoint,
				StatusCode: resp.StatusCode,
				Body:       truncate(string(respBody), maxErrorBody),
			}
			if resp.StatusCode >= 500 {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}

		r := &Response{
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
		}
		if len(bytes.TrimSpace(respBody)) > 0 {
			if err := json.Unmarshal(respBody, &r.Data); err != nil {
				return backoff.Permanent(fmt.Errorf("failed to decode response from %s: %w", endpoint, err))
			}
		}

		result = r
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("retrying request",
			"method", method,
			"url", endpoint,
			"request_id", requestID,
			"wait", wait,
			"error", err,
		)
	}

	if err := backoff.RetryNotify(operation, c.newBackOff(ctx), notify); err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}

	c.logger.Trace("request complete",
		"method", method,
		"url", endpoint,
		"status", result.StatusCode,
		"request_id", requestID,
	)

	return result, nil
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.config.RetryDelay
	eb.MaxElapsedTime = 0

	var b backoff.BackOff = eb
	if c.config.MaxRetries >= 0 {
		b = backoff.WithMaxRetries(b, uint64(c.config.MaxRetries))
	}
	return backoff.WithContext(b, ctx)
}

// resolve joins url with the configured base URL when url is not absolute.
func (c *Client) resolve(url string) string {
	if c.config.BaseURL == "" || halurl.IsAbsolute(url) {
		return url
	}
	return halurl.ToAbsoluteURL(url, c.config.BaseURL)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
