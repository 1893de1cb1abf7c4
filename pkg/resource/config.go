package resource

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DefaultMediaType is the hypermedia media type requested by default.
const DefaultMediaType = "application/hal+json"

// Config contains configuration for the HTTP client used to fetch
// hypermedia documents.
//
// Example configuration (HCL):
//
//	http {
//	  base_url    = "https://api.example.com"
//	  timeout     = "30s"
//	  max_retries = 3
//	  retry_delay = "1s"
//	  tls_verify  = true
//	}
type Config struct {
	// BaseURL resolves request URLs that are not absolute. Optional.
	BaseURL string

	// MediaType is sent in the Accept header of fetches.
	// Default: application/hal+json
	MediaType string

	// Headers are added to every request.
	Headers map[string]string

	// TLSVerify controls TLS certificate verification.
	// Set to false only for development/testing with self-signed certs.
	TLSVerify *bool

	// Timeout for a single request attempt.
	// Default: 30 seconds
	Timeout time.Duration

	// MaxRetries for network errors and 5xx responses.
	// Default: 3
	MaxRetries int

	// RetryDelay is the initial delay between retries.
	// Default: 1 second
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	tlsVerify := true
	return &Config{
		MediaType:  DefaultMediaType,
		TLSVerify:  &tlsVerify,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: 1 * time.Second,
	}
}

// applyDefaults fills every zero value from DefaultConfig.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.MediaType == "" {
		c.MediaType = defaults.MediaType
	}
	if c.TLSVerify == nil {
		c.TLSVerify = defaults.TLSVerify
	}
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = defaults.RetryDelay
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.MediaType, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(1)).Error("must be positive")),
		validation.Field(&c.MaxRetries, validation.Min(0)),
		validation.Field(&c.RetryDelay, validation.Min(time.Duration(0))),
	); err != nil {
		return fmt.Errorf("invalid client config: %w", err)
	}

	if c.BaseURL != "" {
		parsedURL, err := url.Parse(c.BaseURL)
		if err != nil {
			return fmt.Errorf("invalid base_url: %w", err)
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return fmt.Errorf("base_url must use http or https scheme, got: %s", parsedURL.Scheme)
		}
	}

	return nil
}

// NewHTTPClient creates a configured HTTP client.
func (c *Config) NewHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	if c.TLSVerify != nil && !*c.TLSVerify {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	return &http.Client{
		Timeout:   c.Timeout,
		Transport: transport,
	}
}
