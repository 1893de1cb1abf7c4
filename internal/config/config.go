package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/hashicorp-forge/hal/pkg/hal"
	"github.com/hashicorp-forge/hal/pkg/halurl"
	"github.com/hashicorp-forge/hal/pkg/home"
	"github.com/hashicorp-forge/hal/pkg/resource"
)

const (
	// EnvConfig names the config file when no path is given.
	EnvConfig = "HAL_CONFIG"

	// EnvLogLevel overrides log_level.
	EnvLogLevel = "HAL_LOG_LEVEL"

	defaultLogLevel = "info"
)

// Config is the HCL configuration of the hal tooling.
type Config struct {
	// LogLevel is one of trace, debug, info, warn, error or off.
	LogLevel string `hcl:"log_level,optional" json:"log_level"`

	// HAL configures document processing.
	HAL *HAL `hcl:"hal,block" json:"hal"`

	// HTTP configures the fetch client.
	HTTP *HTTP `hcl:"http,block" json:"http"`

	// APIs declares the entry point documents loaded into the endpoint
	// registry.
	APIs []API `hcl:"api,block" json:"api"`

	// dir is the directory of the config file. Relative home locations
	// resolve against it.
	dir string
}

// HAL configures the hypermedia conventions. Omitted values use the HAL
// defaults.
type HAL struct {
	MediaType      string            `hcl:"media_type,optional" json:"media_type"`
	LinksKey       string            `hcl:"links_key,optional" json:"links_key"`
	EmbeddedKey    string            `hcl:"embedded_key,optional" json:"embedded_key"`
	SelfRel        string            `hcl:"self_rel,optional" json:"self_rel"`
	FetchAllKey    string            `hcl:"fetch_all_key,optional" json:"fetch_all_key"`
	ResourcesAttr  string            `hcl:"resources_attr,optional" json:"resources_attr"`
	EmbeddedAttr   string            `hcl:"embedded_attr,optional" json:"embedded_attr"`
	AbsentStatuses []int             `hcl:"absent_statuses,optional" json:"absent_statuses"`
	DefaultParams  map[string]string `hcl:"default_params,optional" json:"default_params"`
}

// HTTP configures the fetch client. Durations use time.ParseDuration
// syntax.
type HTTP struct {
	BaseURL    string            `hcl:"base_url,optional" json:"base_url"`
	Timeout    string            `hcl:"timeout,optional" json:"timeout"`
	MaxRetries *int              `hcl:"max_retries,optional" json:"max_retries"`
	RetryDelay string            `hcl:"retry_delay,optional" json:"retry_delay"`
	TLSVerify  *bool             `hcl:"tls_verify,optional" json:"tls_verify"`
	Headers    map[string]string `hcl:"headers,optional" json:"headers"`
}

// API is one "api" block: a name and the locations of its entry point
// documents, either URLs or file paths.
type API struct {
	Name string   `hcl:"name,label" json:"name"`
	Home []string `hcl:"home" json:"home"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the HCL file at path, falling back to the HAL_CONFIG
// environment variable and then to Default. HAL_LOG_LEVEL overrides the
// file's log level. The result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfig)
	}

	cfg := &Config{}
	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", path)
		}

		if err := hclsimple.DecodeFile(path, nil, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file: %w", err)
		}
		cfg.dir = filepath.Dir(path)
	}

	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		cfg.LogLevel = lvl
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.HAL == nil {
		c.HAL = &HAL{}
	}
	if c.HTTP == nil {
		c.HTTP = &HTTP{}
	}
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var result *multierror.Error

	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.Required, validation.By(validLogLevel)),
	); err != nil {
		result = multierror.Append(result, err)
	}

	if c.HTTP != nil {
		if err := c.HTTP.Validate(); err != nil {
			result = multierror.Append(result, fmt.Errorf("http: %w", err))
		}
	}

	if c.HAL != nil {
		if err := c.HAL.Validate(); err != nil {
			result = multierror.Append(result, fmt.Errorf("hal: %w", err))
		}
	}

	seen := make(map[string]bool, len(c.APIs))
	for _, api := range c.APIs {
		if err := api.Validate(); err != nil {
			result = multierror.Append(result, fmt.Errorf("api %q: %w", api.Name, err))
		}
		if seen[api.Name] {
			result = multierror.Append(result, fmt.Errorf("api %q: %w", api.Name, home.ErrDuplicateAPI))
		}
		seen[api.Name] = true
	}

	return result.ErrorOrNil()
}

// Validate checks the HTTP block.
func (h HTTP) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.BaseURL, validation.When(h.BaseURL != "", validation.By(absoluteURL))),
		validation.Field(&h.Timeout, validation.By(positiveDuration)),
		validation.Field(&h.RetryDelay, validation.By(positiveDuration)),
		validation.Field(&h.MaxRetries, validation.Min(0)),
	)
}

// Validate checks the HAL block.
func (h HAL) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.AbsentStatuses, validation.Each(validation.Min(400), validation.Max(599))),
	)
}

// Validate checks an api block.
func (a API) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Name, validation.Required),
		validation.Field(&a.Home, validation.Required, validation.Each(validation.Required)),
	)
}

// Logger returns the root logger for the configured level.
func (c *Config) Logger(name string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:  name,
		Level: hclog.LevelFromString(c.LogLevel),
	})
}

// ClientConfig converts the http block into a client configuration.
// Omitted values use resource.DefaultConfig.
func (c *Config) ClientConfig() (*resource.Config, error) {
	out := resource.DefaultConfig()
	if c.HAL != nil && c.HAL.MediaType != "" {
		out.MediaType = c.HAL.MediaType
	}

	h := c.HTTP
	if h == nil {
		return out, nil
	}

	out.BaseURL = h.BaseURL
	out.Headers = h.Headers
	if h.TLSVerify != nil {
		v := *h.TLSVerify
		out.TLSVerify = &v
	}
	if h.MaxRetries != nil {
		out.MaxRetries = *h.MaxRetries
	}
	if h.Timeout != "" {
		d, err := time.ParseDuration(h.Timeout)
		if err != nil {
			return nil, fmt.Errorf("http: timeout: %w", err)
		}
		out.Timeout = d
	}
	if h.RetryDelay != "" {
		d, err := time.ParseDuration(h.RetryDelay)
		if err != nil {
			return nil, fmt.Errorf("http: retry_delay: %w", err)
		}
		out.RetryDelay = d
	}

	return out, nil
}

// HALOptions converts the hal block into resolver options.
func (c *Config) HALOptions() hal.Options {
	opts := hal.DefaultOptions()

	h := c.HAL
	if h == nil {
		return opts
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&opts.MediaType, h.MediaType)
	set(&opts.LinksKey, h.LinksKey)
	set(&opts.EmbeddedKey, h.EmbeddedKey)
	set(&opts.SelfRel, h.SelfRel)
	set(&opts.FetchAllKey, h.FetchAllKey)
	set(&opts.ResourcesAttr, h.ResourcesAttr)
	set(&opts.EmbeddedAttr, h.EmbeddedAttr)
	if len(h.AbsentStatuses) > 0 {
		opts.AbsentStatuses = append([]int(nil), h.AbsentStatuses...)
	}
	if len(h.DefaultParams) > 0 {
		opts.DefaultParams = h.DefaultParams
	}

	return opts
}

// Sources returns the entry point sources in declaration order. Relative
// file locations resolve against the config file's directory.
func (c *Config) Sources() []home.Source {
	sources := make([]home.Source, 0, len(c.APIs))
	for _, api := range c.APIs {
		locs := make([]string, 0, len(api.Home))
		for _, loc := range api.Home {
			if !halurl.IsAbsolute(loc) && !filepath.IsAbs(loc) && c.dir != "" {
				loc = filepath.Join(c.dir, loc)
			}
			locs = append(locs, loc)
		}
		sources = append(sources, home.Source{API: api.Name, Locations: locs})
	}
	return sources
}

func validLogLevel(value interface{}) error {
	s, _ := value.(string)
	if hclog.LevelFromString(s) == hclog.NoLevel {
		return fmt.Errorf("must be one of trace, debug, info, warn, error or off")
	}
	return nil
}

func positiveDuration(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("must be a duration such as 30s or 1m")
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func absoluteURL(value interface{}) error {
	s, _ := value.(string)
	if !halurl.IsAbsolute(strings.TrimSpace(s)) {
		return fmt.Errorf("must be an absolute http or https URL")
	}
	return nil
}
