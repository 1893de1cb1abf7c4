package base

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/hashicorp-forge/hal/internal/config"
	"github.com/hashicorp-forge/hal/pkg/hal"
	"github.com/hashicorp-forge/hal/pkg/home"
	"github.com/hashicorp-forge/hal/pkg/resource"
)

// Command carries what every subcommand shares.
type Command struct {
	UI  cli.Ui
	Log hclog.Logger
}

// Env is the wired client stack built from a config file.
type Env struct {
	Config   *config.Config
	Client   *resource.Client
	Factory  *resource.Factory
	Resolver *hal.Resolver
	Log      hclog.Logger
}

// NewEnv loads the config at path (or HAL_CONFIG) and builds the client,
// handle factory and resolver from it.
func (c *Command) NewEnv(path string) (*Env, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	logger := c.Log
	if logger == nil {
		logger = cfg.Logger("hal")
	} else {
		logger.SetLevel(hclog.LevelFromString(cfg.LogLevel))
	}

	clientCfg, err := cfg.ClientConfig()
	if err != nil {
		return nil, err
	}
	client, err := resource.NewClient(clientCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("error creating client: %w", err)
	}

	factory := resource.NewFactory(client)
	resolver := hal.NewResolver(hal.Config{
		Options: cfg.HALOptions(),
		Fetcher: client,
		Factory: factory,
		Logger:  logger,
	})

	return &Env{
		Config:   cfg,
		Client:   client,
		Factory:  factory,
		Resolver: resolver,
		Log:      logger,
	}, nil
}

// LoadRegistry loads every configured entry point document.
func (e *Env) LoadRegistry(ctx context.Context) (*home.Registry, error) {
	return home.Load(ctx, home.LoadOptions{
		Sources:   e.Config.Sources(),
		Fetcher:   e.Client,
		Factory:   e.Factory,
		MediaType: e.Resolver.Options().MediaType,
		Logger:    e.Log,
	})
}

// Resolve runs resp through the interceptor. Responses without the
// hypermedia media type are returned as their raw payload.
func (e *Env) Resolve(ctx context.Context, resp *resource.Response, opts hal.ProcessOptions) (any, error) {
	res, ok, err := hal.NewInterceptor(e.Resolver, opts).Intercept(ctx, resp)
	if err != nil {
		return nil, err
	}
	if !ok {
		e.Log.Debug("response is not hypermedia, skipping resolution",
			"url", resp.Origin(),
			"media_type", resp.MediaType(),
		)
		return resp.Payload(), nil
	}
	return res, nil
}

// OutputJSON writes v as indented JSON.
func (c *Command) OutputJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding output: %w", err)
	}
	c.UI.Output(string(b))
	return nil
}
