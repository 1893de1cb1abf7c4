package enter

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp-forge/hal/internal/cmd/base"
	"github.com/hashicorp-forge/hal/internal/cmd/commands/get"
	"github.com/hashicorp-forge/hal/pkg/resource"
)

type Command struct {
	*base.Command

	flagConfig    string
	flagAPI       string
	flagRel       string
	flagParams    base.StringMapValue
	flagFollow    string
	flagFollowAll bool
	flagRecursive bool
	flagNoSlash   bool
}

func (c *Command) Synopsis() string {
	return "Enter an API through a relation of its entry point"
}

func (c *Command) Help() string {
	return `Usage: halctl enter -api=NAME -rel=REL [options]

  Load the configured entry point documents, build a resource for the
  relation REL of API NAME, fetch it and print the resolved resource as
  JSON. Template variables of href-template relations are filled from
  -param.` +
		c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("enter", flag.ContinueOnError))

	if c.flagParams == nil {
		c.flagParams = base.StringMapValue{}
	}

	f.StringVar(
		&c.flagConfig, "config", "",
		"[HAL_CONFIG] Path to the HCL config file.",
	)
	f.StringVar(
		&c.flagAPI, "api", "",
		"(Required) API name as declared in the config.",
	)
	f.StringVar(
		&c.flagRel, "rel", "",
		"(Required) Relation of the API entry point.",
	)
	f.Var(
		c.flagParams, "param",
		"Parameter as key=value. Can be repeated.",
	)
	f.StringVar(
		&c.flagFollow, "follow", "",
		"Comma-separated relations to fetch and inline.",
	)
	f.BoolVar(
		&c.flagFollowAll, "follow-all", false,
		"Fetch and inline every relation except self.",
	)
	f.BoolVar(
		&c.flagRecursive, "recursive", false,
		"Apply the follow selection to fetched resources too.",
	)
	f.BoolVar(
		&c.flagNoSlash, "strip-trailing-slash", false,
		"Remove a trailing slash from the resource URL.",
	)

	return f
}

func (c *Command) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	if c.flagAPI == "" || c.flagRel == "" {
		c.UI.Error("-api and -rel are required")
		return 1
	}

	env, err := c.NewEnv(c.flagConfig)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	opts, err := get.ProcessOptions(c.flagFollow, c.flagFollowAll, c.flagRecursive, env.Resolver.Options().FetchAllKey)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reg, err := env.LoadRegistry(ctx)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error loading entry points: %v", err))
		return 1
	}

	api, err := reg.API(c.flagAPI)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	h, err := api.Enter(c.flagRel, c.flagParams, nil, resource.HandleOptions{
		StripTrailingSlashes: c.flagNoSlash,
	})
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	resp, err := h.Get(ctx, nil)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error fetching resource: %v", err))
		return 1
	}

	out, err := env.Resolve(ctx, resp, opts)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error resolving resource: %v", err))
		return 1
	}

	if err := c.OutputJSON(out); err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	return 0
}
