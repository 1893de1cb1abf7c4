package get

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hashicorp-forge/hal/internal/cmd/base"
	"github.com/hashicorp-forge/hal/pkg/hal"
)

type Command struct {
	*base.Command

	flagConfig    string
	flagFollow    string
	flagFollowAll bool
	flagRecursive bool
}

func (c *Command) Synopsis() string {
	return "Fetch and resolve a hypermedia resource"
}

func (c *Command) Help() string {
	return `Usage: halctl get [options] URL

  Fetch URL, resolve its links and embedded resources, and print the
  resolved resource as JSON. Relations selected with -follow or
  -follow-all are fetched and inlined under their relation name.` +
		c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("get", flag.ContinueOnError))

	f.StringVar(
		&c.flagConfig, "config", "",
		"[HAL_CONFIG] Path to the HCL config file.",
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

	return f
}

func (c *Command) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	args = f.Args()
	if len(args) != 1 {
		c.UI.Error("expected exactly one URL argument")
		return 1
	}
	if c.flagFollowAll && c.flagFollow != "" {
		c.UI.Error("-follow and -follow-all are mutually exclusive")
		return 1
	}

	env, err := c.NewEnv(c.flagConfig)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	opts, err := ProcessOptions(c.flagFollow, c.flagFollowAll, c.flagRecursive, env.Resolver.Options().FetchAllKey)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	resp, err := env.Client.Fetch(ctx, args[0])
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

// ProcessOptions builds resolver options from the follow flags.
func ProcessOptions(follow string, followAll, recursive bool, fetchAllKey string) (hal.ProcessOptions, error) {
	var selector any
	switch {
	case followAll:
		selector = fetchAllKey
	case follow != "":
		var rels []string
		for _, rel := range strings.Split(follow, ",") {
			rel = strings.TrimSpace(rel)
			if rel == "" {
				return hal.ProcessOptions{}, fmt.Errorf("-follow contains an empty relation name")
			}
			rels = append(rels, rel)
		}
		selector = rels
	}

	sel, err := hal.ParseFollow(selector, fetchAllKey)
	if err != nil {
		return hal.ProcessOptions{}, err
	}

	return hal.ProcessOptions{Follow: sel, Recursive: recursive}, nil
}
