package homecmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/hashicorp-forge/hal/internal/cmd/base"
)

type Command struct {
	*base.Command

	flagConfig string
}

func (c *Command) Synopsis() string {
	return "List the relations of the configured API entry points"
}

func (c *Command) Help() string {
	return `Usage: halctl home [options]

  Load every entry point document declared with an "api" block and list
  each API with its relations.` +
		c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("home", flag.ContinueOnError))

	f.StringVar(
		&c.flagConfig, "config", "",
		"[HAL_CONFIG] Path to the HCL config file.",
	)

	return f
}

func (c *Command) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	env, err := c.NewEnv(c.flagConfig)
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

	names := reg.APIs()
	if len(names) == 0 {
		c.UI.Warn("No APIs configured")
		return 0
	}

	for _, name := range names {
		api, err := reg.API(name)
		if err != nil {
			c.UI.Error(err.Error())
			return 1
		}

		c.UI.Output(name)
		for _, rel := range api.Relations() {
			desc, err := api.Definition(rel)
			if err != nil {
				c.UI.Error(err.Error())
				return 1
			}

			if desc.Templated() {
				vars := make([]string, 0, len(desc.HrefVars))
				for v := range desc.HrefVars {
					vars = append(vars, v)
				}
				sort.Strings(vars)
				c.UI.Output(fmt.Sprintf("  %s\t%s\t(vars: %s)", rel, desc.HrefTemplate, strings.Join(vars, ", ")))
				continue
			}
			c.UI.Output(fmt.Sprintf("  %s\t%s", rel, desc.Href))
		}
	}

	return 0
}
