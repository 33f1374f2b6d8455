package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/luapm/luapm/internal/build"
	"github.com/luapm/luapm/internal/install"
	"github.com/luapm/luapm/internal/resolve"
)

type installCommand struct {
	force bool
}

func (c *installCommand) Name() string      { return "install" }
func (c *installCommand) Args() string      { return "<rock> [<rock>...]" }
func (c *installCommand) ShortHelp() string { return "Install one or more rocks" }
func (c *installCommand) LongHelp() string {
	return "Resolve and install one or more rock requirements, updating the tree's lockfile."
}

func (c *installCommand) Run(ctx *Ctx, args []string) error {
	fs := flag.NewFlagSet("install", flag.ContinueOnError)
	fs.BoolVar(&c.force, "force", false, "rebuild even if already installed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("install requires at least one rock requirement")
	}

	behaviour := build.NoForce
	if c.force {
		behaviour = build.Force
	}

	var requests []resolve.Request
	for _, arg := range fs.Args() {
		req, err := parsePackageReq(arg)
		if err != nil {
			return err
		}
		requests = append(requests, resolve.Request{Req: req, Behaviour: behaviour})
	}

	return installRequests(context.Background(), ctx, requests)
}

// installRequests resolves and installs requests into ctx.Tree, shared by
// the install and update commands.
func installRequests(parent context.Context, ctx *Ctx, requests []resolve.Request) error {
	specs, err := resolve.Resolve(parent, requests, ctx.Database, ctx.Tree, ctx.LuaVersion)
	if err != nil {
		return err
	}
	if len(specs) == 0 {
		fmt.Fprintln(ctx.Stdout, "nothing to install")
		return nil
	}

	installed, err := install.Run(parent, specs, ctx.Tree, ctx.InstallCfg)
	if err != nil {
		return err
	}
	for _, p := range installed {
		fmt.Fprintf(ctx.Stdout, "installed %s %s (%s)\n", p.Spec.Name, p.Spec.Version, p.Id())
	}
	return nil
}
