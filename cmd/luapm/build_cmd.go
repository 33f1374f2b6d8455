package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/luapm/luapm/internal/build"
	"github.com/luapm/luapm/internal/install"
	"github.com/luapm/luapm/internal/resolve"
	"github.com/luapm/luapm/internal/rockspec"
	"github.com/luapm/luapm/internal/version"
)

type buildCommand struct{}

func (c *buildCommand) Name() string      { return "build" }
func (c *buildCommand) Args() string      { return "[<rockspec-file>]" }
func (c *buildCommand) ShortHelp() string { return "Build and install the project's rockspec" }
func (c *buildCommand) LongHelp() string {
	return "Parse a rockspec (defaulting to the single *.rockspec file in the working directory), install its dependencies, and build it into the tree."
}

func (c *buildCommand) Run(ctx *Ctx, args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	path, err := rockspecPath(ctx.WorkingDir, fs.Args())
	if err != nil {
		return err
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	r, err := rockspec.Parse(string(text))
	if err != nil {
		return err
	}

	var requests []resolve.Request
	for _, dep := range r.CurrentDependencies() {
		requests = append(requests, resolve.Request{Req: dep.Req, Behaviour: build.NoForce})
	}

	parent := context.Background()
	var depSpecs []resolve.InstallSpec
	if len(requests) > 0 {
		depSpecs, err = resolve.Resolve(parent, requests, ctx.Database, ctx.Tree, ctx.LuaVersion)
		if err != nil {
			return err
		}
	}

	ownSpec := resolve.InstallSpec{
		BuildBehaviour:   build.Force,
		RockspecDownload: string(text),
		Rockspec:         r,
		LocalSpec:        version.PackageSpec{Name: r.Package, Version: r.Version},
	}

	installed, err := install.Run(parent, append(depSpecs, ownSpec), ctx.Tree, ctx.InstallCfg)
	if err != nil {
		return err
	}
	for _, p := range installed {
		fmt.Fprintf(ctx.Stdout, "built %s %s (%s)\n", p.Spec.Name, p.Spec.Version, p.Id())
	}
	return nil
}

func rockspecPath(wd string, positional []string) (string, error) {
	if len(positional) > 0 {
		return positional[0], nil
	}
	matches, err := filepath.Glob(filepath.Join(wd, "*.rockspec"))
	if err != nil {
		return "", err
	}
	if len(matches) != 1 {
		return "", fmt.Errorf("expected exactly one *.rockspec in %s, found %d", wd, len(matches))
	}
	return matches[0], nil
}
