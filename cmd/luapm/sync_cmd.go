package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/luapm/luapm/internal/lockfile"
	"github.com/luapm/luapm/internal/sync"
	"github.com/luapm/luapm/internal/version"
)

type syncCommand struct {
	lockfilePath      string
	validateIntegrity bool
}

func (c *syncCommand) Name() string      { return "sync" }
func (c *syncCommand) Args() string      { return "<lockfile> [<rock>...]" }
func (c *syncCommand) ShortHelp() string { return "Reconcile the tree with a source lockfile" }
func (c *syncCommand) LongHelp() string {
	return "Reconcile the tree with the given source lockfile, installing what's missing and removing what's no longer present, optionally narrowed to a requirement set."
}

func (c *syncCommand) Run(ctx *Ctx, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	fs.BoolVar(&c.validateIntegrity, "validate", false, "recompute and compare hashes for newly installed packages")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("sync requires a source lockfile path")
	}

	srcDoc, err := lockfile.Load(fs.Arg(0), ctx.LuaVersion)
	if err != nil {
		return err
	}
	src := lockfile.NewReadOnly(srcDoc)

	var reqs []version.PackageReq
	for _, arg := range fs.Args()[1:] {
		req, err := parsePackageReq(arg)
		if err != nil {
			return err
		}
		reqs = append(reqs, req)
	}

	opts := sync.Options{
		Requirements:      reqs,
		ValidateIntegrity: c.validateIntegrity,
		Database:          ctx.Database,
		LuaVersion:        ctx.LuaVersion,
		Install:           ctx.InstallCfg,
	}
	if err := sync.Run(context.Background(), ctx.Tree, src, opts); err != nil {
		return err
	}
	fmt.Fprintln(ctx.Stdout, "sync complete")
	return nil
}
