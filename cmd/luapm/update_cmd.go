package main

import (
	"context"
	"fmt"

	"github.com/luapm/luapm/internal/build"
	"github.com/luapm/luapm/internal/lockfile"
	"github.com/luapm/luapm/internal/resolve"
	"github.com/luapm/luapm/internal/version"
)

type updateCommand struct{}

func (c *updateCommand) Name() string      { return "update" }
func (c *updateCommand) Args() string      { return "[<rock>...]" }
func (c *updateCommand) ShortHelp() string { return "Update installed rocks to their latest version" }
func (c *updateCommand) LongHelp() string {
	return "Force-resolve the given rocks (or every currently installed rock) against the remote database and reinstall the latest matching version."
}

func (c *updateCommand) Run(ctx *Ctx, args []string) error {
	var names []version.PackageName
	if len(args) > 0 {
		for _, arg := range args {
			req, err := parsePackageReq(arg)
			if err != nil {
				return err
			}
			names = append(names, req.Name)
		}
	} else {
		ro, err := ctx.Tree.Lockfile()
		if err != nil {
			return err
		}
		for _, p := range ro.Section(lockfile.SectionRegular).Rocks {
			names = append(names, p.Spec.Name)
		}
	}

	if len(names) == 0 {
		fmt.Fprintln(ctx.Stdout, "nothing installed to update")
		return nil
	}

	var requests []resolve.Request
	for _, name := range names {
		requests = append(requests, resolve.Request{Req: version.PackageReq{Name: name}, Behaviour: build.Force})
	}

	return installRequests(context.Background(), ctx, requests)
}
