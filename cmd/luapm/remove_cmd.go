package main

import (
	"fmt"

	"github.com/luapm/luapm/internal/lockfile"
	"github.com/luapm/luapm/internal/remove"
)

type removeCommand struct{}

func (c *removeCommand) Name() string      { return "remove" }
func (c *removeCommand) Args() string      { return "<rock> [<rock>...]" }
func (c *removeCommand) ShortHelp() string { return "Remove one or more installed rocks" }
func (c *removeCommand) LongHelp() string {
	return "Remove installed rocks matching the given requirements from the tree and lockfile."
}

func (c *removeCommand) Run(ctx *Ctx, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("remove requires at least one rock name")
	}

	var ids []lockfile.LocalPackageId
	for _, arg := range args {
		req, err := parsePackageReq(arg)
		if err != nil {
			return err
		}
		match, err := ctx.Tree.MatchRocks(req)
		if err != nil {
			return err
		}
		if match.NotFound() {
			return fmt.Errorf("%s: not installed", req.Name)
		}
		ids = append(ids, match.Ids...)
	}

	results, err := remove.Run(ids, ctx.Tree)
	if err != nil {
		return err
	}
	var failed error
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(ctx.Stderr, "failed to remove %s: %v\n", r.Id, r.Err)
			failed = r.Err
			continue
		}
		fmt.Fprintf(ctx.Stdout, "removed %s\n", r.Id)
	}
	return failed
}
