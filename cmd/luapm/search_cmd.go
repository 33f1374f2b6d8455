package main

import (
	"fmt"
)

type searchCommand struct{}

func (c *searchCommand) Name() string      { return "search" }
func (c *searchCommand) Args() string      { return "<name-prefix>" }
func (c *searchCommand) ShortHelp() string { return "Search the remote database by name prefix" }
func (c *searchCommand) LongHelp() string {
	return "Search every package name the configured database has observed for one matching the given prefix."
}

func (c *searchCommand) Run(ctx *Ctx, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("search requires a name prefix")
	}
	names := ctx.Database.SearchPrefix(args[0])
	if len(names) == 0 {
		fmt.Fprintln(ctx.Stdout, "no matches")
		return nil
	}
	for _, n := range names {
		fmt.Fprintln(ctx.Stdout, n)
	}
	return nil
}
