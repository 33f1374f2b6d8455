package main

import (
	"fmt"

	"github.com/luapm/luapm/internal/lockfile"
)

type infoCommand struct{}

func (c *infoCommand) Name() string      { return "info" }
func (c *infoCommand) Args() string      { return "<rock>" }
func (c *infoCommand) ShortHelp() string { return "Show details for an installed rock" }
func (c *infoCommand) LongHelp() string {
	return "Print the resolved package, constraint, pin state, and integrity hashes for an installed rock."
}

func (c *infoCommand) Run(ctx *Ctx, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("info requires a rock name")
	}
	req, err := parsePackageReq(args[0])
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
	ro, err := ctx.Tree.Lockfile()
	if err != nil {
		return err
	}
	for _, id := range match.Ids {
		p, _ := ro.Get(lockfile.SectionRegular, id)
		fmt.Fprintf(ctx.Stdout, "%s %s\n", p.Spec.Name, p.Spec.Version)
		fmt.Fprintf(ctx.Stdout, "  id:         %s\n", id)
		fmt.Fprintf(ctx.Stdout, "  constraint: %s\n", p.Constraint)
		fmt.Fprintf(ctx.Stdout, "  pinned:     %v\n", p.Pinned)
		fmt.Fprintf(ctx.Stdout, "  source:     %s\n", p.SourceOrigin)
		fmt.Fprintf(ctx.Stdout, "  rockspec:   %s\n", p.Hashes.Rockspec)
		fmt.Fprintf(ctx.Stdout, "  source hash:%s\n", p.Hashes.Source)
		if len(p.Binaries) > 0 {
			fmt.Fprintf(ctx.Stdout, "  binaries:   %v\n", p.Binaries)
		}
	}
	return nil
}
