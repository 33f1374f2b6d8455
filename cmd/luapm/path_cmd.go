package main

import (
	"flag"
	"fmt"

	"github.com/luapm/luapm/internal/pathgen"
)

type pathCommand struct {
	lrPath bool
}

func (c *pathCommand) Name() string      { return "path" }
func (c *pathCommand) Args() string      { return "" }
func (c *pathCommand) ShortHelp() string { return "Print shell exports for the tree's paths" }
func (c *pathCommand) LongHelp() string {
	return "Print PATH, LUA_PATH, and LUA_CPATH exports a shell can eval to see the tree's installed rocks."
}

func (c *pathCommand) Run(ctx *Ctx, args []string) error {
	fs := flag.NewFlagSet("path", flag.ContinueOnError)
	fs.BoolVar(&c.lrPath, "bin", false, "print only the bin/ PATH export")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if c.lrPath {
		fmt.Fprintf(ctx.Stdout, "export PATH='%s'\n", pathgen.PathPrepended(ctx.Tree))
		return nil
	}

	paths, err := pathgen.Generate(ctx.Tree)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout, "export PATH='%s'\n", pathgen.PathPrepended(ctx.Tree))
	fmt.Fprintf(ctx.Stdout, "export LUA_PATH='%s'\n", luaPath(paths.Lua))
	fmt.Fprintf(ctx.Stdout, "export LUA_CPATH='%s'\n", luaPath(paths.C))
	return nil
}

func luaPath(entries []string) string {
	out := ""
	for _, e := range entries {
		out += e + ";"
	}
	return out + ";"
}
