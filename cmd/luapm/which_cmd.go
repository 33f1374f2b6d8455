package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/luapm/luapm/internal/pathgen"
)

type whichCommand struct{}

func (c *whichCommand) Name() string      { return "which" }
func (c *whichCommand) Args() string      { return "<program>" }
func (c *whichCommand) ShortHelp() string { return "Locate an installed rock's executable" }
func (c *whichCommand) LongHelp() string {
	return "Resolve program against the tree's PATH (bin/ prepended) and print the path that would run."
}

func (c *whichCommand) Run(ctx *Ctx, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("which requires a program name")
	}
	name := args[0]
	for _, dir := range strings.Split(pathgen.PathPrepended(ctx.Tree), string(os.PathListSeparator)) {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			fmt.Fprintln(ctx.Stdout, candidate)
			return nil
		}
	}
	return fmt.Errorf("%s: not found on tree PATH", name)
}
