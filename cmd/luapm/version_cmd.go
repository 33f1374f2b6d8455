package main

import "fmt"

// Version is this build's release tag.
const Version = "0.1.0"

type versionCommand struct{}

func (c *versionCommand) Name() string      { return "version" }
func (c *versionCommand) Args() string      { return "" }
func (c *versionCommand) ShortHelp() string { return "Display version" }
func (c *versionCommand) LongHelp() string  { return "Display the luapm version." }

func (c *versionCommand) Run(ctx *Ctx, args []string) error {
	fmt.Fprintln(ctx.Stdout, Version)
	return nil
}
