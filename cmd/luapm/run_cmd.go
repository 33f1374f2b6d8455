package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/luapm/luapm/internal/pathgen"
)

type runCommand struct{}

func (c *runCommand) Name() string      { return "run" }
func (c *runCommand) Args() string      { return "<program> [args...]" }
func (c *runCommand) ShortHelp() string { return "Run a program with the tree's PATH and Lua paths set" }
func (c *runCommand) LongHelp() string {
	return "Execute program with PATH, LUA_PATH, and LUA_CPATH set so the tree's installed rocks are visible to it."
}

func (c *runCommand) Run(ctx *Ctx, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("run requires a program name")
	}

	paths, err := pathgen.Generate(ctx.Tree)
	if err != nil {
		return err
	}

	env := append([]string{}, ctx.Env...)
	env = setEnvVar(env, "PATH", pathgen.PathPrepended(ctx.Tree))
	env = setEnvVar(env, "LUA_PATH", strings.Join(paths.Lua, ";")+";;")
	env = setEnvVar(env, "LUA_CPATH", strings.Join(paths.C, ";")+";;")

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Env = env
	cmd.Stdout = ctx.Stdout
	cmd.Stderr = ctx.Stderr
	cmd.Stdin = os.Stdin
	return cmd.Run()
}

func setEnvVar(env []string, key, value string) []string {
	prefix := key + "="
	for i, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
