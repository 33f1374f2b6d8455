// Command luapm is the command-line front end over the resolve/install/
// sync/remove core (spec §6 "CLI surface (external collaborator)"). It
// maps one-to-one to core entry points and returns nonzero on failure,
// per the spec's only imposed constraint on this layer.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
)

// command is the closed, hand-rolled dispatch table this CLI uses
// instead of a flag-parsing framework (grounded on golang-dep's own
// cmd/dep/main.go command interface).
type command interface {
	Name() string
	Args() string
	ShortHelp() string
	LongHelp() string
	Run(ctx *Ctx, args []string) error
}

func main() {
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "luapm: failed to get working directory:", err)
		os.Exit(1)
	}
	c := &Config{
		Args:       os.Args,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		WorkingDir: wd,
		Env:        os.Environ(),
	}
	os.Exit(c.Run())
}

// Config specifies a full configuration for one luapm execution.
type Config struct {
	WorkingDir     string
	Args           []string
	Env            []string
	Stdout, Stderr io.Writer
}

// Run executes the configuration and returns a process exit code
// following spec §6's exit-code table.
func (c *Config) Run() int {
	commands := []command{
		&installCommand{},
		&removeCommand{},
		&buildCommand{},
		&syncCommand{},
		&updateCommand{},
		&searchCommand{},
		&infoCommand{},
		&packCommand{},
		&unpackCommand{},
		&whichCommand{},
		&runCommand{},
		&pathCommand{},
		&versionCommand{},
	}

	errLogger := log.New(c.Stderr, "", 0)

	usage := func() {
		errLogger.Println("luapm is a package manager for Lua rocks")
		errLogger.Println()
		errLogger.Println("Usage: luapm <command> [arguments]")
		errLogger.Println()
		errLogger.Println("Commands:")
		errLogger.Println()
		w := tabwriter.NewWriter(c.Stderr, 0, 4, 2, ' ', 0)
		for _, cmd := range commands {
			fmt.Fprintf(w, "\t%s\t%s\n", cmd.Name(), cmd.ShortHelp())
		}
		w.Flush()
	}

	if len(c.Args) < 2 {
		usage()
		return 1
	}

	cmdName := c.Args[1]
	if cmdName == "-h" || cmdName == "--help" || cmdName == "help" {
		usage()
		return 1
	}

	for _, cmd := range commands {
		if cmd.Name() != cmdName {
			continue
		}

		ctx, err := newCtx(c.WorkingDir, c.Env, c.Stdout, c.Stderr)
		if err != nil {
			errLogger.Println("luapm:", err)
			return 1
		}

		if err := cmd.Run(ctx, c.Args[2:]); err != nil {
			errLogger.Printf("luapm %s: %v\n", cmdName, err)
			return exitCodeFor(err)
		}
		return 0
	}

	errLogger.Printf("luapm: %s: no such command\n", cmdName)
	usage()
	return 1
}

func getEnv(env []string, key string) string {
	for _, kv := range env {
		if strings.HasPrefix(kv, key+"=") {
			return strings.TrimPrefix(kv, key+"=")
		}
	}
	return ""
}

func defaultRoot(env []string) string {
	if v := getEnv(env, "LUAPM_TREE"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".luarocks")
}

func defaultCacheDir(env []string) string {
	if v := getEnv(env, "LUAPM_CACHE"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "luapm")
}
