// Package build executes a rockspec's build plan against one of a closed
// set of backends: builtin copy/compile, Makefile-driven, CMake-driven,
// command scripts, a Rust-to-Lua native bridge, a tree-sitter parser
// generator, and a legacy-compat fallback (spec §4.8).
package build

import (
	"context"
	"sort"

	"github.com/luapm/luapm/internal/build/patch"
	"github.com/luapm/luapm/internal/rockspec"
	"github.com/luapm/luapm/internal/tree"
	"github.com/sirupsen/logrus"
)

// LuaInstallation describes the Lua headers/libs/compiler the current
// platform build should link against.
type LuaInstallation struct {
	IncDir      string
	LibDir      string
	Version     string // "5.1", "5.2", "5.3", "5.4", "luajit", "luajit52"
	CompileArgs []string
	LinkArgs    []string
}

// Config carries the external-tool names and search paths a backend may
// need (spec §4.8 variable substitution tier 2).
type Config struct {
	CC        string
	Make      string
	CMake     string
	Cargo     string
	TreeSitterLanguageVersion string
	CMakeModulePath  []string
	CMakeLibraryPath []string
	CMakeIncludePath []string
}

// BuildInfo is the result of a successful backend run.
type BuildInfo struct {
	InstalledFiles []string
}

// NoForce controls whether a build runs even if the tree already has a
// matching install (spec §4.10).
type ForceMode int

const (
	NoForce ForceMode = iota
	Force
)

// Backend is the common contract every build variant implements.
type Backend interface {
	Run(ctx context.Context, rp RunParams) (BuildInfo, error)
}

// RunParams bundles everything a backend's Run needs.
type RunParams struct {
	Spec      rockspec.BuildSpec
	Layout    tree.RockLayout
	NoInstall bool
	Lua       LuaInstallation
	Config    Config
	BuildDir  string
	Log       logrus.FieldLogger
}

// CommandError captures a failed external command's status and both
// captured streams (spec §7 "command failure (status + captured
// streams)").
type CommandError struct {
	Command string
	Status  int
	Stdout  string
	Stderr  string
	Cause   error
}

func (e *CommandError) Error() string {
	return e.Command + " failed: " + e.Cause.Error() + "\nstdout:\n" + e.Stdout + "\nstderr:\n" + e.Stderr
}

func (e *CommandError) Unwrap() error { return e.Cause }

// Dispatch is the closed variant table (spec §9 "Variant dispatch for
// build backends"). Adding a backend means adding a rockspec.BuildKind
// value and a case here — a deliberate, typed change.
func Dispatch(kind rockspec.BuildKind) Backend {
	switch kind {
	case rockspec.BuildMake:
		return &MakeBackend{}
	case rockspec.BuildCMake:
		return &CMakeBackend{}
	case rockspec.BuildCommand:
		return &CommandBackend{}
	case rockspec.BuildRustNative:
		return &RustNativeBackend{}
	case rockspec.BuildTreesitterParser:
		return &TreesitterBackend{}
	case rockspec.BuildLuaRocksCompat:
		return &LuaRocksCompatBackend{}
	default:
		return &BuiltinBackend{}
	}
}

// Execute applies rp.Spec.Patches against rp.BuildDir in sorted order,
// then dispatches and runs the backend matching rp.Spec.Kind (spec §4.8's
// "patches applied before build, regardless of backend").
func Execute(ctx context.Context, rp RunParams) (BuildInfo, error) {
	names := make([]string, 0, len(rp.Spec.Patches))
	for name := range rp.Spec.Patches {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := patch.Apply(rp.BuildDir, name, rp.Spec.Patches[name]); err != nil {
			return BuildInfo{}, err
		}
	}

	return Dispatch(rp.Spec.Kind).Run(ctx, rp)
}
