// Package pathgen builds the Lua module/library search path lists and
// PATH/bin wiring for a tree's installed packages (spec §4.14).
package pathgen

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/luapm/luapm/internal/build"
	"github.com/luapm/luapm/internal/lockfile"
	"github.com/luapm/luapm/internal/tree"
)

// Paths holds the three deduplicated, order-preserving path lists a Lua
// interpreter needs to see a tree's installed packages.
type Paths struct {
	Lua  []string // package.path entries
	C    []string // package.cpath entries
	Bin  []string // bin/ directories (currently always the single shared tree bin/)
}

// Generate enumerates every installed package in t's regular section and
// appends its src/, lib/, and bin/ globs to the three lists, per package,
// in lockfile iteration order, then deduplicates while preserving first
// occurrence (spec §4.14).
func Generate(t *tree.Tree) (Paths, error) {
	ro, err := t.Lockfile()
	if err != nil {
		return Paths{}, err
	}

	ext := build.PlatformLibExt(runtime.GOOS)
	var paths Paths
	for _, p := range ro.Section(lockfile.SectionRegular).Rocks {
		layout := t.RockLayoutFor(p)
		paths.Lua = append(paths.Lua,
			filepath.Join(layout.Src, "?.lua"),
			filepath.Join(layout.Src, "?", "init.lua"),
		)
		paths.C = append(paths.C, filepath.Join(layout.Lib, "?."+ext))
	}
	paths.Bin = []string{t.BinRoot()}

	paths.Lua = dedup(paths.Lua)
	paths.C = dedup(paths.C)
	paths.Bin = dedup(paths.Bin)
	return paths, nil
}

func dedup(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// PathPrepended returns the current environment PATH with the tree's
// bin/ directory prepended (spec §4.14 "path_prepended()").
func PathPrepended(t *tree.Tree) string {
	current := os.Getenv("PATH")
	if current == "" {
		return t.BinRoot()
	}
	return t.BinRoot() + string(os.PathListSeparator) + current
}

// InitSnippet returns a Lua `package.path`/`package.cpath` loader that
// only mutates the running interpreter's search paths when its Lua
// version matches luaVersion, so sourcing this for the wrong
// interpreter is a silent no-op rather than a broken load (spec §4.14
// "enables the loader only if the current Lua version matches").
func InitSnippet(paths Paths, luaVersion string) string {
	return fmt.Sprintf(`if (_VERSION or ""):match("Lua (%%d%%.%%d)") == %q then
  package.path = %q .. ";" .. package.path
  package.cpath = %q .. ";" .. package.cpath
end
`, luaVersion, luaPathString(paths.Lua), luaPathString(paths.C))
}

func luaPathString(entries []string) string {
	out := ""
	for i, e := range entries {
		if i > 0 {
			out += ";"
		}
		out += e
	}
	return out
}
