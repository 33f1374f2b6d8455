package rockspec

import (
	"github.com/pkg/errors"
	lua "github.com/yuin/gopher-lua"
)

// globalSurface is the fixed, closed set of top-level names the sandboxed
// interpreter reads after evaluation (spec §4.2). Anything else the
// rockspec text defines is ignored.
var globalSurface = []string{
	"rockspec_format", "package", "version", "description",
	"supported_platforms", "dependencies", "build_dependencies",
	"external_dependencies", "test_dependencies", "source", "build", "test",
}

// evalGlobals runs rockspec text through a single-threaded, deterministic
// Lua VM and returns the fixed global surface as raw values. Only the
// base, table, and string libraries are opened — no os/io/package/debug —
// so the document cannot touch the filesystem or network, matching the
// "must not expose side effects" requirement. dofile/loadfile/load are
// additionally removed from the base library, since OpenBase alone still
// installs them.
func evalGlobals(text string) (map[string]rawValue, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)

	for _, dangerous := range []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage"} {
		L.SetGlobal(dangerous, lua.LNil)
	}

	if err := L.DoString(text); err != nil {
		return nil, errors.Wrap(err, "evaluating rockspec")
	}

	out := make(map[string]rawValue, len(globalSurface))
	for _, name := range globalSurface {
		lv := L.GetGlobal(name)
		if lv == lua.LNil {
			continue
		}
		out[name] = toRaw(lv)
	}
	return out, nil
}
