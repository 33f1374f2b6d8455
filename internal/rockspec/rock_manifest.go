package rockspec

import (
	"github.com/pkg/errors"
	lua "github.com/yuin/gopher-lua"
)

// RockManifest is the parsed `rock_manifest` table bundled inside a binary
// rock archive: per-category file->md5 maps, plus a `root` section of
// loose files. Per spec §9 Open Questions, root-section files are assigned
// to the layout's etc/ (confirmed against original_source's
// rock_manifest.rs).
type RockManifest struct {
	Lua  map[string]string
	Lib  map[string]string
	Bin  map[string]string
	Doc  map[string]string
	Root map[string]string
}

// ParseRockManifest evaluates a rock_manifest table through the same
// sandboxed interpreter used for rockspecs.
func ParseRockManifest(text string) (*RockManifest, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	for _, dangerous := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(dangerous, lua.LNil)
	}

	if err := L.DoString("rock_manifest = " + text); err != nil {
		return nil, errors.Wrap(err, "evaluating rock_manifest")
	}
	lv := L.GetGlobal("rock_manifest")
	rt, ok := toRaw(lv).(rawTable)
	if !ok {
		return nil, errors.New("rock_manifest did not evaluate to a table")
	}

	m := &RockManifest{
		Lua:  flatFileMap(rt.Map["lua"]),
		Lib:  flatFileMap(rt.Map["lib"]),
		Bin:  flatFileMap(rt.Map["bin"]),
		Doc:  flatFileMap(rt.Map["doc"]),
		Root: map[string]string{},
	}
	for name, v := range rt.Map {
		switch name {
		case "lua", "lib", "bin", "doc":
			continue
		default:
			if s, ok := v.(string); ok {
				m.Root[name] = s
			}
		}
	}
	return m, nil
}

func flatFileMap(v rawValue) map[string]string {
	rt, ok := v.(rawTable)
	if !ok {
		return nil
	}
	out := map[string]string{}
	for k, v := range rt.Map {
		out[k] = asString(v)
	}
	return out
}
