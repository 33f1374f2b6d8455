package rockspec

import (
	"sort"

	lua "github.com/yuin/gopher-lua"
)

// rawValue is the Go-native mirror of a Lua value produced by the
// sandboxed interpreter: nil, bool, float64, string, []rawValue (array
// part of a table), or map[string]rawValue (hash part of a table).
type rawValue interface{}

// toRaw walks a Lua value and converts it into plain Go data. Tables are
// split into an array part (contiguous integer keys starting at 1) and a
// hash part (everything else); both may be present at once, which is how
// the `platforms = {...}` override subtable rides alongside a field's own
// array entries (e.g. a `dependencies` list).
func toRaw(v lua.LValue) rawValue {
	switch tv := v.(type) {
	case lua.LBool:
		return bool(tv)
	case lua.LNumber:
		return float64(tv)
	case lua.LString:
		return string(tv)
	case *lua.LTable:
		return tableToRaw(tv)
	default:
		return nil
	}
}

type rawTable struct {
	Array []rawValue
	Map   map[string]rawValue
}

func tableToRaw(t *lua.LTable) rawTable {
	rt := rawTable{Map: map[string]rawValue{}}
	n := t.Len()
	for i := 1; i <= n; i++ {
		rt.Array = append(rt.Array, toRaw(t.RawGetInt(i)))
	}
	t.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			rt.Map[string(ks)] = toRaw(v)
		}
	})
	return rt
}

// splitPlatforms separates a field's `platforms = { <name> = {...}, ... }`
// entry (if present) from the rest of the table, returning the residual
// base table and a name->rawTable map of overrides.
func splitPlatforms(rt rawTable) (base rawTable, platforms map[string]rawTable) {
	base = rawTable{Array: rt.Array, Map: map[string]rawValue{}}
	platforms = map[string]rawTable{}
	for k, v := range rt.Map {
		if k == "platforms" {
			if sub, ok := v.(rawTable); ok {
				for name, override := range sub.Map {
					if ot, ok := override.(rawTable); ok {
						platforms[name] = ot
					}
				}
			}
			continue
		}
		base.Map[k] = v
	}
	return base, platforms
}

func asString(v rawValue) string {
	s, _ := v.(string)
	return s
}

func asStringList(v rawValue) []string {
	var out []string
	switch tv := v.(type) {
	case rawTable:
		for _, e := range tv.Array {
			out = append(out, asString(e))
		}
	case []rawValue:
		for _, e := range tv {
			out = append(out, asString(e))
		}
	case string:
		out = append(out, tv)
	}
	return out
}

func sortedKeys(m map[string]rawValue) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
