package build

import (
	"os"
	"regexp"
	"strings"
)

var varToken = regexp.MustCompile(`\$\(([A-Za-z_][A-Za-z0-9_]*)\)`)

// Substitute replaces every $(NAME) token using, in order: layout
// variables, config variables, then environment variables (spec §4.8).
// An unresolved token is left verbatim.
func Substitute(text string, rp RunParams) string {
	layoutVars := layoutVariables(rp)
	configVars := configVariables(rp.Config)

	return varToken.ReplaceAllStringFunc(text, func(match string) string {
		name := varToken.FindStringSubmatch(match)[1]
		if v, ok := layoutVars[name]; ok {
			return v
		}
		if v, ok := configVars[name]; ok {
			return v
		}
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return match
	})
}

func layoutVariables(rp RunParams) map[string]string {
	return map[string]string{
		"LUA_INCDIR": rp.Lua.IncDir,
		"LUA_LIBDIR": rp.Lua.LibDir,
		"PREFIX":     rp.Layout.Root,
		"LIBDIR":     rp.Layout.Lib,
		"LUADIR":     rp.Layout.Src,
		"CONFDIR":    rp.Layout.Etc,
		"BINDIR":     rp.Layout.Bin,
		"DOCDIR":     rp.Layout.Doc,
	}
}

func configVariables(c Config) map[string]string {
	vars := map[string]string{
		"CC":    orDefault(c.CC, "cc"),
		"MAKE":  orDefault(c.Make, "make"),
		"CMAKE": orDefault(c.CMake, "cmake"),
		"CARGO": orDefault(c.Cargo, "cargo"),
	}
	if len(c.CMakeModulePath) > 0 {
		vars["CMAKE_MODULE_PATH"] = strings.Join(c.CMakeModulePath, string(os.PathListSeparator))
	}
	if len(c.CMakeLibraryPath) > 0 {
		vars["CMAKE_LIBRARY_PATH"] = strings.Join(c.CMakeLibraryPath, string(os.PathListSeparator))
	}
	if len(c.CMakeIncludePath) > 0 {
		vars["CMAKE_INCLUDE_PATH"] = strings.Join(c.CMakeIncludePath, string(os.PathListSeparator))
	}
	return vars
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// substituteMap applies Substitute to every value of a string map, useful
// for build_variables/install_variables tables.
func substituteMap(m map[string]string, rp RunParams) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = Substitute(v, rp)
	}
	return out
}

// PlatformLibExt returns the shared-library extension for the current
// platform ("so", "dll", "dylib"), used by both Builtin and RustNative to
// name compiled modules (spec §4.8).
func PlatformLibExt(goos string) string {
	switch goos {
	case "windows":
		return "dll"
	case "darwin":
		return "dylib"
	default:
		return "so"
	}
}
