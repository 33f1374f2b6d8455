package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/luapm/luapm/internal/build"
	"github.com/luapm/luapm/internal/db"
	"github.com/luapm/luapm/internal/fetch"
	"github.com/luapm/luapm/internal/install"
	"github.com/luapm/luapm/internal/integrity"
	"github.com/luapm/luapm/internal/resolve"
	"github.com/luapm/luapm/internal/tree"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// defaultServer is the primary remote index used when LUAPM_SERVER is
// unset. It mirrors the well-known public rocks server address.
const defaultServer = "https://luarocks.org"

// Ctx bundles everything a command needs: the process environment (no
// singletons, per spec §9 "Global state"), a tree handle for the
// configured Lua version, a remote database, and the installer's
// backend/fetch configuration.
type Ctx struct {
	WorkingDir string
	Env        []string
	Stdout     io.Writer
	Stderr     io.Writer
	Log        logrus.FieldLogger

	Root       string
	LuaVersion string
	CacheDir   string

	Tree     *tree.Tree
	Database *db.Database

	InstallCfg install.Config
}

// newCtx resolves configuration from environment variables and
// constructs the tree and database handles a command will need. Flags
// specific to one command are parsed by that command's Run.
func newCtx(wd string, env []string, stdout, stderr io.Writer) (*Ctx, error) {
	log := logrus.New()
	log.SetOutput(stderr)
	if getEnv(env, "LUAPM_VERBOSE") != "" {
		log.SetLevel(logrus.DebugLevel)
	}

	luaVersion := getEnv(env, "LUAPM_LUA_VERSION")
	if luaVersion == "" {
		luaVersion = "5.4"
	}

	root := defaultRoot(env)
	cacheDir := defaultCacheDir(env)
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating cache dir %s", cacheDir)
	}

	t, err := tree.New(root, luaVersion)
	if err != nil {
		return nil, err
	}

	timeout := 30 * time.Second
	if v := getEnv(env, "LUAPM_TIMEOUT"); v != "" {
		if d, perr := time.ParseDuration(v); perr == nil {
			timeout = d
		}
	}

	cache, err := db.OpenCache(filepath.Join(cacheDir, "manifest.db"))
	if err != nil {
		return nil, err
	}

	server := getEnv(env, "LUAPM_SERVER")
	if server == "" {
		server = defaultServer
	}
	primary := db.NewIndex(server, cache, timeout, log)

	var extras []*db.Index
	for _, extra := range splitNonEmpty(getEnv(env, "LUAPM_EXTRA_SERVERS"), ",") {
		extras = append(extras, db.NewIndex(extra, cache, timeout, log))
	}

	cc := envOr(env, "CC", "cc")
	installCfg := install.Config{
		Concurrency: 4,
		Lua: build.LuaInstallation{
			IncDir:  envOr(env, "LUAPM_LUA_INCDIR", "/usr/include/lua"+luaVersion),
			LibDir:  envOr(env, "LUAPM_LUA_LIBDIR", "/usr/lib"),
			Version: luaVersion,
		},
		Build: build.Config{
			CC:    cc,
			Make:  envOr(env, "MAKE", "make"),
			CMake: envOr(env, "CMAKE", "cmake"),
			Cargo: envOr(env, "CARGO", "cargo"),
			TreeSitterLanguageVersion: getEnv(env, "TREE_SITTER_LANGUAGE_VERSION"),
			CMakeModulePath:  splitNonEmpty(getEnv(env, "CMAKE_MODULE_PATH"), string(os.PathListSeparator)),
			CMakeLibraryPath: splitNonEmpty(getEnv(env, "CMAKE_LIBRARY_PATH"), string(os.PathListSeparator)),
			CMakeIncludePath: splitNonEmpty(getEnv(env, "CMAKE_INCLUDE_PATH"), string(os.PathListSeparator)),
		},
		Fetch: fetch.Options{Timeout: timeout},
		Log:   log,
	}

	return &Ctx{
		WorkingDir: wd,
		Env:        env,
		Stdout:     stdout,
		Stderr:     stderr,
		Log:        log,
		Root:       root,
		LuaVersion: luaVersion,
		CacheDir:   cacheDir,
		Tree:       t,
		Database:   db.NewDatabase(primary, extras...),
		InstallCfg: installCfg,
	}, nil
}

func envOr(env []string, key, def string) string {
	if v := getEnv(env, key); v != "" {
		return v
	}
	return def
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// exitCodeFor maps an error to the spec §6 exit-code table by
// inspecting its concrete type down the error chain.
func exitCodeFor(err error) int {
	switch {
	case errors.As(err, new(*integrity.Mismatch)):
		return 2
	case errors.As(err, new(*resolve.CycleError)):
		return 2
	case errors.As(err, new(*install.MissingExternal)):
		return 2
	case errors.As(err, new(*build.CommandError)):
		return 3
	case errors.As(err, new(*fetch.UnknownMimeType)),
		errors.As(err, new(*fetch.UnsupportedFileType)),
		errors.As(err, new(*fetch.MovedOrDeleted)),
		errors.As(err, new(*fetch.UnsupportedScheme)):
		return 4
	default:
		return 1
	}
}
