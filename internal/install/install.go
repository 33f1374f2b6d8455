// Package install drives the parallel installer (spec §4.11): given the
// resolver's InstallSpec set, it fetches sources, runs each package's
// build backend, writes outputs into the tree, hashes the result, and
// commits everything to the lockfile in one write-guard scope.
package install

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/luapm/luapm/internal/build"
	"github.com/luapm/luapm/internal/fetch"
	"github.com/luapm/luapm/internal/integrity"
	"github.com/luapm/luapm/internal/lockfile"
	"github.com/luapm/luapm/internal/resolve"
	"github.com/luapm/luapm/internal/rockspec"
	"github.com/luapm/luapm/internal/tree"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Config bundles installer-wide settings (spec §5 "fixed-size worker
// pool").
type Config struct {
	Concurrency int
	Lua         build.LuaInstallation
	Build       build.Config
	Fetch       fetch.Options
	Log         logrus.FieldLogger
}

// MissingExternal is the external-dependency preflight failure (spec
// §4.11 "missing externals fail early with a specific diagnostic").
type MissingExternal struct {
	Package string
	Name    string
	Header  string
	Library string
}

func (e *MissingExternal) Error() string {
	return "external dependency " + e.Name + " for " + e.Package + " not found (looked for header " + e.Header + ", library " + e.Library + ")"
}

// outcome is one package's install result, success or failure.
type outcome struct {
	spec resolve.InstallSpec
	pkg  lockfile.LocalPackage
	root string
	err  error
}

// Run installs every spec in specs into t, fanning builds out over a
// bounded worker pool, then commits all successes into one lockfile
// write-guard scope (spec §4.11 steps 1-5).
func Run(ctx context.Context, specs []resolve.InstallSpec, t *tree.Tree, cfg Config) ([]lockfile.LocalPackage, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	sem := make(chan struct{}, cfg.Concurrency)
	results := make([]outcome, len(specs))
	var wg sync.WaitGroup

	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec resolve.InstallSpec) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = installOne(ctx, spec, t, cfg)
		}(i, spec)
	}
	wg.Wait()

	guard, err := t.LockfileMut()
	if err != nil {
		return nil, err
	}
	defer guard.Close()

	var committed []lockfile.LocalPackage
	idByName := map[string]lockfile.LocalPackageId{}
	for _, o := range results {
		if o.err != nil {
			continue
		}
		idByName[o.spec.LocalSpec.Name.String()] = o.pkg.Id()
	}

	var firstErr error
	for _, o := range results {
		if o.err != nil {
			if firstErr == nil {
				firstErr = o.err
			}
			cfg.logOrDiscard().WithError(o.err).WithField("package", o.spec.LocalSpec).Warn("install failed, cleaning up partial directory")
			continue
		}

		var deps []lockfile.LocalPackageId
		for _, dep := range o.spec.Rockspec.CurrentDependencies() {
			if id, ok := idByName[dep.Req.Name.String()]; ok {
				deps = append(deps, id)
			}
		}
		guard.Insert(lockfile.SectionRegular, o.pkg, deps)
		committed = append(committed, o.pkg)
	}

	// Partial successes are committed regardless of sibling failures (spec
	// §4.11 step 3); a non-nil error still surfaces the first failure
	// alongside whatever did succeed.
	return committed, firstErr
}

func (c Config) logOrDiscard() logrus.FieldLogger {
	if c.Log != nil {
		return c.Log
	}
	return logrus.New()
}

// installOne fetches, builds, and hashes a single package. On any
// failure it removes the package's partial tree root before returning,
// so a failed install never leaves debris for a later retry to trip
// over (spec §4.11 step 3).
func installOne(ctx context.Context, spec resolve.InstallSpec, t *tree.Tree, cfg Config) outcome {
	r := spec.Rockspec

	localPkg := lockfile.LocalPackage{
		Spec:         spec.LocalSpec,
		Constraint:   spec.Constraint,
		Pinned:       spec.BuildBehaviour == build.Force,
		SourceOrigin: lockfile.SourceOrigin{Kind: "luarocks_rockspec"},
	}
	root := t.RootFor(localPkg)

	if err := preflightExternals(r); err != nil {
		return outcome{spec: spec, err: err}
	}

	layout := t.RockLayoutFor(localPkg)
	if err := layout.EnsureDirs(); err != nil {
		return outcome{spec: spec, err: err}
	}

	buildDir, err := os.MkdirTemp("", "luapm-build-*")
	if err != nil {
		return outcome{spec: spec, err: err}
	}
	defer os.RemoveAll(buildDir)

	if err := fetch.FetchSrc(r.CurrentSource(), buildDir, cfg.Fetch); err != nil {
		os.RemoveAll(root)
		return outcome{spec: spec, err: errors.Wrapf(err, "fetching %s", spec.LocalSpec)}
	}

	rp := build.RunParams{
		Spec:     r.CurrentBuild(),
		Layout:   layout,
		Lua:      cfg.Lua,
		Config:   cfg.Build,
		BuildDir: buildDir,
		Log:      cfg.logOrDiscard(),
	}
	if _, err := build.Execute(ctx, rp); err != nil {
		os.RemoveAll(root)
		return outcome{spec: spec, err: errors.Wrapf(err, "building %s", spec.LocalSpec)}
	}

	if err := os.WriteFile(layout.Rockspec, []byte(spec.RockspecDownload), 0o644); err != nil {
		os.RemoveAll(root)
		return outcome{spec: spec, err: err}
	}

	binaries, err := collectBinaries(layout, t.BinRoot())
	if err != nil {
		os.RemoveAll(root)
		return outcome{spec: spec, err: err}
	}

	srcHash, err := integrity.HashDir(root)
	if err != nil {
		os.RemoveAll(root)
		return outcome{spec: spec, err: err}
	}
	rockspecHash := integrity.HashBytes([]byte(spec.RockspecDownload))

	localPkg.Hashes = lockfile.Hashes{Rockspec: rockspecHash, Source: srcHash}
	localPkg.Binaries = binaries

	return outcome{spec: spec, pkg: localPkg, root: root}
}

// preflightExternals searches configured library/include patterns for
// every external_dependencies entry before any fetch/build work starts
// (spec §4.11 "external-dependency preflight").
func preflightExternals(r *rockspec.Rockspec) error {
	for name, dep := range r.ExternalDependencies {
		if dep.Header != "" {
			if !probeExists(dep.Header, []string{"/usr/include", "/usr/local/include"}) {
				return &MissingExternal{Package: r.Package.String(), Name: name, Header: dep.Header, Library: dep.Library}
			}
		}
		if dep.Library != "" {
			if !probeExists(dep.Library, []string{"/usr/lib", "/usr/local/lib", "/usr/lib/x86_64-linux-gnu"}) {
				return &MissingExternal{Package: r.Package.String(), Name: name, Header: dep.Header, Library: dep.Library}
			}
		}
	}
	return nil
}

func probeExists(name string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if _, err := os.Stat(filepath.Join(prefix, name)); err == nil {
			return true
		}
	}
	return false
}

// collectBinaries symlinks every file under the package's bin/ into the
// tree's shared bin/ root, returning the set of names it created (spec
// §4.11 step 2 "copy bin/ entries").
func collectBinaries(layout tree.RockLayout, binRoot string) ([]string, error) {
	entries, err := os.ReadDir(layout.Bin)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		src := filepath.Join(layout.Bin, e.Name())
		dest := filepath.Join(binRoot, e.Name())
		os.Remove(dest)
		if err := os.Symlink(src, dest); err != nil {
			return nil, errors.Wrapf(err, "linking binary %s", e.Name())
		}
		names = append(names, e.Name())
	}
	return names, nil
}
