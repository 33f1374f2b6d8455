// Package tree implements the on-disk rock layout: a (root, lua_version)
// pair mapping resolved packages to deterministic subdirectories, and the
// exclusive-lock discipline gating lockfile mutation (spec §3, §4.4).
package tree

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/luapm/luapm/internal/lockfile"
	"github.com/luapm/luapm/internal/version"
	"github.com/pkg/errors"
	"github.com/theckman/go-flock"
)

// Tree is the on-disk area holding installed packages for one Lua
// version.
type Tree struct {
	Root       string
	LuaVersion string
}

// New ensures root/luaVersion exists and returns a handle to it.
func New(root, luaVersion string) (*Tree, error) {
	t := &Tree{Root: root, LuaVersion: luaVersion}
	if err := os.MkdirAll(t.versionRoot(), 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating tree root %s", t.versionRoot())
	}
	if err := os.MkdirAll(t.BinRoot(), 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating bin root %s", t.BinRoot())
	}
	return t, nil
}

func (t *Tree) versionRoot() string { return filepath.Join(t.Root, t.LuaVersion) }

// BinRoot is the single top-level bin/ directory shared across all
// packages (spec §3).
func (t *Tree) BinRoot() string { return filepath.Join(t.Root, "bin") }

// RootFor returns {root}/{lua_version}/{id}-{name}-{version}.
func (t *Tree) RootFor(p lockfile.LocalPackage) string {
	return filepath.Join(t.versionRoot(), fmt.Sprintf("%s-%s-%s", p.Id(), p.Spec.Name, p.Spec.Version))
}

// RockLayout exposes the deterministic subpaths for one package (spec §3,
// §6). Paths are computed, not created; WriteManifest/any installer step
// that needs them must mkdir lazily.
type RockLayout struct {
	Root     string
	Src      string
	Lib      string
	Bin      string
	Doc      string
	Etc      string
	Rockspec string
}

// RockLayoutFor computes p's layout under t without touching the
// filesystem.
func (t *Tree) RockLayoutFor(p lockfile.LocalPackage) RockLayout {
	root := t.RootFor(p)
	return RockLayout{
		Root:     root,
		Src:      filepath.Join(root, "src"),
		Lib:      filepath.Join(root, "lib"),
		Bin:      filepath.Join(root, "bin"),
		Doc:      filepath.Join(root, "doc"),
		Etc:      filepath.Join(root, "etc"),
		Rockspec: filepath.Join(root, p.Spec.Name.String()+"-"+p.Spec.Version.String()+".rockspec"),
	}
}

// EnsureDirs lazily creates every subpath a build/install step may write
// into.
func (l RockLayout) EnsureDirs() error {
	for _, d := range []string{l.Src, l.Lib, l.Bin, l.Doc, l.Etc} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return errors.Wrapf(err, "creating %s", d)
		}
	}
	return nil
}

// MatchResult is the outcome of matching a requirement against the
// installed set.
type MatchResult struct {
	Ids []lockfile.LocalPackageId
}

func (m MatchResult) NotFound() bool { return len(m.Ids) == 0 }
func (m MatchResult) Single() (lockfile.LocalPackageId, bool) {
	if len(m.Ids) == 1 {
		return m.Ids[0], true
	}
	return "", false
}
func (m MatchResult) Many() bool { return len(m.Ids) > 1 }

// MatchRocks enumerates installed packages (regular section) satisfying
// req, by consulting the tree's own lockfile.
func (t *Tree) MatchRocks(req version.PackageReq) (MatchResult, error) {
	ro, err := t.Lockfile()
	if err != nil {
		return MatchResult{}, err
	}
	return MatchResult{Ids: ro.Section(lockfile.SectionRegular).MatchAll(req)}, nil
}

func (t *Tree) lockfilePath() string { return filepath.Join(t.versionRoot(), "lockfile.toml") }

func (t *Tree) lockPath() string { return filepath.Join(t.Root, "lock") }

// Lockfile returns a read-only snapshot of the tree's lockfile. Multiple
// readers may hold this concurrently (spec §4.4, §5).
func (t *Tree) Lockfile() (lockfile.ReadOnly, error) {
	d, err := lockfile.Load(t.lockfilePath(), t.LuaVersion)
	if err != nil {
		return lockfile.ReadOnly{}, err
	}
	return lockfile.NewReadOnly(d), nil
}

// WriteGuard is a held exclusive file lock plus the mutable lockfile
// handle it protects; releasing it (Close) unlocks the file after
// flushing (spec §4.4).
type WriteGuard struct {
	*lockfile.WriteGuard
	fileLock *flock.Flock
}

// LockfileMut acquires the tree's exclusive write lock at {root}/lock and
// returns a mutable lockfile handle. At most one WriteGuard may be held at
// a time per tree (spec §4.4, §5); this call blocks until the lock is
// free.
func (t *Tree) LockfileMut() (*WriteGuard, error) {
	fl := flock.NewFlock(t.lockPath())
	if err := fl.Lock(); err != nil {
		return nil, errors.Wrapf(err, "acquiring tree write lock %s", t.lockPath())
	}
	d, err := lockfile.Load(t.lockfilePath(), t.LuaVersion)
	if err != nil {
		fl.Unlock()
		return nil, err
	}
	return &WriteGuard{WriteGuard: lockfile.NewWriteGuard(d), fileLock: fl}, nil
}

// Close flushes the lockfile and releases the exclusive file lock,
// regardless of flush outcome, so a failed flush never leaves the tree
// permanently locked.
func (g *WriteGuard) Close() error {
	flushErr := g.WriteGuard.Close()
	unlockErr := g.fileLock.Unlock()
	if flushErr != nil {
		return flushErr
	}
	return unlockErr
}
