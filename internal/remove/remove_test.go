package remove

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/luapm/luapm/internal/lockfile"
	"github.com/luapm/luapm/internal/tree"
	"github.com/luapm/luapm/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustName(t *testing.T, raw string) version.PackageName {
	t.Helper()
	n, err := version.NewPackageName(raw)
	require.NoError(t, err)
	return n
}

func mustVersion(t *testing.T, raw string) version.PackageVersion {
	t.Helper()
	v, err := version.ParseVersion(raw)
	require.NoError(t, err)
	return v
}

func TestRunRemovesPackageAndCompactsLockfile(t *testing.T) {
	tr, err := tree.New(t.TempDir(), "5.4")
	require.NoError(t, err)

	p := lockfile.LocalPackage{Spec: version.PackageSpec{Name: mustName(t, "a"), Version: mustVersion(t, "1.0.0")}}
	root := tr.RootFor(p)
	require.NoError(t, os.MkdirAll(root, 0o755))

	guard, err := tr.LockfileMut()
	require.NoError(t, err)
	guard.Insert(lockfile.SectionRegular, p, nil)
	require.NoError(t, guard.Close())

	results, err := Run([]lockfile.LocalPackageId{p.Id()}, tr)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
	assert.NoDirExists(t, root)

	ro, err := tr.Lockfile()
	require.NoError(t, err)
	assert.Empty(t, ro.Section(lockfile.SectionRegular).Rocks)
}

func TestRunRemovesBinSymlinks(t *testing.T) {
	tr, err := tree.New(t.TempDir(), "5.4")
	require.NoError(t, err)

	p := lockfile.LocalPackage{
		Spec:     version.PackageSpec{Name: mustName(t, "cli-tool"), Version: mustVersion(t, "1.0.0")},
		Binaries: []string{"cli-tool"},
	}
	root := tr.RootFor(p)
	require.NoError(t, os.MkdirAll(root, 0o755))

	binTarget := filepath.Join(root, "cli-tool")
	require.NoError(t, os.WriteFile(binTarget, []byte("#!/bin/sh\n"), 0o755))
	binLink := filepath.Join(tr.BinRoot(), "cli-tool")
	require.NoError(t, os.Symlink(binTarget, binLink))

	guard, err := tr.LockfileMut()
	require.NoError(t, err)
	guard.Insert(lockfile.SectionRegular, p, nil)
	require.NoError(t, guard.Close())

	results, err := Run([]lockfile.LocalPackageId{p.Id()}, tr)
	require.NoError(t, err)
	assert.NoError(t, results[0].Err)
	assert.NoFileExists(t, binLink)
}

func TestRunUnknownIdFailsButOthersSucceed(t *testing.T) {
	tr, err := tree.New(t.TempDir(), "5.4")
	require.NoError(t, err)

	p := lockfile.LocalPackage{Spec: version.PackageSpec{Name: mustName(t, "a"), Version: mustVersion(t, "1.0.0")}}
	guard, err := tr.LockfileMut()
	require.NoError(t, err)
	guard.Insert(lockfile.SectionRegular, p, nil)
	require.NoError(t, guard.Close())

	results, err := Run([]lockfile.LocalPackageId{p.Id(), lockfile.LocalPackageId("does-not-exist")}, tr)
	require.NoError(t, err) // removeOne errors don't abort the whole MapThenFlush

	var sawFailure, sawSuccess bool
	for _, r := range results {
		if r.Id == p.Id() {
			sawSuccess = r.Err == nil
		} else {
			sawFailure = r.Err != nil
		}
	}
	assert.True(t, sawSuccess)
	assert.True(t, sawFailure)

	ro, err := tr.Lockfile()
	require.NoError(t, err)
	assert.Empty(t, ro.Section(lockfile.SectionRegular).Rocks, "successfully removed package is compacted out")
}
