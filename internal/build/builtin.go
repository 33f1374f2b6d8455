package build

import (
	"context"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/luapm/luapm/internal/rockspec"
	"github.com/pkg/errors"
)

// excludedDirs are skipped during auto-detection (spec §4.8: "excluding
// known test and dep directories").
var excludedDirs = map[string]bool{
	"test": true, "tests": true, "spec": true, "specs": true,
	"vendor": true, "deps": true, ".git": true,
}

// BuiltinBackend auto-detects Lua modules under src/lua/lib, then
// processes the rockspec-declared `modules` table: plain file->path
// copies for .lua sources, and C source compilation into shared libraries
// for everything else.
type BuiltinBackend struct{}

func (b *BuiltinBackend) Run(ctx context.Context, rp RunParams) (BuildInfo, error) {
	if err := rp.Layout.EnsureDirs(); err != nil {
		return BuildInfo{}, err
	}

	info := BuildInfo{}

	detected, err := autoDetectLuaModules(rp.BuildDir)
	if err != nil {
		return BuildInfo{}, err
	}
	for modName, srcPath := range detected {
		dest := filepath.Join(rp.Layout.Src, modulePathFor(modName, ".lua"))
		if err := copyFile(srcPath, dest); err != nil {
			return BuildInfo{}, err
		}
		info.InstalledFiles = append(info.InstalledFiles, dest)
	}

	for modName, src := range rp.Spec.Modules {
		if len(src.Sources) == 1 && strings.HasSuffix(src.Sources[0], ".lua") {
			srcPath := filepath.Join(rp.BuildDir, src.Sources[0])
			dest := filepath.Join(rp.Layout.Src, modulePathFor(modName, ".lua"))
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return BuildInfo{}, err
			}
			if err := copyFile(srcPath, dest); err != nil {
				return BuildInfo{}, err
			}
			info.InstalledFiles = append(info.InstalledFiles, dest)
			continue
		}

		ext := PlatformLibExt(runtime.GOOS)
		dest := filepath.Join(rp.Layout.Lib, modulePathFor(modName, "."+ext))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return BuildInfo{}, err
		}
		if err := compileCModule(ctx, rp, src, dest); err != nil {
			return BuildInfo{}, err
		}
		info.InstalledFiles = append(info.InstalledFiles, dest)
	}

	for _, cp := range rp.Spec.CopyDirs {
		src := filepath.Join(rp.BuildDir, cp)
		if _, err := os.Stat(src); err == nil {
			if err := copyTree(src, filepath.Join(rp.Layout.Etc, cp)); err != nil {
				return BuildInfo{}, err
			}
		}
	}

	if err := installManifest(rp); err != nil {
		return BuildInfo{}, err
	}

	return info, nil
}

// modulePathFor converts a dotted module name ("foo.bar") into a relative
// path ("foo/bar.lua").
func modulePathFor(modName, ext string) string {
	return strings.ReplaceAll(modName, ".", string(os.PathSeparator)) + ext
}

// autoDetectLuaModules walks src/, lua/, lib/ under root (excluding known
// test/dep directories) looking for .lua files and derives a dotted
// module name from each one's path relative to its root directory.
func autoDetectLuaModules(root string) (map[string]string, error) {
	out := map[string]string{}
	for _, sub := range []string{"src", "lua", "lib"} {
		base := filepath.Join(root, sub)
		if _, err := os.Stat(base); err != nil {
			continue
		}
		err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if excludedDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.HasSuffix(path, ".lua") {
				return nil
			}
			rel, err := filepath.Rel(base, path)
			if err != nil {
				return err
			}
			modName := strings.TrimSuffix(rel, ".lua")
			modName = strings.TrimSuffix(modName, string(os.PathSeparator)+"init")
			modName = strings.ReplaceAll(modName, string(os.PathSeparator), ".")
			out[modName] = path
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "scanning %s for lua modules", base)
		}
	}
	return out, nil
}

// compileCModule compiles one or more C sources into a shared library,
// passing the Lua installation's compile/link args, headers, and defines
// (spec §4.8).
func compileCModule(ctx context.Context, rp RunParams, src rockspec.ModuleSource, dest string) error {
	args := []string{"-shared", "-fPIC", "-o", dest}
	args = append(args, rp.Lua.CompileArgs...)
	if rp.Lua.IncDir != "" {
		args = append(args, "-I"+rp.Lua.IncDir)
	}
	for _, inc := range src.IncDirs {
		args = append(args, "-I"+inc)
	}
	for _, def := range src.Defines {
		args = append(args, "-D"+def)
	}
	for _, s := range src.Sources {
		args = append(args, filepath.Join(rp.BuildDir, s))
	}
	for _, libDir := range src.LibDirs {
		args = append(args, "-L"+libDir)
	}
	for _, lib := range src.Libs {
		args = append(args, "-l"+lib)
	}
	args = append(args, rp.Lua.LinkArgs...)

	cc := orDefault(rp.Config.CC, "cc")
	cmd := exec.CommandContext(ctx, cc, args...)
	cmd.Dir = rp.BuildDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &CommandError{Command: cc + " " + strings.Join(args, " "), Stdout: string(out), Cause: err}
	}
	return nil
}

func copyTree(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return errors.Wrapf(err, "reading %s", src)
	}
	return os.WriteFile(dest, data, 0o644)
}

// installManifest copies every file the rockspec's install table
// declares (categories lua/lib/conf/bin) into the matching layout
// subdirectory.
func installManifest(rp RunParams) error {
	dests := map[string]string{
		"lua":  rp.Layout.Src,
		"lib":  rp.Layout.Lib,
		"conf": rp.Layout.Etc,
		"bin":  rp.Layout.Bin,
	}
	for cat, files := range rp.Spec.Install {
		destRoot, ok := dests[string(cat)]
		if !ok {
			continue
		}
		for destName, srcRel := range files {
			dest := filepath.Join(destRoot, destName)
			src := filepath.Join(rp.BuildDir, srcRel)
			if err := copyFile(src, dest); err != nil {
				return err
			}
		}
	}
	return nil
}
