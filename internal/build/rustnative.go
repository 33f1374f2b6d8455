package build

import (
	"context"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
)

// RustNativeBackend builds a cargo crate with `cargo build --release` and
// places the resulting cdylib artifacts at the module paths the rockspec
// declares, renaming `lib<name>.so`/`.dylib`/`.dll` to the dotted module
// path's shared-library name (spec §4.8, grounded on
// other_examples/08bee826_tsukumogami-tsuku__internal-actions-cargo_build.go.go).
type RustNativeBackend struct{}

// luaFeatureFor maps a Lua installation's version (build.LuaInstallation.Version,
// e.g. "5.1"/"5.4"/"luajit") to the cargo feature flag that selects the
// matching binding in an mlua-style crate. Unrecognized or empty versions
// fall back to "lua54", the most common default target.
func luaFeatureFor(luaVersion string) string {
	switch luaVersion {
	case "5.1":
		return "lua51"
	case "5.2":
		return "lua52"
	case "5.3":
		return "lua53"
	case "5.4":
		return "lua54"
	case "luajit":
		return "luajit"
	case "luajit52":
		return "luajit52"
	default:
		return "lua54"
	}
}

func (b *RustNativeBackend) Run(ctx context.Context, rp RunParams) (BuildInfo, error) {
	if err := rp.Layout.EnsureDirs(); err != nil {
		return BuildInfo{}, err
	}
	spec := rp.Spec.RustNativeSpec

	cargo := orDefault(rp.Config.Cargo, "cargo")
	args := []string{"build", "--release"}
	if spec.Target != "" {
		args = append(args, "--target", spec.Target)
	}
	if spec.NoDefaultFeatures {
		args = append(args, "--no-default-features")
	}
	args = append(args, "--features", luaFeatureFor(rp.Lua.Version))
	for _, f := range spec.Features {
		args = append(args, "--features", f)
	}

	if err := runCommand(ctx, rp, cargo, args...); err != nil {
		return BuildInfo{}, err
	}

	targetDir := filepath.Join(rp.BuildDir, "target")
	if spec.Target != "" {
		targetDir = filepath.Join(targetDir, spec.Target)
	}
	targetDir = filepath.Join(targetDir, "release")

	info := BuildInfo{}
	ext := PlatformLibExt(runtime.GOOS)
	prefix := "lib"
	if runtime.GOOS == "windows" {
		prefix = ""
	}

	for modName, artifact := range spec.Modules {
		src := filepath.Join(targetDir, prefix+artifact+"."+ext)
		if _, err := os.Stat(src); err != nil {
			return BuildInfo{}, errors.Wrapf(err, "cargo artifact for module %q not found at %s", modName, src)
		}
		dest := filepath.Join(rp.Layout.Lib, modulePathFor(modName, "."+ext))
		if err := copyFile(src, dest); err != nil {
			return BuildInfo{}, err
		}
		info.InstalledFiles = append(info.InstalledFiles, dest)
	}

	for _, luaSrc := range spec.IncludeLuaSources {
		src := filepath.Join(rp.BuildDir, luaSrc)
		dest := filepath.Join(rp.Layout.Src, luaSrc)
		if err := copyFile(src, dest); err != nil {
			return BuildInfo{}, err
		}
		info.InstalledFiles = append(info.InstalledFiles, dest)
	}

	if err := installManifest(rp); err != nil {
		return BuildInfo{}, err
	}
	return info, nil
}
