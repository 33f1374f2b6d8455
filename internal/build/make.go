package build

import (
	"context"
)

// MakeBackend drives a Makefile-based build: `make <build_target>` then,
// unless NoInstall, `make <install_target>` with PREFIX/LIBDIR/LUADIR
// etc. passed as variables (spec §4.8, grounded on the teacher's captured
// stdout/stderr `os/exec` pattern in vcs_source.go).
type MakeBackend struct{}

func (b *MakeBackend) Run(ctx context.Context, rp RunParams) (BuildInfo, error) {
	if err := rp.Layout.EnsureDirs(); err != nil {
		return BuildInfo{}, err
	}
	spec := rp.Spec.MakeSpec

	if err := runMake(ctx, rp, spec.Makefile, spec.BuildTarget, substituteMap(spec.BuildVariables, rp)); err != nil {
		return BuildInfo{}, err
	}

	noInstall := spec.NoInstall || rp.NoInstall
	if !noInstall {
		vars := substituteMap(spec.InstallVariables, rp)
		if vars == nil {
			vars = map[string]string{}
		}
		for k, v := range defaultInstallVars(rp) {
			if _, ok := vars[k]; !ok {
				vars[k] = v
			}
		}
		target := spec.InstallTarget
		if target == "" {
			target = "install"
		}
		if err := runMake(ctx, rp, spec.Makefile, target, vars); err != nil {
			return BuildInfo{}, err
		}
	}

	if err := installManifest(rp); err != nil {
		return BuildInfo{}, err
	}
	return BuildInfo{}, nil
}

func defaultInstallVars(rp RunParams) map[string]string {
	return map[string]string{
		"PREFIX":  rp.Layout.Root,
		"LIBDIR":  rp.Layout.Lib,
		"LUADIR":  rp.Layout.Src,
		"BINDIR":  rp.Layout.Bin,
		"CC":      orDefault(rp.Config.CC, "cc"),
	}
}

func runMake(ctx context.Context, rp RunParams, makefile, target string, vars map[string]string) error {
	make := orDefault(rp.Config.Make, "make")
	args := []string{}
	if makefile != "" {
		args = append(args, "-f", makefile)
	}
	if target != "" {
		args = append(args, target)
	}
	for k, v := range vars {
		args = append(args, k+"="+v)
	}
	return runCommand(ctx, rp, make, args...)
}
