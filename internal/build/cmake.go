package build

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CMakeBackend configures a build directory with `cmake` and then invokes
// `cmake --build` / `cmake --install` (spec §4.8).
type CMakeBackend struct{}

func (b *CMakeBackend) Run(ctx context.Context, rp RunParams) (BuildInfo, error) {
	if err := rp.Layout.EnsureDirs(); err != nil {
		return BuildInfo{}, err
	}
	spec := rp.Spec.CMakeSpec

	if spec.CMakeListsContent != "" {
		if err := os.WriteFile(filepath.Join(rp.BuildDir, "CMakeLists.txt"), []byte(spec.CMakeListsContent), 0o644); err != nil {
			return BuildInfo{}, err
		}
	}

	binDir := filepath.Join(rp.BuildDir, "cmake-build")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return BuildInfo{}, err
	}

	cmake := orDefault(rp.Config.CMake, "cmake")
	configArgs := []string{
		"-S", rp.BuildDir, "-B", binDir,
		"-DCMAKE_INSTALL_PREFIX=" + rp.Layout.Root,
		"-DCMAKE_INSTALL_LIBDIR=" + rp.Layout.Lib,
	}
	for k, v := range substituteMap(spec.Variables, rp) {
		configArgs = append(configArgs, "-D"+k+"="+v)
	}
	if len(rp.Config.CMakeModulePath) > 0 {
		configArgs = append(configArgs, "-DCMAKE_MODULE_PATH="+strings.Join(rp.Config.CMakeModulePath, ";"))
	}

	if err := runCommand(ctx, rp, cmake, configArgs...); err != nil {
		return BuildInfo{}, err
	}
	if err := runCommand(ctx, rp, cmake, "--build", binDir); err != nil {
		return BuildInfo{}, err
	}

	if !spec.NoInstall && !rp.NoInstall {
		if err := runCommand(ctx, rp, cmake, "--install", binDir); err != nil {
			return BuildInfo{}, err
		}
	}

	if err := installManifest(rp); err != nil {
		return BuildInfo{}, err
	}
	return BuildInfo{}, nil
}

func runCommand(ctx context.Context, rp RunParams, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = rp.BuildDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		status := -1
		if cmd.ProcessState != nil {
			status = cmd.ProcessState.ExitCode()
		}
		return &CommandError{
			Command: name + " " + strings.Join(args, " "),
			Status:  status,
			Stdout:  string(out),
			Cause:   err,
		}
	}
	return nil
}
