package build

import (
	"context"

	"github.com/mattn/go-shellwords"
	"github.com/pkg/errors"
)

// CommandBackend runs the rockspec's literal build_command/install_command
// strings through a shell-word tokenizer and os/exec, after $(NAME)
// substitution (spec §4.8).
type CommandBackend struct{}

func (b *CommandBackend) Run(ctx context.Context, rp RunParams) (BuildInfo, error) {
	if err := rp.Layout.EnsureDirs(); err != nil {
		return BuildInfo{}, err
	}
	spec := rp.Spec.CommandSpec

	if spec.BuildCommand != "" {
		if err := runShellCommand(ctx, rp, Substitute(spec.BuildCommand, rp)); err != nil {
			return BuildInfo{}, err
		}
	}
	if !rp.NoInstall && spec.InstallCommand != "" {
		if err := runShellCommand(ctx, rp, Substitute(spec.InstallCommand, rp)); err != nil {
			return BuildInfo{}, err
		}
	}

	if err := installManifest(rp); err != nil {
		return BuildInfo{}, err
	}
	return BuildInfo{}, nil
}

func runShellCommand(ctx context.Context, rp RunParams, line string) error {
	tokens, err := shellwords.Parse(line)
	if err != nil {
		return errors.Wrapf(err, "parsing build command %q", line)
	}
	if len(tokens) == 0 {
		return nil
	}
	return runCommand(ctx, rp, tokens[0], tokens[1:]...)
}
