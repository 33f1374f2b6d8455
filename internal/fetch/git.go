package fetch

import (
	"os"
	"os/exec"

	"github.com/pkg/errors"
)

// shallowClone performs a depth=1 clone, which Masterminds/vcs's Get()
// does not expose directly. Used when a RockSource.Git carries no
// checkout ref (spec §4.7: "if no checkout ref, use depth=1").
func shallowClone(url, dest string) error {
	if err := os.RemoveAll(dest); err != nil {
		return err
	}
	cmd := exec.Command("git", "clone", "--depth=1", url, dest)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "git clone --depth=1 %s: %s", url, string(out))
	}
	return nil
}
