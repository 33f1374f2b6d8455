// Package remove implements the parallel package remover (spec §4.13):
// delete each package's tree root and its top-level bin/ entries, then
// compact the lockfile in one MapThenFlush.
package remove

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/luapm/luapm/internal/lockfile"
	"github.com/luapm/luapm/internal/tree"
	"github.com/pkg/errors"
)

// Result reports one package's removal outcome.
type Result struct {
	Id  lockfile.LocalPackageId
	Err error
}

// Run deletes every id's package root and bin/ symlinks in parallel,
// then compacts the tree's lockfile in a single write-guard scope. IDs
// that fail to delete are skipped in the lockfile compaction (their
// entries are left intact so a retry can find them again).
func Run(ids []lockfile.LocalPackageId, t *tree.Tree) ([]Result, error) {
	guard, err := t.LockfileMut()
	if err != nil {
		return nil, err
	}
	defer guard.Close()

	results := make([]Result, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id lockfile.LocalPackageId) {
			defer wg.Done()
			results[i] = Result{Id: id, Err: removeOne(id, t, guard)}
		}(i, id)
	}
	wg.Wait()

	if err := guard.MapThenFlush(func(w *lockfile.WriteGuard) error {
		for _, r := range results {
			if r.Err == nil {
				w.Remove(lockfile.SectionRegular, r.Id)
			}
		}
		return nil
	}); err != nil {
		return results, err
	}
	return results, nil
}

func removeOne(id lockfile.LocalPackageId, t *tree.Tree, guard *tree.WriteGuard) error {
	p, ok := guard.Section(lockfile.SectionRegular).Get(id)
	if !ok {
		return errors.Errorf("package %s not in lockfile", id)
	}

	root := t.RootFor(p)
	if err := os.RemoveAll(root); err != nil {
		return errors.Wrapf(err, "removing tree root for %s", p.Spec)
	}

	for _, bin := range p.Binaries {
		path := filepath.Join(t.BinRoot(), bin)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "removing binary %s for %s", bin, p.Spec)
		}
	}
	return nil
}
