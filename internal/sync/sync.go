// Package sync reconciles a destination tree against a source lockfile,
// optionally narrowed by a requirement set (spec §4.12).
package sync

import (
	"context"

	"github.com/luapm/luapm/internal/build"
	"github.com/luapm/luapm/internal/db"
	"github.com/luapm/luapm/internal/install"
	"github.com/luapm/luapm/internal/lockfile"
	"github.com/luapm/luapm/internal/remove"
	"github.com/luapm/luapm/internal/resolve"
	"github.com/luapm/luapm/internal/tree"
	"github.com/luapm/luapm/internal/version"
	"github.com/pkg/errors"
)

// Options configures one Run call.
type Options struct {
	Requirements      []version.PackageReq
	ValidateIntegrity bool
	Database          *db.Database
	LuaVersion        string
	Install           install.Config
}

// Run reconciles destTree against srcLockfile per spec §4.12:
//  1. compute package_sync_spec(R) against S, dropping to_remove from the
//     working copy of S and installing to_add into it;
//  2. diff(S, D): install what's missing from the destination tree,
//     remove what's no longer in S;
//  3. optionally validate integrity of newly installed packages;
//  4. merge the working copy of S into D on success.
func Run(ctx context.Context, destTree *tree.Tree, srcLockfile lockfile.ReadOnly, opts Options) error {
	working := srcLockfile.Clone()
	workingSec := working.Section(lockfile.SectionRegular)

	if len(opts.Requirements) > 0 {
		syncSpec := lockfile.PackageSyncSpec(working, lockfile.SectionRegular, opts.Requirements)

		for _, id := range syncSpec.ToRemove {
			delete(workingSec.Rocks, id)
			delete(workingSec.Dependencies, id)
		}

		if len(syncSpec.ToAdd) > 0 && opts.Database != nil {
			added, err := resolveAndInstall(ctx, syncSpec.ToAdd, destTree, opts)
			if err != nil {
				return errors.Wrap(err, "installing packages added to the source lockfile")
			}
			for _, p := range added {
				workingSec.Rocks[p.Id()] = p
			}
		}
	}

	destRO, err := destTree.Lockfile()
	if err != nil {
		return err
	}
	diff := lockfile.DiffSection(working, destRO, lockfile.SectionRegular)

	var newlyInstalled []lockfile.LocalPackage
	if len(diff.Added) > 0 && opts.Database != nil {
		var reqs []version.PackageReq
		for _, id := range diff.Added {
			p, ok := workingSec.Get(id)
			if !ok {
				continue
			}
			reqs = append(reqs, requirementFor(p))
		}
		newlyInstalled, err = resolveAndInstall(ctx, reqs, destTree, opts)
		if err != nil {
			return errors.Wrap(err, "installing packages missing from the destination tree")
		}
	}

	if len(diff.Removed) > 0 {
		if _, err := remove.Run(diff.Removed, destTree); err != nil {
			return errors.Wrap(err, "removing packages absent from the source lockfile")
		}
	}

	if opts.ValidateIntegrity {
		if err := validateNewInstalls(newlyInstalled, working); err != nil {
			return err
		}
	}

	return mergeLockfiles(working, destTree)
}

// requirementFor derives a requirement from a lockfile entry's stored
// constraint, or an unconstrained requirement if none was recorded.
func requirementFor(p lockfile.LocalPackage) version.PackageReq {
	req := version.PackageReq{Name: p.Spec.Name}
	if p.Constraint != "" {
		if r, err := version.ParseRequirement(p.Constraint); err == nil {
			req.Req = r
		}
	}
	return req
}

// resolveAndInstall is a small helper shared by the two install points
// in Run: reqs are never pins, since §4.5's sync spec only reasons about
// requirement satisfaction, not pin state.
func resolveAndInstall(ctx context.Context, reqs []version.PackageReq, destTree *tree.Tree, opts Options) ([]lockfile.LocalPackage, error) {
	requests := make([]resolve.Request, len(reqs))
	for i, r := range reqs {
		requests[i] = resolve.Request{Req: r, Behaviour: build.NoForce}
	}
	specs, err := resolve.Resolve(ctx, requests, opts.Database, destTree, opts.LuaVersion)
	if err != nil {
		return nil, err
	}
	return install.Run(ctx, specs, destTree, opts.Install)
}

// validateNewInstalls recomputes and compares hashes for every newly
// installed package against the source lockfile's stored hashes (spec
// §4.12 step 3, §8 E6); any mismatch fails the sync.
func validateNewInstalls(installed []lockfile.LocalPackage, src lockfile.ReadOnly) error {
	for _, p := range installed {
		srcEntry, ok := src.Section(lockfile.SectionRegular).Get(p.Id())
		if !ok {
			continue
		}
		if err := integrityMatch(srcEntry, p); err != nil {
			return err
		}
	}
	return nil
}

func integrityMatch(want, got lockfile.LocalPackage) error {
	if want.Hashes != got.Hashes {
		return errors.Errorf("%s integrity mismatch after sync: expected rockspec=%s source=%s, got rockspec=%s source=%s",
			got.Spec, want.Hashes.Rockspec, want.Hashes.Source, got.Hashes.Rockspec, got.Hashes.Source)
	}
	return nil
}

// mergeLockfiles copies every package and dependency edge from src into
// dest's lockfile, including newly-added packages' ids (spec §4.12 step
// 4), in a single write-guard scope.
func mergeLockfiles(src lockfile.ReadOnly, destTree *tree.Tree) error {
	guard, err := destTree.LockfileMut()
	if err != nil {
		return err
	}
	defer guard.Close()

	return guard.MapThenFlush(func(w *lockfile.WriteGuard) error {
		for _, kind := range []lockfile.SectionKind{lockfile.SectionRegular, lockfile.SectionBuild, lockfile.SectionTest} {
			sec := src.Section(kind)
			for id, p := range sec.Rocks {
				w.Insert(kind, p, sec.Dependencies[id])
			}
		}
		return nil
	})
}
