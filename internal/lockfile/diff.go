package lockfile

import (
	"github.com/luapm/luapm/internal/integrity"
	"github.com/luapm/luapm/internal/version"
)

// Diff is the result of comparing a source document S against a
// destination document D within one section: ids present in S but not D,
// and ids present in D but not S (spec §4.5).
type Diff struct {
	Added   []LocalPackageId
	Removed []LocalPackageId
}

// DiffSection computes Diff(S, D) for a single section kind.
func DiffSection(s, d ReadOnly, kind SectionKind) Diff {
	sSec, dSec := s.Section(kind), d.Section(kind)
	var out Diff
	for id := range sSec.Rocks {
		if _, ok := dSec.Rocks[id]; !ok {
			out.Added = append(out.Added, id)
		}
	}
	for id := range dSec.Rocks {
		if _, ok := sSec.Rocks[id]; !ok {
			out.Removed = append(out.Removed, id)
		}
	}
	return out
}

// SyncSpec is the installer/remover work list computed against a set of
// user requirements (spec §4.5 "package_sync_spec").
type SyncSpec struct {
	ToAdd    []version.PackageReq
	ToRemove []LocalPackageId
}

// PackageSyncSpec computes, for a given requirement set, which currently
// locked packages no longer satisfy any requirement (ToRemove) and which
// requirements have no locked package satisfying them (ToAdd).
func PackageSyncSpec(src ReadOnly, kind SectionKind, reqs []version.PackageReq) SyncSpec {
	sec := src.Section(kind)
	var spec SyncSpec

	satisfied := make(map[int]bool, len(reqs))
	keep := map[LocalPackageId]bool{}
	for id, p := range sec.Rocks {
		matchedAny := false
		for i, req := range reqs {
			if p.Spec.Satisfies(req) {
				satisfied[i] = true
				matchedAny = true
			}
		}
		if matchedAny {
			keep[id] = true
		}
	}
	for id := range sec.Rocks {
		if !keep[id] {
			spec.ToRemove = append(spec.ToRemove, id)
		}
	}
	for i, req := range reqs {
		if !satisfied[i] {
			spec.ToAdd = append(spec.ToAdd, req)
		}
	}
	return spec
}

// ValidateIntegrity recomputes source and rockspec hashes over the
// installed files at root (sourceDir, rockspecText) and compares them
// against p's stored hashes (spec §4.5, §8 E6). A mismatch is returned as
// an *integrity.Mismatch, not a panic — callers decide whether to treat it
// as fatal.
func ValidateIntegrity(p LocalPackage, sourceDir string, rockspecText []byte) error {
	sourceHash, err := integrity.HashDir(sourceDir)
	if err != nil {
		return err
	}
	if err := integrity.Verify(p.Spec.String()+" source", p.Hashes.Source, sourceHash); err != nil {
		return err
	}
	rockspecHash := integrity.HashBytes(rockspecText)
	return integrity.Verify(p.Spec.String()+" rockspec", p.Hashes.Rockspec, rockspecHash)
}
