package lockfile

import (
	"github.com/pkg/errors"
)

// ReadOnly exposes query-only access to a lockfile document. It may be
// cloned (shared) freely among readers (spec §5). The zero value is not
// valid; construct via Load.
type ReadOnly struct {
	d *document
}

// NewReadOnly wraps a loaded document as a ReadOnly view.
func NewReadOnly(d *document) ReadOnly { return ReadOnly{d: d} }

func (r ReadOnly) LuaVersion() string { return r.d.LuaVersion }

func (r ReadOnly) Section(kind SectionKind) Section { return *r.d.section(kind) }

func (r ReadOnly) Get(kind SectionKind, id LocalPackageId) (LocalPackage, bool) {
	return r.d.section(kind).Get(id)
}

// Clone produces an independent ReadOnly snapshot (deep copy of the
// sections), safe to hand to a concurrent reader while a WriteGuard later
// mutates the original tree's document.
func (r ReadOnly) Clone() ReadOnly {
	clone := newDocument(r.d.LuaVersion, r.d.path)
	clone.Regular = cloneSection(r.d.Regular)
	clone.Build = cloneSection(r.d.Build)
	clone.Test = cloneSection(r.d.Test)
	return ReadOnly{d: clone}
}

func cloneSection(s Section) Section {
	out := newSection()
	for k, v := range s.Rocks {
		out.Rocks[k] = v
	}
	for k, v := range s.Dependencies {
		cp := make([]LocalPackageId, len(v))
		copy(cp, v)
		out.Dependencies[k] = cp
	}
	return out
}

// WriteGuard is the unique mutation handle for a lockfile document. It is
// acquired via Tree's write lock (see internal/tree) and flushes the
// document to disk when Close is called — forgetting to call Close is a
// bug (spec §9), so callers should defer it immediately after acquiring
// the guard.
type WriteGuard struct {
	d        *document
	flushed  bool
	readOnly *ReadOnly // optional snapshot handed out before mutation, for diffing
}

// NewWriteGuard wraps a loaded document as a mutable WriteGuard.
func NewWriteGuard(d *document) *WriteGuard { return &WriteGuard{d: d} }

func (w *WriteGuard) LuaVersion() string { return w.d.LuaVersion }

func (w *WriteGuard) Section(kind SectionKind) *Section { return w.d.section(kind) }

// Insert adds or replaces a package and its dependency edges within kind.
func (w *WriteGuard) Insert(kind SectionKind, p LocalPackage, deps []LocalPackageId) {
	s := w.d.section(kind)
	s.Rocks[p.Id()] = p
	s.Dependencies[p.Id()] = deps
}

// Remove deletes a package and all inbound edges that reference it (spec
// §3 invariant: "Removing a package also removes inbound edges").
func (w *WriteGuard) Remove(kind SectionKind, id LocalPackageId) {
	s := w.d.section(kind)
	delete(s.Rocks, id)
	delete(s.Dependencies, id)
	for from, deps := range s.Dependencies {
		filtered := deps[:0]
		for _, d := range deps {
			if d != id {
				filtered = append(filtered, d)
			}
		}
		s.Dependencies[from] = filtered
	}
}

// SetPinned mutates a package's pinned flag. Per spec §3, pinning changes
// the package's id (constraint/pinned are id-defining fields), so this
// removes the old entry and re-inserts under the new id, preserving edges.
func (w *WriteGuard) SetPinned(kind SectionKind, id LocalPackageId, pinned bool) (LocalPackageId, error) {
	s := w.d.section(kind)
	p, ok := s.Get(id)
	if !ok {
		return "", errors.Errorf("package %s not found in %s section", id, kind)
	}
	if p.Pinned == pinned {
		return id, errors.Errorf("package %s is already %s", id, pinnedWord(pinned))
	}
	deps := s.Dependencies[id]
	p.Pinned = pinned
	newID := p.Id()
	if _, conflict := s.Get(newID); conflict {
		return "", errors.Errorf("cannot change pin state: %s is already installed under the target state", p.Spec)
	}
	w.Remove(kind, id)
	w.Insert(kind, p, deps)
	return newID, nil
}

func pinnedWord(p bool) string {
	if p {
		return "pinned"
	}
	return "unpinned"
}

// MapThenFlush applies f to a mutable temporary and flushes on success —
// the surface for one-shot mutations outside a long-lived WriteGuard scope
// (spec §4.5).
func (w *WriteGuard) MapThenFlush(f func(*WriteGuard) error) error {
	if err := f(w); err != nil {
		return err
	}
	return w.Close()
}

// Close flushes the document to disk. Safe to call multiple times; only
// the first call writes.
func (w *WriteGuard) Close() error {
	if w.flushed {
		return nil
	}
	w.flushed = true
	return flush(w.d)
}

// ReadOnlySnapshot returns a ReadOnly view over the same in-memory state
// (not yet flushed), useful for diffing before/after a batch of edits.
func (w *WriteGuard) ReadOnlySnapshot() ReadOnly {
	return ReadOnly{d: w.d}.Clone()
}
