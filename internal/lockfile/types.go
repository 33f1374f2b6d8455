// Package lockfile implements the persistent resolution record: resolved
// packages, constraints, integrity hashes, and the dependency graph,
// behind a read-only/mutable permission discipline (spec §3, §4.5).
package lockfile

import (
	"fmt"

	"github.com/luapm/luapm/internal/integrity"
	"github.com/luapm/luapm/internal/version"
)

// LocalPackageId is a stable, content-derived identifier: it is itself a
// hash of the fields listed in ComputeID, so "content_hash(p) == id" holds
// by construction (spec §3 invariant).
type LocalPackageId string

// SourceOrigin records where a LocalPackage's sources came from, encoded
// per spec §6 as "<kind>+<value>".
type SourceOrigin struct {
	Kind  string // luarocks_rockspec | luarocks_src_rock | luarocks_rock | rockspec | test
	Value string
}

func (o SourceOrigin) String() string {
	if o.Value == "" {
		return o.Kind
	}
	return o.Kind + "+" + o.Value
}

// Hashes holds the two content-addressed integrity strings a LocalPackage
// carries: one over the rockspec text, one over the fetched+built sources.
type Hashes struct {
	Rockspec string
	Source   string
}

// LocalPackage is a concrete, installed package record.
type LocalPackage struct {
	Spec         version.PackageSpec
	Constraint   string // serialized PackageVersionReq, "" meaning "any"
	Pinned       bool
	SourceOrigin SourceOrigin
	Hashes       Hashes
	Binaries     []string
	Dependencies []LocalPackageId
}

// ComputeID derives a LocalPackage's id from its identity-defining fields
// (name, version, constraint, pinned, source origin) — explicitly
// excluding hashes and dependencies, which may be recomputed without
// changing what the package *is* (spec §3).
func ComputeID(name version.PackageName, v version.PackageVersion, constraint string, pinned bool, origin SourceOrigin) LocalPackageId {
	raw := fmt.Sprintf("%s|%s|%s|%t|%s", name, v, constraint, pinned, origin)
	return LocalPackageId(integrity.HashBytes([]byte(raw)))
}

// Id recomputes this package's id from its current fields.
func (p LocalPackage) Id() LocalPackageId {
	return ComputeID(p.Spec.Name, p.Spec.Version, p.Constraint, p.Pinned, p.SourceOrigin)
}

// Section is one of the lockfile's three areas: regular, build, or test
// dependencies, each a closed sub-graph over its own rocks map.
type Section struct {
	Rocks        map[LocalPackageId]LocalPackage
	Dependencies map[LocalPackageId][]LocalPackageId
}

func newSection() Section {
	return Section{
		Rocks:        map[LocalPackageId]LocalPackage{},
		Dependencies: map[LocalPackageId][]LocalPackageId{},
	}
}

// Get returns the package with the given id, if present.
func (s Section) Get(id LocalPackageId) (LocalPackage, bool) {
	p, ok := s.Rocks[id]
	return p, ok
}

// MatchAll returns every package in the section matching req.
func (s Section) MatchAll(req version.PackageReq) []LocalPackageId {
	var out []LocalPackageId
	for id, p := range s.Rocks {
		if p.Spec.Satisfies(req) {
			out = append(out, id)
		}
	}
	return out
}

// SectionKind identifies one of the three lockfile sections.
type SectionKind string

const (
	SectionRegular SectionKind = "regular"
	SectionBuild   SectionKind = "build"
	SectionTest    SectionKind = "test"
)

// document is the lockfile's private representation, shared between
// ReadOnly and WriteGuard so that mutation is only possible through the
// type that exposes it (spec §9 "permission phantom").
type document struct {
	LuaVersion string
	Regular    Section
	Build      Section
	Test       Section
	path       string
}

func newDocument(luaVersion, path string) *document {
	return &document{
		LuaVersion: luaVersion,
		Regular:    newSection(),
		Build:      newSection(),
		Test:       newSection(),
		path:       path,
	}
}

func (d *document) section(kind SectionKind) *Section {
	switch kind {
	case SectionBuild:
		return &d.Build
	case SectionTest:
		return &d.Test
	default:
		return &d.Regular
	}
}
