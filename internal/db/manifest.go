// Package db implements the remote package database abstraction: search,
// latest-version, and latest-match queries against one or more remote
// indexes, backed by a locally cached manifest (spec §4.6, §6).
package db

import (
	"github.com/luapm/luapm/internal/version"
)

// ManifestEntry is one published build of a package version, per spec §6's
// `repository: { <name>: { <version>: [ { arch, ... } ] } }` shape.
type ManifestEntry struct {
	Arch string
}

// Manifest is the parsed remote index document.
type Manifest struct {
	Repository map[string]map[string][]ManifestEntry
}

// Versions returns the parsed PackageVersions available for name, in
// ascending order.
func (m Manifest) Versions(name version.PackageName) ([]version.PackageVersion, error) {
	entries, ok := m.Repository[name.String()]
	if !ok {
		return nil, nil
	}
	out := make([]version.PackageVersion, 0, len(entries))
	for raw := range entries {
		v, err := version.ParseVersion(raw)
		if err != nil {
			continue // tolerate malformed entries from third-party indexes
		}
		out = append(out, v)
	}
	sortVersions(out)
	return out, nil
}

func sortVersions(vs []version.PackageVersion) {
	for i := 1; i < len(vs); i++ {
		for j := i; j > 0 && vs[j].LessThan(vs[j-1]); j-- {
			vs[j], vs[j-1] = vs[j-1], vs[j]
		}
	}
}
