package db

import (
	"github.com/armon/go-radix"
	"github.com/luapm/luapm/internal/version"
	"github.com/pkg/errors"
)

// Database is a primary index plus zero or more extras, queried in order
// with first-satisfying-result-wins semantics (spec §4.6).
type Database struct {
	Primary *Index
	Extras  []*Index

	// names is a radix trie over every package name this Database has
	// observed, supporting prefix search for `search`-style CLI lookups
	// without a linear scan (spec's "Remote package DB" search surface;
	// the same typed-wrapper idiom as the resolver's visited-set trie).
	names *radix.Tree
}

func NewDatabase(primary *Index, extras ...*Index) *Database {
	return &Database{Primary: primary, Extras: extras, names: radix.New()}
}

func (db *Database) indexes() []*Index {
	return append([]*Index{db.Primary}, db.Extras...)
}

// Find returns the first satisfying match for req across the primary
// index then the extras, in configured order.
func (db *Database) Find(name version.PackageName, req version.PackageVersionReq, luaVersion string) (version.PackageSpec, *Index, error) {
	db.names.Insert(name.String(), struct{}{})
	var lastErr error
	for _, idx := range db.indexes() {
		v, ok, err := idx.LatestMatch(name, req, luaVersion)
		if err != nil {
			lastErr = err
			continue
		}
		if ok {
			return version.PackageSpec{Name: name, Version: v}, idx, nil
		}
	}
	if lastErr != nil {
		return version.PackageSpec{}, nil, errors.Wrapf(lastErr, "resolving %s %s", name, req)
	}
	return version.PackageSpec{}, nil, errors.Errorf("no index satisfies %s %s", name, req)
}

// SearchPrefix returns every observed package name starting with prefix.
// Names are only known once they've been looked up via Find in this
// process's lifetime; this supports interactive narrowing of an
// already-warm session, not a cold index-wide prefix scan.
func (db *Database) SearchPrefix(prefix string) []string {
	var out []string
	db.names.WalkPrefix(prefix, func(s string, _ interface{}) bool {
		out = append(out, s)
		return false
	})
	return out
}
