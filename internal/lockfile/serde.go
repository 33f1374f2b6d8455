package lockfile

import (
	"os"
	"path/filepath"

	"github.com/luapm/luapm/internal/version"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// onDiskDocument mirrors spec §6's on-disk shape: lua_version plus three
// named sections, each a map of id -> rock and id -> dependency ids.
type onDiskDocument struct {
	LuaVersion string               `toml:"lua_version"`
	Regular    onDiskSection        `toml:"regular"`
	Build      onDiskSection        `toml:"build"`
	Test       onDiskSection        `toml:"test"`
}

type onDiskSection struct {
	Rocks        map[string]onDiskPackage   `toml:"rocks"`
	Dependencies map[string][]string        `toml:"dependencies"`
}

type onDiskPackage struct {
	Name       string   `toml:"name"`
	Version    string   `toml:"version"`
	Pinned     bool     `toml:"pinned"`
	Constraint string   `toml:"constraint"`
	Source     string   `toml:"source"`
	HashRock   string   `toml:"hash_rockspec"`
	HashSource string   `toml:"hash_source"`
	Binaries   []string `toml:"binaries"`
}

func toOnDisk(d *document) onDiskDocument {
	return onDiskDocument{
		LuaVersion: d.LuaVersion,
		Regular:    sectionToOnDisk(d.Regular),
		Build:      sectionToOnDisk(d.Build),
		Test:       sectionToOnDisk(d.Test),
	}
}

func sectionToOnDisk(s Section) onDiskSection {
	out := onDiskSection{
		Rocks:        map[string]onDiskPackage{},
		Dependencies: map[string][]string{},
	}
	for id, p := range s.Rocks {
		out.Rocks[string(id)] = onDiskPackage{
			Name:       p.Spec.Name.String(),
			Version:    p.Spec.Version.String(),
			Pinned:     p.Pinned,
			Constraint: p.Constraint,
			Source:     p.SourceOrigin.String(),
			HashRock:   p.Hashes.Rockspec,
			HashSource: p.Hashes.Source,
			Binaries:   p.Binaries,
		}
	}
	for id, deps := range s.Dependencies {
		strs := make([]string, 0, len(deps))
		for _, d := range deps {
			strs = append(strs, string(d))
		}
		out.Dependencies[string(id)] = strs
	}
	return out
}

func fromOnDisk(path string, raw onDiskDocument) (*document, error) {
	d := newDocument(raw.LuaVersion, path)
	var err error
	if d.Regular, err = sectionFromOnDisk(raw.Regular); err != nil {
		return nil, errors.Wrap(err, "regular section")
	}
	if d.Build, err = sectionFromOnDisk(raw.Build); err != nil {
		return nil, errors.Wrap(err, "build section")
	}
	if d.Test, err = sectionFromOnDisk(raw.Test); err != nil {
		return nil, errors.Wrap(err, "test section")
	}
	return d, nil
}

func sectionFromOnDisk(raw onDiskSection) (Section, error) {
	s := newSection()
	for idStr, rp := range raw.Rocks {
		name, err := version.NewPackageName(rp.Name)
		if err != nil {
			return Section{}, err
		}
		v, err := version.ParseVersion(rp.Version)
		if err != nil {
			return Section{}, err
		}
		kind, value := splitSourceOrigin(rp.Source)
		p := LocalPackage{
			Spec:         version.PackageSpec{Name: name, Version: v},
			Constraint:   rp.Constraint,
			Pinned:       rp.Pinned,
			SourceOrigin: SourceOrigin{Kind: kind, Value: value},
			Hashes:       Hashes{Rockspec: rp.HashRock, Source: rp.HashSource},
			Binaries:     rp.Binaries,
		}
		s.Rocks[LocalPackageId(idStr)] = p
	}
	for idStr, depStrs := range raw.Dependencies {
		deps := make([]LocalPackageId, 0, len(depStrs))
		for _, ds := range depStrs {
			deps = append(deps, LocalPackageId(ds))
		}
		s.Dependencies[LocalPackageId(idStr)] = deps
	}
	return s, nil
}

func splitSourceOrigin(s string) (kind, value string) {
	for i := 0; i < len(s); i++ {
		if s[i] == '+' {
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}

// Load reads a lockfile from disk, or returns an empty document for the
// given Lua version if no file exists yet (spec §3 "created lazily").
func Load(path, luaVersion string) (*document, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return newDocument(luaVersion, path), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading lockfile %s", path)
	}
	var raw onDiskDocument
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "parsing lockfile %s", path)
	}
	return fromOnDisk(path, raw)
}

// flush serializes the document and writes it atomically: encode to a
// sibling temp file, then rename over the destination (spec §4.5).
func flush(d *document) error {
	raw := toOnDisk(d)
	data, err := toml.Marshal(raw)
	if err != nil {
		return errors.Wrap(err, "encoding lockfile")
	}

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".lockfile-*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating lockfile temp file")
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, "writing lockfile temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "closing lockfile temp file")
	}
	if err := os.Rename(tmpPath, d.path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "renaming lockfile temp file onto %s", d.path)
	}
	return nil
}
