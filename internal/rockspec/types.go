package rockspec

import "github.com/luapm/luapm/internal/version"

// SourceKind tags the RockSource variant.
type SourceKind int

const (
	SourceArchiveURL SourceKind = iota
	SourceGit
	SourceLocalFile
	SourceLocalDirectory
)

// RockSource describes how to obtain a package's sources.
type RockSource struct {
	Kind SourceKind

	// SourceArchiveURL / SourceLocalFile
	URL string

	// SourceGit
	GitURL string
	GitRef string // optional checkout ref (tag, branch, sha)

	// SourceLocalDirectory / SourceLocalFile
	Path string
}

// BuildKind tags the BuildSpec variant. The dispatch table is closed: a
// new backend is a deliberate, typed addition to this list and to
// build.Dispatch.
type BuildKind int

const (
	BuildBuiltin BuildKind = iota
	BuildMake
	BuildCMake
	BuildCommand
	BuildRustNative
	BuildTreesitterParser
	BuildLuaRocksCompat
)

// FileCategory is an install-manifest bucket.
type FileCategory string

const (
	CategoryLua  FileCategory = "lua"
	CategoryLib  FileCategory = "lib"
	CategoryConf FileCategory = "conf"
	CategoryBin  FileCategory = "bin"
)

// InstallManifest maps, per category, destination module/file name to
// source path relative to the build directory.
type InstallManifest map[FileCategory]map[string]string

// BuildSpec is the tagged build-plan variant plus the shared install
// manifest, patch list, and copy directories every backend honors.
type BuildSpec struct {
	Kind BuildKind

	Modules map[string]ModuleSource // BuildBuiltin: module name -> source(s)

	MakeSpec           MakeBuildSpec
	CMakeSpec          CMakeBuildSpec
	CommandSpec        CommandBuildSpec
	RustNativeSpec     RustNativeBuildSpec
	TreesitterSpec     TreesitterBuildSpec
	LuaRocksCompatName string

	Install      InstallManifest
	Patches      map[string]string // logical name -> unified diff text
	CopyDirs     []string
	BuildVariant map[string]string // free-form $(NAME) substitution extras
}

// ModuleSource is a single entry of BuildBuiltin's `modules` table: either
// a single .lua/.c file, or a list of C sources compiled together.
type ModuleSource struct {
	Sources []string
	Defines []string
	Libs    []string
	IncDirs []string
	LibDirs []string
}

type MakeBuildSpec struct {
	Makefile         string
	BuildTarget      string
	BuildVariables   map[string]string
	InstallTarget    string
	InstallVariables map[string]string
	NoInstall        bool
}

type CMakeBuildSpec struct {
	CMakeListsContent string // optional override; empty means use source's own
	Variables         map[string]string
	NoInstall         bool
}

type CommandBuildSpec struct {
	BuildCommand   string
	InstallCommand string
}

type RustNativeBuildSpec struct {
	Modules            map[string]string // module name -> built artifact name
	Target              string
	NoDefaultFeatures   bool
	Features            []string
	IncludeLuaSources   []string
}

type TreesitterBuildSpec struct {
	Language   string
	ABIVersion int // 0 means "use default"
	GenerateSources bool
	Queries    []string // relative paths to query files
}

// Dependency is a (PackageReq, optional per-platform override) entry.
type Dependency struct {
	Req version.PackageReq
}

// Rockspec is the parsed, typed form of a declarative manifest.
type Rockspec struct {
	RockspecFormat string // "1.0", "2.0", "3.0"; empty means 1.0/implicit

	Package     version.PackageName
	Version     version.PackageVersion
	Description Description

	SupportedPlatforms []string

	Dependencies         PerPlatform[[]Dependency]
	BuildDependencies    PerPlatform[[]Dependency]
	ExternalDependencies map[string]ExternalDependency
	TestDependencies     PerPlatform[[]Dependency]

	Source PerPlatform[RockSource]
	Build  PerPlatform[BuildSpec]
	Test   PerPlatform[TestSpec]
}

type Description struct {
	Summary string
	Detailed string
	License  string
	Homepage string
	Issues   string
	Maintainer string
	Labels   []string
}

type ExternalDependency struct {
	Header  string
	Library string
}

type TestSpec struct {
	Type    string // "busted", "command", ""
	Command string
	Script  string
}

// CurrentDependencies, CurrentBuildDependencies, CurrentTestDependencies,
// CurrentSource, and CurrentBuild apply the current-platform view,
// implementing spec §3's "current_platform() accessor".
func (r *Rockspec) CurrentDependencies() []Dependency      { return r.Dependencies.Resolve() }
func (r *Rockspec) CurrentBuildDependencies() []Dependency { return r.BuildDependencies.Resolve() }
func (r *Rockspec) CurrentTestDependencies() []Dependency  { return r.TestDependencies.Resolve() }
func (r *Rockspec) CurrentSource() RockSource               { return r.Source.Resolve() }
func (r *Rockspec) CurrentBuild() BuildSpec                  { return r.Build.Resolve() }
