package rockspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalRockspec = `
package = "lua-cjson"
version = "2.1.0-1"
source = {
   url = "https://example.test/lua-cjson-2.1.0.tar.gz"
}
dependencies = {
   "lua >= 5.1",
}
build = {
   type = "builtin",
   modules = {
      cjson = "lua_cjson.c",
   },
}
`

func TestParseMinimalRockspec(t *testing.T) {
	r, err := Parse(minimalRockspec)
	require.NoError(t, err)

	assert.Equal(t, "lua-cjson", r.Package.String())
	assert.Equal(t, "2.1.0-1", r.Version.String())
	assert.Equal(t, SourceArchiveURL, r.CurrentSource().Kind)
	assert.Equal(t, "https://example.test/lua-cjson-2.1.0.tar.gz", r.CurrentSource().URL)

	deps := r.CurrentDependencies()
	require.Len(t, deps, 1)
	assert.Equal(t, "lua", deps[0].Req.Name.String())

	build := r.CurrentBuild()
	assert.Equal(t, BuildBuiltin, build.Kind)
	require.Contains(t, build.Modules, "cjson")
	assert.Equal(t, []string{"lua_cjson.c"}, build.Modules["cjson"].Sources)
}

func TestParseRejectsMissingPackage(t *testing.T) {
	_, err := Parse(`version = "1.0.0"
source = { url = "https://example.test/x.tar.gz" }`)
	require.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "package", verr.Field)
}

func TestParseRejectsMissingSource(t *testing.T) {
	_, err := Parse(`package = "foo"
version = "1.0.0"`)
	require.Error(t, err)
}

func TestParseGitSource(t *testing.T) {
	r, err := Parse(`
package = "foo"
version = "scm"
source = {
   git = "https://example.test/foo.git",
   tag = "v1.0.0",
}
`)
	require.NoError(t, err)
	src := r.CurrentSource()
	assert.Equal(t, SourceGit, src.Kind)
	assert.Equal(t, "https://example.test/foo.git", src.GitURL)
	assert.Equal(t, "v1.0.0", src.GitRef)
}

func TestParsePlatformOverrides(t *testing.T) {
	r, err := Parse(`
package = "foo"
version = "1.0.0"
source = { url = "https://example.test/foo.tar.gz" }
dependencies = {
   "bar >= 1.0",
   platforms = {
      linux = { "bar >= 2.0", "baz" },
   },
}
build = { type = "builtin" }
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"bar >= 1.0"}, depStrings(r.Dependencies.Base))
}

func depStrings(deps []Dependency) []string {
	var out []string
	for _, d := range deps {
		s := d.Req.Name.String()
		if d.Req.Req.String() != "" {
			s += " " + d.Req.Req.String()
		}
		out = append(out, s)
	}
	return out
}

func TestParseBestEffortDropsMalformedFields(t *testing.T) {
	r, err := ParseBestEffort(`
package = "foo"
version = "1.0.0"
dependencies = {
   "not a valid dep !!!",
   "bar >= 1.0",
}
`)
	require.NoError(t, err)
	deps := r.CurrentDependencies()
	require.Len(t, deps, 1)
	assert.Equal(t, "bar", deps[0].Req.Name.String())
}

func TestParseValidateRejectsGarbage(t *testing.T) {
	_, err := ParseBestEffort(`this is not lua {{{`)
	require.Error(t, err)
}

func TestLegacyBuildBackendNameFallback(t *testing.T) {
	r, err := Parse(`
rockspec_format = "1.0"
package = "foo"
version = "1.0.0"
source = { url = "https://example.test/foo.tar.gz" }
dependencies = { "cmake-tool >= 1.0" }
build = { type = "builtin" }
`)
	require.NoError(t, err)
	name, ok := r.LegacyBuildBackendName()
	assert.True(t, ok)
	assert.Equal(t, "cmake", name)
}

func TestLegacyBuildBackendNameFormat3NoFallback(t *testing.T) {
	r, err := Parse(`
rockspec_format = "3.0"
package = "foo"
version = "1.0.0"
source = { url = "https://example.test/foo.tar.gz" }
build = { type = "builtin" }
`)
	require.NoError(t, err)
	_, ok := r.LegacyBuildBackendName()
	assert.False(t, ok)
}
