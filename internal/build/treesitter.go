package build

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/lua"
)

// TreesitterBackend compiles a grammar's generated C parser into a shared
// library for the rock's declared language, sanity-checks each declared
// query file is readable, and installs the compiled parser plus queries/
// (spec §4.9, grounded on google-osv-scalibr's
// github.com/smacker/go-tree-sitter dependency).
type TreesitterBackend struct{}

func (b *TreesitterBackend) Run(ctx context.Context, rp RunParams) (BuildInfo, error) {
	if err := rp.Layout.EnsureDirs(); err != nil {
		return BuildInfo{}, err
	}
	spec := rp.Spec.TreesitterSpec
	info := BuildInfo{}

	if spec.GenerateSources {
		genArgs := []string{"generate"}
		if abi := abiVersionFor(spec.ABIVersion, rp.Config.TreeSitterLanguageVersion); abi != "" {
			genArgs = append(genArgs, "--abi", abi)
		}
		if err := runCommand(ctx, rp, "tree-sitter", genArgs...); err != nil {
			return BuildInfo{}, err
		}
	}

	parserSrc := filepath.Join(rp.BuildDir, "src", "parser.c")
	if _, err := os.Stat(parserSrc); err != nil {
		return BuildInfo{}, errors.Wrapf(err, "generated parser.c not found for language %q", spec.Language)
	}

	ext := PlatformLibExt(runtime.GOOS)
	dest := filepath.Join(rp.Layout.Lib, "parser."+ext)
	cc := orDefault(rp.Config.CC, "cc")
	args := []string{"-shared", "-fPIC", "-I", filepath.Join(rp.BuildDir, "src"), "-o", dest, parserSrc}
	scannerSrc := filepath.Join(rp.BuildDir, "src", "scanner.c")
	if _, err := os.Stat(scannerSrc); err == nil {
		args = append(args, scannerSrc)
	}
	if err := runCommand(ctx, rp, cc, args...); err != nil {
		return BuildInfo{}, err
	}
	info.InstalledFiles = append(info.InstalledFiles, dest)

	// The freshly built grammar is a standalone .so, not something this
	// process can dlopen, so query files can't be checked against the
	// rock's own language. For the one grammar go-tree-sitter ships a
	// Go binding for (Lua), load it and actually compile each query
	// against it with the real parser/query machinery; for any other
	// grammar fall back to confirming the query file is readable.
	if len(spec.Queries) > 0 {
		parser := sitter.NewParser()
		defer parser.Close()
		checkAgainstLua := strings.EqualFold(spec.Language, "lua")
		if checkAgainstLua {
			parser.SetLanguage(lua.GetLanguage())
		}
		for _, q := range spec.Queries {
			path := filepath.Join(rp.BuildDir, q)
			content, err := os.ReadFile(path)
			if err != nil {
				return BuildInfo{}, errors.Wrapf(err, "reading query file %s", q)
			}
			if checkAgainstLua {
				if _, err := sitter.NewQuery(content, lua.GetLanguage()); err != nil {
					return BuildInfo{}, errors.Wrapf(err, "compiling query file %s", q)
				}
			}
		}
	}

	for _, q := range spec.Queries {
		src := filepath.Join(rp.BuildDir, q)
		qdest := filepath.Join(rp.Layout.Etc, "queries", filepath.Base(q))
		if err := copyFile(src, qdest); err != nil {
			return BuildInfo{}, err
		}
		info.InstalledFiles = append(info.InstalledFiles, qdest)
	}

	if err := installManifest(rp); err != nil {
		return BuildInfo{}, err
	}
	return info, nil
}

// abiVersionFor resolves the ABI version passed to `tree-sitter generate
// --abi`. The rockspec's own declaration wins; otherwise the
// TREE_SITTER_LANGUAGE_VERSION environment override applies. Returns ""
// when neither is set, letting tree-sitter use its own default.
func abiVersionFor(specABI int, envOverride string) string {
	if specABI != 0 {
		return strconv.Itoa(specABI)
	}
	return strings.TrimSpace(envOverride)
}
