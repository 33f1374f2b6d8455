package main

import (
	"archive/zip"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/luapm/luapm/internal/lockfile"
	"github.com/luapm/luapm/internal/tree"
)

type packCommand struct{}

func (c *packCommand) Name() string      { return "pack" }
func (c *packCommand) Args() string      { return "<rock> [<output.rock>]" }
func (c *packCommand) ShortHelp() string { return "Pack an installed rock into a binary archive" }
func (c *packCommand) LongHelp() string {
	return "Archive an installed rock's lua/lib/bin/doc files plus a rock_manifest table into a zip (spec §6 'Rock archive format')."
}

func (c *packCommand) Run(ctx *Ctx, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("pack requires a rock name")
	}
	req, err := parsePackageReq(args[0])
	if err != nil {
		return err
	}
	match, err := ctx.Tree.MatchRocks(req)
	if err != nil {
		return err
	}
	id, ok := match.Single()
	if !ok {
		return fmt.Errorf("%s: expected exactly one installed match, got %d", req.Name, len(match.Ids))
	}
	ro, err := ctx.Tree.Lockfile()
	if err != nil {
		return err
	}
	p, _ := ro.Get(lockfile.SectionRegular, id)
	layout := ctx.Tree.RockLayoutFor(p)

	out := args[1:]
	outPath := fmt.Sprintf("%s-%s.%s.rock", p.Spec.Name, p.Spec.Version, runtimeArch())
	if len(out) > 0 {
		outPath = out[0]
	}

	return packRock(layout, outPath)
}

// packRock walks each category directory under layout, hashes every file
// with md5, writes a rock_manifest Lua table plus the files themselves
// into a zip at outPath.
func packRock(layout tree.RockLayout, outPath string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	defer zw.Close()

	categoryDirs := map[string]string{
		"lua": layout.Src,
		"lib": layout.Lib,
		"bin": layout.Bin,
		"doc": layout.Doc,
	}

	manifest := map[string]map[string]string{}
	for category, dir := range categoryDirs {
		entries := map[string]string{}
		if _, statErr := os.Stat(dir); statErr != nil {
			continue
		}
		err := filepath.Walk(dir, func(path string, info os.FileInfo, walkErr error) error {
			if walkErr != nil || info.IsDir() {
				return walkErr
			}
			rel, relErr := filepath.Rel(dir, path)
			if relErr != nil {
				return relErr
			}
			sum, hashErr := md5File(path)
			if hashErr != nil {
				return hashErr
			}
			entries[rel] = sum
			zipPath := filepath.ToSlash(filepath.Join(category, rel))
			return writeZipFile(zw, zipPath, path)
		})
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			manifest[category] = entries
		}
	}

	manifestText := renderRockManifest(manifest)
	mw, err := zw.Create("rock_manifest")
	if err != nil {
		return err
	}
	_, err = mw.Write([]byte(manifestText))
	return err
}

func md5File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeZipFile(zw *zip.Writer, zipPath, srcPath string) error {
	w, err := zw.Create(zipPath)
	if err != nil {
		return err
	}
	f, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

// renderRockManifest writes a deterministic rock_manifest Lua table:
// categories and their entries are sorted, so two packs of identical
// contents produce byte-identical manifests.
func renderRockManifest(manifest map[string]map[string]string) string {
	categories := make([]string, 0, len(manifest))
	for category := range manifest {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	out := "{\n"
	for _, category := range categories {
		out += "   " + category + " = {\n"
		names := make([]string, 0, len(manifest[category]))
		for name := range manifest[category] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out += fmt.Sprintf("      [%q] = %q,\n", name, manifest[category][name])
		}
		out += "   },\n"
	}
	out += "}\n"
	return out
}

func runtimeArch() string { return "all" }
