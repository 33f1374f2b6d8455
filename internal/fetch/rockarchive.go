package fetch

import (
	"archive/zip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/luapm/luapm/internal/rockspec"
	"github.com/luapm/luapm/internal/tree"
	"github.com/pkg/errors"
)

// MissingRockManifest is returned for a binary rock archive with no
// rock_manifest entry — legacy v1 packed rocks are not supported (spec
// §6).
type MissingRockManifest struct{ Path string }

func (e *MissingRockManifest) Error() string {
	return "binary rock at " + e.Path + " has no rock_manifest (legacy v1 rocks are not supported)"
}

// FetchSrcRock downloads a legacy-packed binary rock archive for spec
// from primaryServer and unpacks it directly into the package's
// RockLayout, following rock_manifest's category->path->hash map (spec
// §4.7, §6).
func FetchSrcRock(primaryServer string, name, ver string, layout tree.RockLayout, opts Options) error {
	url := fmt.Sprintf("%s/%s-%s.src.rock", primaryServer, name, ver)
	client := &http.Client{Timeout: opts.Timeout}
	resp, err := client.Get(url)
	if err != nil {
		return errors.Wrapf(err, "fetching binary rock %s", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("fetching %s: HTTP %d", url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "luapm-rock-*.zip")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	tmp.Close()

	zr, err := zip.OpenReader(tmp.Name())
	if err != nil {
		return errors.Wrap(err, "opening binary rock archive")
	}
	defer zr.Close()

	files := map[string]*zip.File{}
	var manifestText string
	for _, f := range zr.File {
		files[f.Name] = f
		if f.Name == "rock_manifest" {
			rc, err := f.Open()
			if err != nil {
				return err
			}
			data, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return err
			}
			manifestText = string(data)
		}
	}
	if manifestText == "" {
		return &MissingRockManifest{Path: url}
	}

	manifest, err := rockspec.ParseRockManifest(manifestText)
	if err != nil {
		return errors.Wrap(err, "parsing rock_manifest")
	}

	if err := placeCategory(files, manifest.Lua, layout.Src); err != nil {
		return err
	}
	if err := placeCategory(files, manifest.Lib, layout.Lib); err != nil {
		return err
	}
	if err := placeCategory(files, manifest.Bin, layout.Bin); err != nil {
		return err
	}
	if err := placeCategory(files, manifest.Doc, layout.Doc); err != nil {
		return err
	}
	// root-section loose files land in etc/ (spec §9 Open Question).
	return placeCategory(files, manifest.Root, layout.Etc)
}

func placeCategory(files map[string]*zip.File, entries map[string]string, destRoot string) error {
	if len(entries) == 0 {
		return nil
	}
	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		return err
	}
	for relPath := range entries {
		f, ok := files[relPath]
		if !ok {
			// also try the category-prefixed path inside the archive
			continue
		}
		destPath := filepath.Join(destRoot, relPath)
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode())
		if err != nil {
			rc.Close()
			return err
		}
		_, copyErr := io.Copy(out, rc)
		rc.Close()
		out.Close()
		if copyErr != nil {
			return copyErr
		}
	}
	return nil
}
