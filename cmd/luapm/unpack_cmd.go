package main

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/luapm/luapm/internal/rockspec"
	"github.com/pkg/errors"
)

type unpackCommand struct{}

func (c *unpackCommand) Name() string      { return "unpack" }
func (c *unpackCommand) Args() string      { return "<rock-archive> [<dest-dir>]" }
func (c *unpackCommand) ShortHelp() string { return "Unpack a binary rock archive for inspection" }
func (c *unpackCommand) LongHelp() string {
	return "Read a binary rock's rock_manifest and extract its lua/lib/bin/doc files into a local directory, without installing into a tree."
}

func (c *unpackCommand) Run(ctx *Ctx, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("unpack requires a rock archive path")
	}
	archivePath := args[0]
	dest := archivePath + ".unpacked"
	if len(args) > 1 {
		dest = args[1]
	}

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer zr.Close()

	var manifestFile *zip.File
	for _, f := range zr.File {
		if f.Name == "rock_manifest" {
			manifestFile = f
		}
	}
	if manifestFile == nil {
		return errors.New("rock archive missing rock_manifest (legacy v1 rocks are not supported)")
	}
	manifestText, err := readZipFile(manifestFile)
	if err != nil {
		return err
	}
	manifest, err := rockspec.ParseRockManifest(manifestText)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	for _, f := range zr.File {
		if f.Name == "rock_manifest" {
			continue
		}
		if err := extractZipFile(f, dest); err != nil {
			return err
		}
	}

	fmt.Fprintf(ctx.Stdout, "unpacked %d lua, %d lib, %d bin, %d doc files into %s\n",
		len(manifest.Lua), len(manifest.Lib), len(manifest.Bin), len(manifest.Doc), dest)
	return nil
}

func readZipFile(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	return string(b), err
}

func extractZipFile(f *zip.File, destRoot string) error {
	target := filepath.Join(destRoot, filepath.FromSlash(f.Name))
	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, rc)
	return err
}
