package fetch

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"compress/gzip"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// unpackStream sniffs r's content and dispatches to the matching
// extractor. name is used only for diagnostics and extension fallback.
func unpackStream(r io.ReadSeeker, name, dest string) error {
	br := bufio.NewReader(r)
	sniff, err := br.Peek(512)
	if err != nil && err != io.EOF {
		return errors.Wrapf(err, "reading %s", name)
	}
	mime := http.DetectContentType(sniff)

	switch {
	case strings.Contains(mime, "html"):
		return &MovedOrDeleted{URL: name}
	case strings.Contains(mime, "zip") || strings.HasSuffix(name, ".zip"):
		return unpackZip(br, dest)
	case strings.Contains(mime, "gzip") || strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".tgz"):
		return unpackTarGz(br, dest)
	case strings.HasSuffix(name, ".tar"):
		return unpackTar(br, dest)
	case mime == "application/octet-stream":
		return &UnknownMimeType{URL: name}
	default:
		return &UnsupportedFileType{Kind: mime}
	}
}

// unpackZip extracts every entry of a zip stream into dest. Since
// archive/zip needs a ReaderAt, the stream is first spooled to a temp
// file.
func unpackZip(r io.Reader, dest string) error {
	tmp, err := os.CreateTemp("", "luapm-zip-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()
	if _, err := io.Copy(tmp, r); err != nil {
		return err
	}

	zr, err := zip.OpenReader(tmp.Name())
	if err != nil {
		return errors.Wrap(err, "opening zip archive")
	}
	defer zr.Close()

	for _, f := range zr.File {
		target := filepath.Join(dest, f.Name)
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			return errors.Errorf("zip entry %q escapes destination", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode())
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

func unpackTarGz(r io.Reader, dest string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return errors.Wrap(err, "opening gzip stream")
	}
	defer gz.Close()
	return unpackTar(gz, dest)
}

// unpackTar extracts a tar stream into dest. If every entry shares a
// single top-level directory component, that directory is stripped so its
// children land directly in dest (spec §4.7).
func unpackTar(r io.Reader, dest string) error {
	tr := tar.NewReader(r)

	type entry struct {
		hdr  *tar.Header
		data []byte
	}
	var entries []entry
	commonPrefix := ""
	first := true

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "reading tar stream")
		}
		var data []byte
		if hdr.Typeflag == tar.TypeReg {
			data, err = io.ReadAll(tr)
			if err != nil {
				return err
			}
		}
		entries = append(entries, entry{hdr: hdr, data: data})

		top := topLevelDir(hdr.Name)
		if first {
			commonPrefix = top
			first = false
		} else if top != commonPrefix {
			commonPrefix = ""
		}
	}

	for _, e := range entries {
		name := e.hdr.Name
		if commonPrefix != "" {
			name = strings.TrimPrefix(name, commonPrefix+"/")
			if name == "" {
				continue
			}
		}
		target := filepath.Join(dest, name)
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			return errors.Errorf("tar entry %q escapes destination", e.hdr.Name)
		}

		switch e.hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(target, e.data, os.FileMode(e.hdr.Mode)); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			_ = os.Remove(target)
			if err := os.Symlink(e.hdr.Linkname, target); err != nil {
				return err
			}
		}
	}
	return nil
}

func topLevelDir(name string) string {
	name = strings.TrimPrefix(name, "./")
	if i := strings.Index(name, "/"); i >= 0 {
		return name[:i]
	}
	return name
}
