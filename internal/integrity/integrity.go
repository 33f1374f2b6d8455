// Package integrity computes content-addressed "sha256-<base64>" hashes
// for files, byte buffers, and directory trees, using a deterministic
// archive encoding so that two directories with identical contents hash
// identically regardless of on-disk creation order.
package integrity

import (
	"archive/tar"
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

const prefix = "sha256-"

// HashBytes produces an integrity string over a byte buffer.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return prefix + base64.StdEncoding.EncodeToString(sum[:])
}

// HashReader produces an integrity string over a stream.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", errors.Wrap(err, "hashing stream")
	}
	return prefix + base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

// HashFile produces an integrity string over a single file's contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "opening %s for hashing", path)
	}
	defer f.Close()
	return HashReader(f)
}

// HashDir produces an integrity string over an entire directory tree.
//
// Entries are visited in lexical path order (independent of the order the
// filesystem returns them in). Each entry contributes a canonical tar
// header (name, type, mode, and size only — mtimes are zeroed, since
// filesystem timestamps must not affect the hash) followed by its content:
// for a symlink that is the link target text, not the bytes of whatever
// it points to; for a regular file, its bytes verbatim, so differing line
// endings produce differing hashes.
//
// This intentionally reuses archive/tar's header encoding as a canonical,
// ordered byte layout rather than an actual archive — see DESIGN.md for
// why no corpus library covers this need.
func HashDir(root string) (string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return "", errors.Wrapf(err, "walking %s for hashing", root)
	}
	sort.Strings(paths)

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, path := range paths {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return "", err
		}
		rel = filepath.ToSlash(rel)

		info, err := os.Lstat(path)
		if err != nil {
			return "", errors.Wrapf(err, "stat %s", path)
		}

		hdr := &tar.Header{
			Name: rel,
			Mode: int64(info.Mode().Perm()),
		}

		switch {
		case info.IsDir():
			hdr.Typeflag = tar.TypeDir
			hdr.Name += "/"
			if err := tw.WriteHeader(hdr); err != nil {
				return "", err
			}
		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return "", errors.Wrapf(err, "readlink %s", path)
			}
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = target
			if err := tw.WriteHeader(hdr); err != nil {
				return "", err
			}
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = info.Size()
			if err := tw.WriteHeader(hdr); err != nil {
				return "", err
			}
			f, err := os.Open(path)
			if err != nil {
				return "", errors.Wrapf(err, "open %s", path)
			}
			_, err = io.Copy(tw, f)
			f.Close()
			if err != nil {
				return "", errors.Wrapf(err, "reading %s for hashing", path)
			}
		}
	}
	if err := tw.Close(); err != nil {
		return "", err
	}
	return HashBytes(buf.Bytes()), nil
}

// Mismatch describes a hash comparison failure, reporting both sides per
// spec §7 ("Hash mismatches include both expected and observed integrity
// strings").
type Mismatch struct {
	What     string
	Expected string
	Observed string
}

func (m *Mismatch) Error() string {
	return fmt.Sprintf("%s integrity mismatch: expected %s, got %s", m.What, m.Expected, m.Observed)
}

// Verify compares an observed hash to an expected one, returning a
// *Mismatch on any difference.
func Verify(what, expected, observed string) error {
	if expected != observed {
		return &Mismatch{What: what, Expected: expected, Observed: observed}
	}
	return nil
}
