// Package fetch acquires package sources — archive URLs, git repositories,
// local files, local directories, or legacy packed rock archives — and
// unpacks them into a build directory (spec §4.7).
package fetch

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/vcs"
	"github.com/luapm/luapm/internal/rockspec"
	"github.com/pkg/errors"
)

// UnknownMimeType is returned when content sniffing can't classify a
// downloaded archive at all.
type UnknownMimeType struct{ URL string }

func (e *UnknownMimeType) Error() string { return "unknown MIME type for " + e.URL }

// UnsupportedFileType is returned for a recognized but unhandled MIME kind.
type UnsupportedFileType struct{ Kind string }

func (e *UnsupportedFileType) Error() string { return "unsupported file type: " + e.Kind }

// MovedOrDeleted is returned when a source URL resolves to an HTML page
// instead of an archive — the legacy client's signal for "source moved or
// deleted" (spec §4.7).
type MovedOrDeleted struct{ URL string }

func (e *MovedOrDeleted) Error() string {
	return "source at " + e.URL + " appears to have moved or been deleted (got HTML)"
}

// UnsupportedScheme is returned for RockSource kinds the spec explicitly
// leaves unimplemented (cvs, mercurial, sscm, svn).
type UnsupportedScheme struct{ Scheme string }

func (e *UnsupportedScheme) Error() string { return "unsupported source scheme: " + e.Scheme }

// Options configures a fetch; Timeout of 0 means unbounded (spec §5).
type Options struct {
	Timeout time.Duration
}

// FetchSrc acquires src's sources into dest, which must already exist.
func FetchSrc(src rockspec.RockSource, dest string, opts Options) error {
	switch src.Kind {
	case rockspec.SourceGit:
		return fetchGit(src, dest)
	case rockspec.SourceArchiveURL:
		return fetchURL(src.URL, dest, opts)
	case rockspec.SourceLocalFile:
		return fetchLocalFile(src, dest, opts)
	case rockspec.SourceLocalDirectory:
		return copyDir(src.Path, dest)
	default:
		return errors.Errorf("fetch: unrecognized source kind %v", src.Kind)
	}
}

func fetchGit(src rockspec.RockSource, dest string) error {
	repo, err := vcs.NewGitRepo(src.GitURL, dest)
	if err != nil {
		return errors.Wrapf(err, "preparing git repo for %s", src.GitURL)
	}

	if src.GitRef == "" {
		// No checkout ref: a depth=1 clone of the default branch tip.
		if err := shallowClone(src.GitURL, dest); err == nil {
			return nil
		}
		// Fall back to a full Get() if the shallow path isn't available
		// (e.g. a local test double that doesn't shell out to git).
		return errors.Wrap(repo.Get(), "cloning "+src.GitURL)
	}

	if err := repo.Get(); err != nil {
		return errors.Wrapf(err, "cloning %s", src.GitURL)
	}
	if err := repo.UpdateVersion(src.GitRef); err != nil {
		return errors.Wrapf(err, "checking out %s at %s", src.GitURL, src.GitRef)
	}
	return nil
}

func fetchLocalFile(src rockspec.RockSource, dest string, opts Options) error {
	if src.Path != "" {
		// file:// URL carrying an explicit subdirectory: recursive copy.
		return copyDir(src.Path, dest)
	}
	path := filepath.FromSlash(stripFileScheme(src.URL))
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening local file %s", path)
	}
	defer f.Close()
	return unpackStream(f, path, dest)
}

func stripFileScheme(url string) string {
	const scheme = "file://"
	if len(url) >= len(scheme) && url[:len(scheme)] == scheme {
		return url[len(scheme):]
	}
	return url
}

func fetchURL(url, dest string, opts Options) error {
	client := &http.Client{Timeout: opts.Timeout}
	resp, err := client.Get(url)
	if err != nil {
		return errors.Wrapf(err, "fetching %s", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("fetching %s: HTTP %d", url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "luapm-fetch-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "downloading %s", url)
	}
	tmp.Close()

	f, err := os.Open(tmp.Name())
	if err != nil {
		return err
	}
	defer f.Close()
	return unpackStream(f, url, dest)
}
