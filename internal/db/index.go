package db

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/luapm/luapm/internal/version"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Index is a single remote index, addressed by a base URL.
type Index struct {
	BaseURL string
	client  *http.Client
	cache   *Cache
	log     logrus.FieldLogger
}

// NewIndex constructs an Index against baseURL, using cache for the
// manifest cache and timeout for every HTTP request (0 means unbounded,
// per spec §5).
func NewIndex(baseURL string, cache *Cache, timeout time.Duration, log logrus.FieldLogger) *Index {
	return &Index{
		BaseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		cache:   cache,
		log:     log,
	}
}

func (idx *Index) manifestURL(luaVersion string) string {
	if luaVersion == "" {
		return idx.BaseURL + "/manifest"
	}
	return fmt.Sprintf("%s/manifest-%s", idx.BaseURL, luaVersion)
}

func (idx *Index) cacheKey(luaVersion string) string {
	return idx.BaseURL + "|" + luaVersion
}

// Manifest fetches (or serves from cache, after a conditional GET) the
// index's manifest for luaVersion.
func (idx *Index) Manifest(luaVersion string) (Manifest, error) {
	url := idx.manifestURL(luaVersion)
	key := idx.cacheKey(luaVersion)

	cachedBody, cachedLM, hasCache := idx.cache.Get(key)

	if hasCache {
		if fresh, lm := idx.isFresh(url, cachedLM); fresh {
			idx.log.WithField("index", idx.BaseURL).Debug("manifest unchanged, serving from cache")
			return parseManifest(cachedBody)
		} else if lm != "" {
			cachedLM = lm
		}
	}

	resp, err := idx.client.Get(url)
	if err != nil {
		return Manifest{}, errors.Wrapf(err, "fetching manifest from %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && hasCache {
		return parseManifest(cachedBody)
	}
	if resp.StatusCode != http.StatusOK {
		return Manifest{}, errors.Errorf("fetching manifest from %s: HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Manifest{}, errors.Wrap(err, "reading manifest body")
	}

	lm := resp.Header.Get("Last-Modified")
	if err := idx.cache.Put(key, body, lm); err != nil {
		idx.log.WithError(err).Warn("failed to cache manifest")
	}

	return parseManifest(body)
}

// isFresh issues a HEAD request and compares Last-Modified against the
// cached value, avoiding a full re-download when unchanged (spec §4.6).
func (idx *Index) isFresh(url, cachedLastModified string) (fresh bool, lastModified string) {
	if cachedLastModified == "" {
		return false, ""
	}
	resp, err := idx.client.Head(url)
	if err != nil {
		return false, ""
	}
	defer resp.Body.Close()
	lm := resp.Header.Get("Last-Modified")
	if lm == "" {
		return false, ""
	}
	return lm == cachedLastModified, lm
}

func parseManifest(body []byte) (Manifest, error) {
	var raw struct {
		Repository map[string]map[string][]ManifestEntry `json:"repository"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Manifest{}, errors.Wrap(err, "parsing manifest JSON")
	}
	return Manifest{Repository: raw.Repository}, nil
}

// Search returns every version of name satisfying req.
func (idx *Index) Search(name version.PackageName, req version.PackageVersionReq, luaVersion string) ([]version.PackageVersion, error) {
	m, err := idx.Manifest(luaVersion)
	if err != nil {
		return nil, err
	}
	all, err := m.Versions(name)
	if err != nil {
		return nil, err
	}
	var out []version.PackageVersion
	for _, v := range all {
		if req.Matches(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

// LatestVersion returns the highest available version of name.
func (idx *Index) LatestVersion(name version.PackageName, luaVersion string) (version.PackageVersion, bool, error) {
	m, err := idx.Manifest(luaVersion)
	if err != nil {
		return version.PackageVersion{}, false, err
	}
	all, err := m.Versions(name)
	if err != nil || len(all) == 0 {
		return version.PackageVersion{}, false, err
	}
	return all[len(all)-1], true, nil
}

// LatestMatch returns the highest version of name satisfying req.
func (idx *Index) LatestMatch(name version.PackageName, req version.PackageVersionReq, luaVersion string) (version.PackageVersion, bool, error) {
	matches, err := idx.Search(name, req, luaVersion)
	if err != nil || len(matches) == 0 {
		return version.PackageVersion{}, false, err
	}
	return matches[len(matches)-1], true, nil
}

// FetchRockspec downloads the rockspec text published for name/ver.
func (idx *Index) FetchRockspec(name version.PackageName, ver version.PackageVersion) (string, error) {
	url := fmt.Sprintf("%s/%s-%s.rockspec", idx.BaseURL, name, ver)
	resp, err := idx.client.Get(url)
	if err != nil {
		return "", errors.Wrapf(err, "fetching rockspec from %s", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("fetching rockspec from %s: HTTP %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "reading rockspec body")
	}
	return string(body), nil
}

// PrimaryServer exposes the base URL this index serves from, needed by
// callers that must separately fetch a packed .src.rock/.rock archive
// from the same origin (spec §4.7).
func (idx *Index) PrimaryServer() string { return idx.BaseURL }
