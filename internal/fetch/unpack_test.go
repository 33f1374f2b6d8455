package fetch

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTarGz(t *testing.T, entries map[string]string) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return bytes.NewReader(buf.Bytes())
}

func TestUnpackTarStripsCommonTopLevelDir(t *testing.T) {
	r := buildTarGz(t, map[string]string{
		"pkg-1.0/init.lua":      "return {}",
		"pkg-1.0/sub/extra.lua": "return 1",
	})
	dest := t.TempDir()
	require.NoError(t, unpackStream(r, "pkg-1.0.tar.gz", dest))

	assert.FileExists(t, filepath.Join(dest, "init.lua"))
	assert.FileExists(t, filepath.Join(dest, "sub", "extra.lua"))
	assert.NoDirExists(t, filepath.Join(dest, "pkg-1.0"))
}

func TestUnpackTarKeepsStructureWithoutCommonPrefix(t *testing.T) {
	r := buildTarGz(t, map[string]string{
		"a/init.lua": "return {}",
		"b/init.lua": "return {}",
	})
	dest := t.TempDir()
	require.NoError(t, unpackStream(r, "mixed.tar.gz", dest))

	assert.FileExists(t, filepath.Join(dest, "a", "init.lua"))
	assert.FileExists(t, filepath.Join(dest, "b", "init.lua"))
}

func TestUnpackTarRejectsPathTraversal(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	content := "evil"
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "../../etc/evil.lua", Mode: 0o644, Size: int64(len(content))}))
	_, err := tw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	dest := t.TempDir()
	err = unpackStream(bytes.NewReader(buf.Bytes()), "evil.tar.gz", dest)
	require.Error(t, err)
}

func buildZip(t *testing.T, entries map[string]string) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return bytes.NewReader(buf.Bytes())
}

func TestUnpackZipExtractsEntries(t *testing.T) {
	r := buildZip(t, map[string]string{
		"root.lua":     "return {}",
		"sub/deep.lua": "return 1",
	})
	dest := t.TempDir()
	require.NoError(t, unpackStream(r, "pkg.zip", dest))

	assert.FileExists(t, filepath.Join(dest, "root.lua"))
	assert.FileExists(t, filepath.Join(dest, "sub", "deep.lua"))
}

func TestUnpackZipRejectsPathTraversal(t *testing.T) {
	r := buildZip(t, map[string]string{"../evil.lua": "evil"})
	dest := t.TempDir()
	err := unpackStream(r, "evil.zip", dest)
	require.Error(t, err)
}

func TestUnpackStreamDetectsMovedHTML(t *testing.T) {
	html := bytes.NewReader([]byte("<html><body>moved</body></html>"))
	dest := t.TempDir()
	err := unpackStream(html, "gone.tar.gz", dest)
	require.Error(t, err)
	var moved *MovedOrDeleted
	require.ErrorAs(t, err, &moved)
}

func TestUnpackStreamUnsupportedKind(t *testing.T) {
	data := bytes.NewReader([]byte("random binary junk that isn't a known archive format padded out"))
	dest := t.TempDir()
	err := unpackStream(data, "mystery.bin", dest)
	require.Error(t, err)
}

func TestUnpackTarPreservesSymlinkTarget(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "real.lua", Mode: 0o644, Typeflag: tar.TypeReg, Size: 4}))
	_, err := tw.Write([]byte("true"))
	require.NoError(t, err)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "alias.lua", Mode: 0o777, Typeflag: tar.TypeSymlink, Linkname: "real.lua"}))
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	dest := t.TempDir()
	require.NoError(t, unpackStream(bytes.NewReader(buf.Bytes()), "links.tar.gz", dest))

	target, err := os.Readlink(filepath.Join(dest, "alias.lua"))
	require.NoError(t, err)
	assert.Equal(t, "real.lua", target)
}
