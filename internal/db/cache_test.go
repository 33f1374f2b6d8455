package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachePutGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := OpenCache(path)
	require.NoError(t, err)
	defer c.Close()

	_, _, ok := c.Get("server|5.4")
	assert.False(t, ok, "unpopulated key must miss")

	require.NoError(t, c.Put("server|5.4", []byte(`{"repository":{}}`), "Mon, 01 Jan 2024 00:00:00 GMT"))

	body, lm, ok := c.Get("server|5.4")
	require.True(t, ok)
	assert.Equal(t, `{"repository":{}}`, string(body))
	assert.Equal(t, "Mon, 01 Jan 2024 00:00:00 GMT", lm)
}

func TestCachePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := OpenCache(path)
	require.NoError(t, err)
	require.NoError(t, c.Put("k", []byte("v"), "lm"))
	require.NoError(t, c.Close())

	c2, err := OpenCache(path)
	require.NoError(t, err)
	defer c2.Close()

	body, lm, ok := c2.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(body))
	assert.Equal(t, "lm", lm)
}
