package db

import (
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
)

var manifestBucket = []byte("manifests")
var metaBucket = []byte("meta")

// Cache is an embedded key/value store holding fetched manifest bodies
// and their Last-Modified timestamps, keyed by "{server}|{lua_version}",
// so a conditional GET can avoid re-downloading an unchanged manifest
// (spec §4.6).
type Cache struct {
	db *bolt.DB
}

// OpenCache opens (creating if absent) the bolt-backed cache file under
// cacheDir.
func OpenCache(path string) (*Cache, error) {
	bdb, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening manifest cache %s", path)
	}
	err = bdb.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(manifestBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	})
	if err != nil {
		bdb.Close()
		return nil, err
	}
	return &Cache{db: bdb}, nil
}

func (c *Cache) Close() error { return c.db.Close() }

// Get returns the cached manifest body and its last-modified value, if
// present.
func (c *Cache) Get(key string) (body []byte, lastModified string, ok bool) {
	_ = c.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(manifestBucket).Get([]byte(key)); b != nil {
			body = append([]byte(nil), b...)
			ok = true
		}
		if lm := tx.Bucket(metaBucket).Get([]byte(key)); lm != nil {
			lastModified = string(lm)
		}
		return nil
	})
	return body, lastModified, ok
}

// Put stores a manifest body and its Last-Modified header value.
func (c *Cache) Put(key string, body []byte, lastModified string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(manifestBucket).Put([]byte(key), body); err != nil {
			return err
		}
		return tx.Bucket(metaBucket).Put([]byte(key), []byte(lastModified))
	})
}
