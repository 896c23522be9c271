// Package hashcache implements the optional on-disk digest cache
// collaborator described by the specification: a key-value store keyed
// by absolute path, backed by github.com/boltdb/bolt (the same embedded
// B+tree store the example corpus's dependency-resolution tool uses for
// its own on-disk source cache).
package hashcache

import (
	"os"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
)

var bucketName = []byte("digests")

// Cache is a bbolt-backed key-value store mapping absolute paths to hex
// digests. It satisfies internal/hasher.Cache.
type Cache struct {
	db      *bolt.DB
	path    string
	modTime time.Time
}

// Open opens (creating if necessary) the bbolt file at path.
func Open(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening hash cache %q", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "initializing hash cache %q", path)
	}

	modTime := time.Now()
	if fi, err := os.Stat(path); err == nil {
		modTime = fi.ModTime()
	}

	return &Cache{db: db, path: path, modTime: modTime}, nil
}

// ModTime returns the cache file's modification time as a unix
// timestamp, observed at Open. A cache entry is authoritative only when
// this is at least as new as the entry's source file.
func (c *Cache) ModTime() (int64, bool) {
	if c == nil {
		return 0, false
	}
	return c.modTime.Unix(), true
}

// Contains reports whether path has a cached digest.
func (c *Cache) Contains(path string) bool {
	_, ok := c.Get(path)
	return ok
}

// Get returns the cached hex digest for path, if any.
func (c *Cache) Get(path string) (string, bool) {
	var digest string
	var found bool
	c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		v := b.Get([]byte(path))
		if v != nil {
			digest = string(v)
			found = true
		}
		return nil
	})
	return digest, found
}

// Put stores (or updates) the cached digest for path.
func (c *Cache) Put(path, digest string) error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.Put([]byte(path), []byte(digest))
	})
	return errors.Wrapf(err, "writing hash cache entry for %q", path)
}

// Close releases the underlying bbolt file handle.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return errors.Wrapf(c.db.Close(), "closing hash cache %q", c.path)
}

// Clean removes entries whose source path no longer exists on disk,
// mirroring the "clean the cache of dead nodes" collaborator operation.
func (c *Cache) Clean() (removed int, err error) {
	err = c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		var dead [][]byte
		cur := b.Cursor()
		for k, _ := cur.First(); k != nil; k, _ = cur.Next() {
			if _, statErr := os.Stat(string(k)); os.IsNotExist(statErr) {
				dead = append(dead, append([]byte{}, k...))
			}
		}
		for _, k := range dead {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, errors.Wrap(err, "cleaning hash cache")
}
