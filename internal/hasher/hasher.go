// Package hasher computes the content digests that the resolution core
// is addressed by: a chunked SHA-1 over file bytes, and a Merkle fold of
// sorted child digests for directories.
package hasher

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/boblaublaw/dedup/internal/forest"
)

// chunkSize is the read buffer size used while hashing file contents.
const chunkSize = 64 * 1024

// Cache is the subset of internal/hashcache.Cache the hasher depends on,
// expressed as an interface so the hasher package has no import-time
// dependency on bbolt.
type Cache interface {
	ModTime() (int64, bool)
	Get(path string) (string, bool)
	Put(path, digest string) error
}

// HashFile computes the SHA-1 digest of a regular file's bytes, in fixed
// 64 KiB chunks, and returns it hex-encoded. If cache is non-nil and
// holds a fresher-or-equal entry for path, the cached digest is returned
// instead of re-reading the file.
func HashFile(path string, modTime int64, cache Cache) (string, error) {
	if cache != nil {
		if cacheModTime, ok := cache.ModTime(); ok && cacheModTime >= modTime {
			if digest, ok := cache.Get(path); ok {
				return digest, nil
			}
		}
	}

	digest, err := hashFileBytes(path)
	if err != nil {
		return "", err
	}

	if cache != nil {
		if err := cache.Put(path, digest); err != nil {
			return "", errors.Wrapf(err, "updating hash cache entry for %q", path)
		}
	}
	return digest, nil
}

func hashFileBytes(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "opening %q for hashing", path)
	}
	defer f.Close()

	h := sha1.New()
	buf := make([]byte, chunkSize)
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			if _, err := h.Write(buf[:n]); err != nil {
				return "", errors.Wrapf(err, "hashing %q", path)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", errors.Wrapf(readErr, "reading %q", path)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FinalizeDir computes a directory's digest as SHA1(concat(sort(child
// digests))), where child digests come only from immediate children
// (files and subdirectories), never transitive descendants. An empty
// directory (no live children at all) receives the SHA-1 of the empty
// byte string.
// Only live (non to-delete) children contribute: as the resolver marks
// children for deletion across fixed-point passes and re-finalizes, a
// directory's digest tracks its surviving content, which is what lets
// newly-equal directories be discovered once their losing children are
// gone.
func FinalizeDir(d *forest.Dir) []byte {
	digests := make([]string, 0, len(d.Files())+len(d.Dirs()))
	for _, f := range d.Files() {
		if f.ToDelete() {
			continue
		}
		digests = append(digests, string(f.Digest()))
	}
	for _, sub := range d.Dirs() {
		if sub.ToDelete() {
			continue
		}
		digests = append(digests, string(sub.Digest()))
	}
	sort.Strings(digests)

	h := sha1.New()
	for _, digest := range digests {
		io.WriteString(h, digest)
	}
	sum := h.Sum(nil)
	hexDigest := []byte(hex.EncodeToString(sum))
	return hexDigest
}
