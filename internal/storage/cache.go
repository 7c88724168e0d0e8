package storage

import (
	"os"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/iamNilotpal/hydra/pkg/caskinfo"
	"github.com/iamNilotpal/hydra/pkg/errors"
)

// handleCache keeps a bounded set of read-only data file handles, keyed by
// file id. Handles are shared: positional reads carry no cursor, so any
// number of readers can use one handle concurrently. Eviction is
// least-recently-used and closes the evicted handle.
//
// A reader can lose a race with eviction and find its handle closed
// mid-read; the read path recovers by opening the file directly, outside
// the cache.
type handleCache struct {
	mu      sync.Mutex
	caskDir string
	cache   *lru.Cache[uint64, *os.File]
}

func newHandleCache(caskDir string, capacity int) (*handleCache, error) {
	cache, err := lru.NewWithEvict(capacity, func(_ uint64, file *os.File) {
		_ = file.Close()
	})
	if err != nil {
		return nil, errors.NewStorageError(
			err, errors.ErrorCodeInternal, "Failed to build read handle cache",
		).WithPath(caskDir)
	}

	return &handleCache{caskDir: caskDir, cache: cache}, nil
}

// get returns a shared read-only handle for the given file id, opening and
// caching one on miss.
func (hc *handleCache) get(fileID uint64) (*os.File, error) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	if file, ok := hc.cache.Get(fileID); ok {
		return file, nil
	}

	file, err := hc.open(fileID)
	if err != nil {
		return nil, err
	}

	hc.cache.Add(fileID, file)
	return file, nil
}

// open opens a read-only handle for the given file id without caching it.
func (hc *handleCache) open(fileID uint64) (*os.File, error) {
	path := caskinfo.DataFilePath(hc.caskDir, fileID)

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to open data file for reading",
		).WithFileID(fileID).WithPath(path)
	}
	return file, nil
}

// purge closes and drops every cached handle. Called after merge: the
// merged inputs are gone and the merged id names a brand new inode, so any
// cached handle may be stale.
func (hc *handleCache) purge() {
	hc.mu.Lock()
	hc.cache.Purge()
	hc.mu.Unlock()
}

func (hc *handleCache) close() {
	hc.purge()
}
