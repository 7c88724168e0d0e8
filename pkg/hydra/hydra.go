// Package hydra provides an embeddable, single-node persistent key/value
// store following the Bitcask model: an append-only log of records on disk
// paired with a complete in-memory index from key to the on-disk location of
// its latest value. It fits workloads where the key set fits in memory but
// the value set does not, and where low-latency point reads and predictable
// write throughput matter more than range scans.
//
// A store lives in a cask: a directory of immutable data files plus one
// active file receiving appends. Opening an instance replays the cask to
// rebuild the index; Merge compacts the immutable files and leaves a hint
// file that makes the next open cheap.
//
// Keys and values are arbitrary byte sequences the engine never interprets,
// with one inherited format restriction: the literal value "TOMBSTONE" is
// reserved as the deletion marker and is rejected on write.
package hydra

import (
	"context"

	"github.com/iamNilotpal/hydra/internal/engine"
	"github.com/iamNilotpal/hydra/pkg/logger"
	"github.com/iamNilotpal/hydra/pkg/options"
)

// Instance represents one open hydra store. It is the entry point for all
// operations and is safe for concurrent use: reads run in parallel, writes
// and merges serialize behind the engine's writer lock.
type Instance struct {
	engine  *engine.Engine   // The underlying engine handling read/write operations.
	options *options.Options // Configuration options applied to this instance.
}

// NewInstance opens (creating if necessary) the cask named by the options
// and rebuilds its in-memory index. The cask name is required:
//
//	db, err := hydra.NewInstance(ctx, "sessions",
//		hydra.WithCask("sessions"),
//		hydra.WithMaxFileSize(1<<20),
//	)
//
// Operations on the returned Instance never block on a context; the engine
// layer has no cancellation points beyond blocking syscalls.
func NewInstance(ctx context.Context, service string, opts ...options.OptionFunc) (*Instance, error) {
	log := logger.New(service)

	defaultOpts := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&defaultOpts)
	}

	eng, err := engine.New(ctx, &engine.Config{Logger: log, Options: &defaultOpts})
	if err != nil {
		return nil, err
	}

	return &Instance{engine: eng, options: &defaultOpts}, nil
}

// Re-exported option constructors, so embedders configure an instance
// without importing the options package.
var (
	WithCask                = options.WithCask
	WithDataDir             = options.WithDataDir
	WithMaxFileSize         = options.WithMaxFileSize
	WithHandleCacheCapacity = options.WithHandleCacheCapacity
	WithFsyncOnPut          = options.WithFsyncOnPut
)

// Put stores a key-value pair. If the key already exists its value is
// replaced. The write is flushed before Put returns, so a subsequent Get in
// this process observes it.
func (i *Instance) Put(key, value []byte) error {
	return i.engine.Put(key, value)
}

// Get retrieves the value for the given key. The boolean reports presence;
// a missing key is not an error.
func (i *Instance) Get(key []byte) ([]byte, bool, error) {
	return i.engine.Get(key)
}

// Del removes the key, returning true iff it existed. Deletion appends a
// tombstone record; the space is reclaimed by the next Merge.
func (i *Instance) Del(key []byte) (bool, error) {
	return i.engine.Del(key)
}

// Has reports whether the key exists, without reading its value from disk.
func (i *Instance) Has(key []byte) (bool, error) {
	return i.engine.Has(key)
}

// ListAll returns every live key in no particular order.
func (i *Instance) ListAll() ([][]byte, error) {
	return i.engine.ListAll()
}

// Len returns the number of live keys.
func (i *Instance) Len() (int, error) {
	return i.engine.Len()
}

// Merge compacts all immutable data files into a single merged file plus a
// hint file, dropping superseded and deleted records, and removes the
// inputs. Merge serializes against writers; reads continue to be served.
func (i *Instance) Merge() error {
	return i.engine.Merge()
}

// Close flushes pending writes, releases all file handles and the cask
// lock, and makes the instance unusable.
func (i *Instance) Close() error {
	return i.engine.Close()
}
