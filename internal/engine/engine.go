// Package engine provides the core database engine for the hydra storage
// system: the coordinator tying the in-memory key directory to the on-disk
// record log under the single-writer discipline.
//
// The engine owns three pieces of shared state: the key directory (read
// concurrently by any number of goroutines, each read holding only its
// shard's read lock), the storage writer (guarded by one
// mutex serializing put, delete and merge), and a process-level cask lock
// preventing a second process from opening the same cask for writing.
//
// Visibility follows from the write path's ordering: a record is flushed to
// the OS before its key directory entry is installed, so a concurrent get
// observes either the pre-put state or the complete post-put value, never a
// torn read.
package engine

import (
	"context"
	stdErrors "errors"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/iamNilotpal/hydra/internal/keydir"
	"github.com/iamNilotpal/hydra/internal/record"
	"github.com/iamNilotpal/hydra/internal/storage"
	"github.com/iamNilotpal/hydra/pkg/caskinfo"
	"github.com/iamNilotpal/hydra/pkg/errors"
	"github.com/iamNilotpal/hydra/pkg/filesys"
	"github.com/iamNilotpal/hydra/pkg/options"
)

var (
	// ErrEngineClosed is returned when attempting to perform operations on a
	// closed engine.
	ErrEngineClosed = stdErrors.New("operation failed: cannot access closed engine")
)

// Engine coordinates the key directory and the storage layer.
type Engine struct {
	options *options.Options   // Configuration parameters for the engine and its subsystems.
	log     *zap.SugaredLogger // Structured logging throughout the engine.
	closed  atomic.Bool        // Tracks the engine's lifecycle state.

	mu      sync.Mutex       // Serializes all mutators: put, delete, merge.
	keydir  *keydir.KeyDir   // In-memory index from key to on-disk location.
	storage *storage.Storage // The on-disk record log.
	lock    *flock.Flock     // Process-level cask lock enforcing one writer per cask.
}

// Config holds the parameters needed to initialize a new Engine instance.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}

// New opens (creating if necessary) the configured cask, acquires its lock,
// and rebuilds the key directory from disk. The context bounds only the open
// itself; a cancellation after New returns has no effect on the engine.
func New(ctx context.Context, config *Config) (*Engine, error) {
	if err := config.Options.Validate(); err != nil {
		return nil, err
	}

	caskDir := filepath.Join(config.Options.DataDir, config.Options.Cask)
	if err := filesys.CreateDir(caskDir, 0755, true); err != nil {
		return nil, errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to create cask directory",
		).WithPath(caskDir)
	}

	lock := flock.New(caskinfo.LockFilePath(caskDir))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to acquire cask lock",
		).WithPath(lock.Path())
	}
	if !locked {
		return nil, errors.NewStorageError(
			nil, errors.ErrorCodeCaskLocked, "Cask is locked by another process",
		).WithPath(lock.Path())
	}

	store, err := storage.New(caskDir, &storage.Config{
		Options: config.Options,
		Logger:  config.Logger,
	})
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		_ = store.Close()
		_ = lock.Unlock()
		return nil, err
	}

	kd := keydir.New()
	if err := store.Recover(kd); err != nil {
		_ = store.Close()
		_ = lock.Unlock()
		return nil, err
	}

	return &Engine{
		options: config.Options,
		log:     config.Logger,
		keydir:  kd,
		storage: store,
		lock:    lock,
	}, nil
}

// Put stores a key-value pair. The reserved tombstone payload is rejected:
// the on-disk format has no way to tell it apart from a deletion.
func (e *Engine) Put(key, value []byte) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	if record.IsTombstone(value) {
		return errors.NewReservedValueError("value", string(value))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.storage.Append(key, value)
	if err != nil {
		return err
	}

	// Installed only after the record bytes are flushed; see the package
	// comment on visibility.
	e.keydir.Put(key, entry)
	return nil
}

// Get retrieves the value for the given key. Absence is not an error: the
// second return value reports presence.
func (e *Engine) Get(key []byte) ([]byte, bool, error) {
	if e.closed.Load() {
		return nil, false, ErrEngineClosed
	}

	entry, ok := e.keydir.Get(key)
	if !ok {
		return nil, false, nil
	}

	value, err := e.storage.ReadValue(entry)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Del removes the key, reporting whether it was present. A present key gets
// a tombstone record appended through the same path as Put before the key
// directory entry disappears; recovery honors the tombstone.
func (e *Engine) Del(key []byte) (bool, error) {
	if e.closed.Load() {
		return false, ErrEngineClosed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.keydir.Has(key) {
		return false, nil
	}

	if _, err := e.storage.Append(key, record.TombstoneValue); err != nil {
		return false, err
	}

	e.keydir.Del(key)
	return true, nil
}

// Has reports whether the key is present, without touching disk.
func (e *Engine) Has(key []byte) (bool, error) {
	if e.closed.Load() {
		return false, ErrEngineClosed
	}
	return e.keydir.Has(key), nil
}

// ListAll returns every live key.
func (e *Engine) ListAll() ([][]byte, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	return e.keydir.Keys(), nil
}

// Len returns the number of live keys.
func (e *Engine) Len() (int, error) {
	if e.closed.Load() {
		return 0, ErrEngineClosed
	}
	return e.keydir.Len(), nil
}

// Merge compacts all immutable data files into one merged file plus a hint
// file. It holds the writer lock for its whole duration: merge rewrites the
// key directory and the file set and must never interleave with a writer.
func (e *Engine) Merge() error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.storage.Merge(e.keydir)
}

// Close gracefully shuts down the engine, flushing the active file and
// releasing the cask lock. Only the first call does the work; later calls
// report ErrEngineClosed.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrEngineClosed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.storage.Close()
	if unlockErr := e.lock.Unlock(); unlockErr != nil {
		err = multierr.Append(err, unlockErr)
	}

	e.log.Infow("Engine closed", "cask", e.options.Cask)
	return err
}
