package storage

import (
	"bufio"
	"os"
	"sync/atomic"

	"github.com/iamNilotpal/hydra/pkg/options"
	"go.uber.org/zap"
)

// Storage owns the on-disk half of a cask: the active data file receiving
// appends, the rotation state, and the read path with its handle cache.
//
// Storage performs no locking of its own. The engine serializes every
// mutator (Append, Merge, Close) behind a single writer mutex; ReadValue is
// safe to call concurrently with itself and with mutators because positional
// reads never touch a shared cursor and the handle cache carries its own
// lock.
type Storage struct {
	caskDir string             // Full path of the cask directory.
	options *options.Options   // Configuration parameters controlling storage behavior.
	log     *zap.SugaredLogger // Structured logger for operational visibility.

	activeID   uint64        // Id of the data file currently receiving appends.
	activeSize uint64        // Length in bytes of the active file, maintained incrementally so value offsets never need a seek.
	activeFile *os.File      // Handle of the active file, opened append-only.
	writer     *bufio.Writer // Buffered writer over activeFile; flushed before every append returns.

	handles *handleCache // Bounded cache of read-only handles keyed by file id.
	closed  atomic.Bool  // Flag indicating whether the storage has been closed.
}

// Config encapsulates the parameters required to initialize a Storage instance.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}
