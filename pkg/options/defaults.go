package options

const (
	// Specifies the default base directory under which cask directories are
	// created. Relative by default so embedded use stays self-contained.
	DefaultDataDir = "."

	// Defines the maximum number of bytes an active data file may hold before
	// the writer rotates to a new file. The threshold bounds individual files
	// but is not a hard cap on record size: the record that triggers rotation
	// is written whole into the fresh file.
	DefaultMaxFileSize uint64 = 1048576

	// Defines how many read-only data file handles the reader keeps open.
	// Handles beyond this capacity are evicted least-recently-used and closed.
	DefaultHandleCacheCapacity = 10
)

// Holds the default configuration settings for a hydra instance.
var defaultOptions = Options{
	DataDir:             DefaultDataDir,
	MaxFileSize:         DefaultMaxFileSize,
	HandleCacheCapacity: DefaultHandleCacheCapacity,
	FsyncOnPut:          false,
}

func NewDefaultOptions() Options {
	return defaultOptions
}
