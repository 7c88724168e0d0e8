// Package options provides data structures and functions for configuring
// a hydra instance. It defines the parameters that control storage behavior:
// the cask location, the data file rotation threshold, the read handle cache
// and write durability.
package options

import (
	"strings"

	"github.com/iamNilotpal/hydra/pkg/errors"
)

// Defines the configuration parameters for a hydra instance.
type Options struct {
	// Specifies the base path under which the cask directory lives.
	//
	// Default: "."
	DataDir string `json:"dataDir"`

	// Names the cask: the directory holding this store's data files.
	// Required; there is no default cask.
	Cask string `json:"cask"`

	// Defines the maximum size in bytes an active data file may reach before
	// the writer rotates to a new file.
	//
	// Default: 1048576
	MaxFileSize uint64 `json:"maxFileSize"`

	// Defines how many read-only file handles the reader caches.
	// Eviction is least-recently-used; evicted handles are closed.
	//
	// Default: 10
	HandleCacheCapacity int `json:"handleCacheCapacity"`

	// When true, every put fsyncs the active file after flushing, trading
	// throughput for durability across power loss. Regardless of this knob,
	// put always flushes its buffered writer before returning so a
	// same-process get observes the write.
	//
	// Default: false
	FsyncOnPut bool `json:"fsyncOnPut"`
}

// OptionFunc is a function type that modifies the instance configuration.
type OptionFunc func(*Options)

// WithCask names the cask directory. Required.
func WithCask(cask string) OptionFunc {
	return func(o *Options) {
		cask = strings.TrimSpace(cask)
		if cask != "" {
			o.Cask = cask
		}
	}
}

// WithDataDir sets the base directory under which casks are created.
func WithDataDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.DataDir = directory
		}
	}
}

// WithMaxFileSize sets the rotation threshold for active data files.
func WithMaxFileSize(size uint64) OptionFunc {
	return func(o *Options) {
		if size > 0 {
			o.MaxFileSize = size
		}
	}
}

// WithHandleCacheCapacity sets how many read handles the reader keeps open.
func WithHandleCacheCapacity(capacity int) OptionFunc {
	return func(o *Options) {
		if capacity > 0 {
			o.HandleCacheCapacity = capacity
		}
	}
}

// WithFsyncOnPut makes every put fsync the active file.
func WithFsyncOnPut(enabled bool) OptionFunc {
	return func(o *Options) {
		o.FsyncOnPut = enabled
	}
}

// Validate checks that the configuration is usable. A cask name is the one
// parameter with no sensible default.
func (o *Options) Validate() error {
	if strings.TrimSpace(o.Cask) == "" {
		return errors.NewRequiredFieldError("cask")
	}
	return nil
}
