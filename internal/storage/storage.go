// Package storage manages the on-disk record log of a cask: the append-only
// active file with size-triggered rotation, positional reads through a
// bounded handle cache, key directory recovery at open time, and the merge
// procedure that compacts immutable files into one merged file plus a hint
// file.
//
// A cask is a directory holding data files named by increasing integer id.
// The file with the highest id is the active file and the only one ever
// appended to; every lower id is immutable. At most one hint file summarizes
// the contents of the last merged file, and a temp file exists only while a
// merge is in flight.
//
// The storage layer assumes the single-writer discipline: callers serialize
// Append, Merge and Close externally. Reads are unbounded and lock-free with
// respect to the writer.
package storage

import (
	"bufio"
	stdErrors "errors"
	"fmt"
	"os"

	"github.com/iamNilotpal/hydra/pkg/caskinfo"
	"github.com/iamNilotpal/hydra/pkg/errors"
	"github.com/iamNilotpal/hydra/pkg/filesys"
	"go.uber.org/multierr"
)

var (
	ErrStorageClosed = stdErrors.New("operation failed: cannot access closed storage")
)

// writerBufferSize is the size of the buffered writer over the active file.
const writerBufferSize = 64 * 1024

// New opens the cask directory at caskDir, discarding any uncommitted merge
// output, and positions the writer at the end of the active file. It does
// not rebuild the key directory; the caller runs Recover afterwards.
func New(caskDir string, config *Config) (*Storage, error) {
	if config == nil || config.Options == nil || config.Logger == nil {
		return nil, fmt.Errorf("invalid configuration")
	}

	if err := filesys.CreateDir(caskDir, 0755, true); err != nil {
		return nil, errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to create cask directory",
		).WithPath(caskDir)
	}

	s := &Storage{
		caskDir: caskDir,
		options: config.Options,
		log:     config.Logger,
	}

	// A temp file left behind means a merge crashed before its commit point.
	// The original immutable files are still intact, so the merge output and
	// its hint are both garbage.
	if err := s.discardStaleMerge(); err != nil {
		return nil, err
	}

	activeID, found, err := caskinfo.ActiveFileID(caskDir)
	if err != nil {
		return nil, errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to scan cask directory",
		).WithPath(caskDir)
	}

	s.activeID = activeID
	if found {
		size, err := filesys.FileSize(caskinfo.DataFilePath(caskDir, activeID))
		if err != nil {
			return nil, errors.NewStorageError(
				err, errors.ErrorCodeIO, "Failed to stat active data file",
			).WithFileID(activeID).WithPath(caskinfo.DataFilePath(caskDir, activeID))
		}
		s.activeSize = uint64(size)
	}

	if err := s.openActiveFile(); err != nil {
		return nil, err
	}

	handles, err := newHandleCache(caskDir, config.Options.HandleCacheCapacity)
	if err != nil {
		_ = s.activeFile.Close()
		return nil, err
	}
	s.handles = handles

	config.Logger.Infow(
		"Storage opened",
		"cask", caskDir,
		"activeFileID", s.activeID,
		"activeSize", s.activeSize,
		"maxFileSize", config.Options.MaxFileSize,
	)

	return s, nil
}

// openActiveFile opens the data file for the current active id in
// create+append mode and installs a fresh buffered writer over it.
func (s *Storage) openActiveFile() error {
	path := caskinfo.DataFilePath(s.caskDir, s.activeID)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to open active data file",
		).WithFileID(s.activeID).WithPath(path)
	}

	s.activeFile = file
	s.writer = bufio.NewWriterSize(file, writerBufferSize)
	return nil
}

// discardStaleMerge removes temp and hint files left by a merge that never
// reached its rename commit point.
func (s *Storage) discardStaleMerge() error {
	tempPath := caskinfo.TempFilePath(s.caskDir)

	exists, err := filesys.Exists(tempPath)
	if err != nil {
		return errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to probe for stale merge output",
		).WithPath(tempPath)
	}
	if !exists {
		return nil
	}

	s.log.Warnw("Discarding uncommitted merge output", "cask", s.caskDir)

	if err := filesys.DeleteFile(tempPath); err != nil {
		return errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to remove stale temp file",
		).WithPath(tempPath)
	}

	hintPath := caskinfo.HintFilePath(s.caskDir)
	if exists, err := filesys.Exists(hintPath); err != nil {
		return errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to probe for stale hint file",
		).WithPath(hintPath)
	} else if exists {
		if err := filesys.DeleteFile(hintPath); err != nil {
			return errors.NewStorageError(
				err, errors.ErrorCodeIO, "Failed to remove stale hint file",
			).WithPath(hintPath)
		}
	}

	return nil
}

// CaskDir returns the full path of the cask directory.
func (s *Storage) CaskDir() string {
	return s.caskDir
}

// ActiveFileID returns the id of the file currently receiving appends.
func (s *Storage) ActiveFileID() uint64 {
	return s.activeID
}

// Close flushes the active file and releases every file handle. The caller
// holds the writer lock; reads racing a close either observe ErrStorageClosed
// or complete through a freshly opened handle, never with partial data.
func (s *Storage) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrStorageClosed
	}

	var errs error
	if err := s.writer.Flush(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := s.activeFile.Sync(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := s.activeFile.Close(); err != nil {
		errs = multierr.Append(errs, err)
	}
	s.handles.close()

	s.log.Infow("Storage closed", "cask", s.caskDir, "activeFileID", s.activeID)
	return errs
}
