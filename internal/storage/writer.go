package storage

import (
	"time"

	"github.com/iamNilotpal/hydra/internal/keydir"
	"github.com/iamNilotpal/hydra/internal/record"
	"github.com/iamNilotpal/hydra/pkg/caskinfo"
	"github.com/iamNilotpal/hydra/pkg/errors"
)

// Append writes one record for the given key and value to the active file
// and returns the key directory entry locating its value payload. Tombstone
// writes go through this same path.
//
// If the record would push the active file past the configured size
// threshold, the writer rotates first: the current active file becomes
// immutable and the record lands at the start of a fresh file. The returned
// entry always describes the post-rotation state, so the first record of a
// rotated file has val_pos = 16 + ksz.
//
// The buffered writer is flushed before Append returns. A subsequent
// positional read of the returned entry therefore observes the bytes, even
// from another goroutine.
//
// Callers serialize Append externally; see the package comment.
func (s *Storage) Append(key, value []byte) (keydir.Entry, error) {
	if s.closed.Load() {
		return keydir.Entry{}, ErrStorageClosed
	}

	recordSize := record.Size(len(key), len(value))

	// Rotation triggers on would-be overflow, before writing. The threshold
	// bounds file sizes but is not a cap on record size: an oversized record
	// still lands whole in the fresh file.
	if recordSize+s.activeSize >= s.options.MaxFileSize {
		if err := s.rotate(); err != nil {
			return keydir.Entry{}, err
		}
	}

	tstamp := uint32(time.Now().UnixMilli())
	valPos := s.activeSize + record.HeaderSize + uint64(len(key))

	buf := record.Encode(tstamp, key, value)
	if _, err := s.writer.Write(buf); err != nil {
		return keydir.Entry{}, errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to append record",
		).WithFileID(s.activeID).WithOffset(int64(s.activeSize))
	}

	// Flush so the bytes reach the OS before the key directory learns about
	// them; a torn in-process read is impossible.
	if err := s.writer.Flush(); err != nil {
		return keydir.Entry{}, errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to flush record",
		).WithFileID(s.activeID).WithOffset(int64(s.activeSize))
	}

	if s.options.FsyncOnPut {
		if err := s.activeFile.Sync(); err != nil {
			return keydir.Entry{}, errors.NewStorageError(
				err, errors.ErrorCodeIO, "Failed to fsync active file",
			).WithFileID(s.activeID)
		}
	}

	s.activeSize += recordSize

	return keydir.Entry{
		FileID: s.activeID,
		ValSz:  uint32(len(value)),
		ValPos: valPos,
		Tstamp: tstamp,
	}, nil
}

// rotate seals the current active file and opens its successor. The sealed
// file keeps its id and becomes immutable; only merge ever removes it.
func (s *Storage) rotate() error {
	if err := s.writer.Flush(); err != nil {
		return errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to flush active file before rotation",
		).WithFileID(s.activeID)
	}
	if err := s.activeFile.Close(); err != nil {
		return errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to close active file before rotation",
		).WithFileID(s.activeID)
	}

	previousID := s.activeID
	s.activeID++
	s.activeSize = 0

	if err := s.openActiveFile(); err != nil {
		return err
	}

	s.log.Infow(
		"Rotated active data file",
		"cask", s.caskDir,
		"sealedFileID", previousID,
		"activeFileID", s.activeID,
		"path", caskinfo.DataFilePath(s.caskDir, s.activeID),
	)
	return nil
}
