package storage

import (
	"io"
	"os"

	"github.com/iamNilotpal/hydra/internal/keydir"
	"github.com/iamNilotpal/hydra/internal/record"
	"github.com/iamNilotpal/hydra/pkg/caskinfo"
	"github.com/iamNilotpal/hydra/pkg/errors"
	"github.com/iamNilotpal/hydra/pkg/filesys"
)

// Recover rebuilds the key directory by replaying the cask.
//
// The fast path replays the hint file left by the last merge, attributing
// its entries to the merged data file, then replays the active file on top
// of it: the active file may hold newer records or tombstones. The fast path
// applies only while the merged file is the sole immutable file; once
// rotations have sealed further files the hint no longer summarizes
// everything below the active file, and recovery falls back to replaying
// every data file in ascending id order.
//
// A truncated trailing record in the active file means the crash happened
// mid-write: replay keeps everything before the tear and truncates the torn
// bytes away so future appends don't bury them. Any other decode failure is
// fatal and leaves the engine unopened, with the key directory cleared.
func (s *Storage) Recover(kd *keydir.KeyDir) error {
	ids, err := caskinfo.ListFileIDs(s.caskDir)
	if err != nil {
		return errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to scan cask for recovery",
		).WithPath(s.caskDir)
	}

	if err := s.replay(kd, ids); err != nil {
		kd.Clear()
		return errors.NewStorageError(
			err, errors.ErrorCodeRecoveryFailed, "Failed to rebuild key directory",
		).WithPath(s.caskDir)
	}

	s.log.Infow(
		"Key directory rebuilt",
		"cask", s.caskDir,
		"liveKeys", kd.Len(),
		"dataFiles", len(ids),
	)
	return nil
}

func (s *Storage) replay(kd *keydir.KeyDir, ids []uint64) error {
	hintExists, err := filesys.Exists(caskinfo.HintFilePath(s.caskDir))
	if err != nil {
		return err
	}

	immutables := ids
	if len(ids) > 0 && ids[len(ids)-1] == s.activeID {
		immutables = ids[:len(ids)-1]
	}

	if hintExists && len(immutables) == 1 && immutables[0] == s.activeID-1 {
		if err := s.replayHintFile(kd); err != nil {
			return err
		}
		return s.replayDataFile(kd, s.activeID, true)
	}

	for _, id := range ids {
		if err := s.replayDataFile(kd, id, id == s.activeID); err != nil {
			return err
		}
	}
	return nil
}

// replayHintFile installs one key directory entry per hint entry, all
// pointing at the merged companion file. Merged files never hold tombstones,
// so every hint entry is an install.
func (s *Storage) replayHintFile(kd *keydir.KeyDir) error {
	mergedID := s.activeID - 1

	it, err := record.NewHintIterator(caskinfo.HintFilePath(s.caskDir))
	if err != nil {
		return err
	}
	defer it.Close()

	for {
		entry, err := it.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		kd.Put(entry.Key, keydir.Entry{
			FileID: mergedID,
			ValSz:  entry.VSz,
			ValPos: entry.ValPos,
			Tstamp: entry.Tstamp,
		})
	}
}

// replayDataFile streams one data file in append order. Within a file later
// records supersede earlier ones for the same key; a tombstone removes the
// key. tolerateTruncation is set only for the active file.
func (s *Storage) replayDataFile(kd *keydir.KeyDir, fileID uint64, tolerateTruncation bool) error {
	path := caskinfo.DataFilePath(s.caskDir, fileID)

	it, err := record.NewIterator(path)
	if err != nil {
		return err
	}
	defer it.Close()

	var entry record.Entry
	for {
		err := it.NextInto(&entry)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if tolerateTruncation && isTruncatedRecord(err) {
				return s.dropTornTail(path, it.Offset())
			}
			if ce, ok := errors.AsCorruptionError(err); ok {
				ce.WithFileID(fileID)
				if ce.Code() == errors.ErrorCodeTruncatedRecord {
					ce.WithCode(errors.ErrorCodeRecordCorrupted)
				}
			}
			return err
		}

		if record.IsTombstone(entry.Value) {
			kd.Del(entry.Key)
			continue
		}

		kd.Put(entry.Key, keydir.Entry{
			FileID: fileID,
			ValSz:  entry.VSz,
			ValPos: entry.ValPos,
			Tstamp: entry.Tstamp,
		})
	}
}

// dropTornTail cuts the active file back to its last complete record so
// future appends don't land after garbage. validLen is the offset of the
// torn record's header; everything before it is kept.
func (s *Storage) dropTornTail(path string, validLen uint64) error {
	s.log.Warnw(
		"Dropping torn record at tail of active file",
		"path", path,
		"validBytes", validLen,
		"tornBytes", s.activeSize-validLen,
	)

	if err := os.Truncate(path, int64(validLen)); err != nil {
		return errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to truncate torn record",
		).WithFileID(s.activeID).WithPath(path)
	}

	s.activeSize = validLen
	return nil
}

func isTruncatedRecord(err error) bool {
	ce, ok := errors.AsCorruptionError(err)
	return ok && ce.Code() == errors.ErrorCodeTruncatedRecord
}
