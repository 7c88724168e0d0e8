package storage

import (
	"bufio"
	"io"
	"os"

	natomic "github.com/natefinch/atomic"

	"github.com/iamNilotpal/hydra/internal/keydir"
	"github.com/iamNilotpal/hydra/internal/record"
	"github.com/iamNilotpal/hydra/pkg/caskinfo"
	"github.com/iamNilotpal/hydra/pkg/errors"
	"github.com/iamNilotpal/hydra/pkg/filesys"
)

// pendingUpdate is a key directory rewrite staged during the merge stream
// and applied only after the rename commit point.
type pendingUpdate struct {
	key   []byte
	entry keydir.Entry
}

// Merge coalesces every immutable data file into one merged file plus a hint
// file, then removes the merged inputs. The merged file takes the id just
// below the active file; ids below it disappear, which may leave a gap in
// the numbering.
//
// A record is live iff the key directory still points at exactly its
// (file id, value position); comparison is by position, never by timestamp,
// so millisecond collisions can't resurrect stale data. Live records stream
// into temp, each paired with a hint entry locating its value within temp.
//
// Commit ordering is write-then-delete: temp and hint are fully written and
// synced, temp is renamed over the merged id, the staged key directory
// updates are applied, and only then are the input files unlinked. A crash
// before the rename leaves the original files authoritative (open discards
// the stale temp and hint); a crash after it loses nothing, because the
// surviving inputs hold only records the merged file supersedes.
//
// Callers serialize Merge against Append externally; it must never run
// concurrently with a writer.
func (s *Storage) Merge(kd *keydir.KeyDir) error {
	if s.closed.Load() {
		return ErrStorageClosed
	}

	// Nothing sealed yet, nothing to merge.
	if s.activeID == 0 {
		return nil
	}

	ids, err := caskinfo.ListFileIDs(s.caskDir)
	if err != nil {
		return errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to scan cask for merge",
		).WithPath(s.caskDir)
	}

	immutables := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id != s.activeID {
			immutables = append(immutables, id)
		}
	}
	if len(immutables) == 0 {
		return nil
	}

	mergedID := s.activeID - 1
	tempPath := caskinfo.TempFilePath(s.caskDir)
	hintPath := caskinfo.HintFilePath(s.caskDir)

	s.log.Infow(
		"Merge started",
		"cask", s.caskDir,
		"immutableFiles", len(immutables),
		"mergedFileID", mergedID,
	)

	result, err := s.streamLiveRecords(kd, immutables, mergedID, tempPath, hintPath)
	if err != nil {
		// The inputs are untouched and the key directory was never modified;
		// the half-written outputs are garbage.
		_ = filesys.DeleteFile(tempPath)
		_ = filesys.DeleteFile(hintPath)
		return err
	}

	if result.liveRecords == 0 {
		// Every immutable record was stale: superseded, deleted or already
		// merged. No merged file is produced and the inputs just go away.
		if err := filesys.DeleteFile(tempPath); err != nil {
			return errors.NewStorageError(
				err, errors.ErrorCodeIO, "Failed to remove empty merge output",
			).WithPath(tempPath)
		}
		if err := filesys.DeleteFile(hintPath); err != nil {
			return errors.NewStorageError(
				err, errors.ErrorCodeIO, "Failed to remove empty hint file",
			).WithPath(hintPath)
		}
		if err := s.removeInputs(immutables, s.activeID); err != nil {
			return err
		}
		s.handles.purge()

		s.log.Infow("Merge finished with no live records", "cask", s.caskDir)
		return nil
	}

	// Commit point. ReplaceFile renames within the directory, atomically
	// substituting the merged output for the highest input file.
	mergedPath := caskinfo.DataFilePath(s.caskDir, mergedID)
	if err := natomic.ReplaceFile(tempPath, mergedPath); err != nil {
		_ = filesys.DeleteFile(tempPath)
		_ = filesys.DeleteFile(hintPath)
		return errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to commit merged data file",
		).WithFileID(mergedID).WithPath(mergedPath)
	}

	for _, update := range result.updates {
		kd.Put(update.key, update.entry)
	}

	if err := s.removeInputs(immutables, mergedID); err != nil {
		return err
	}

	// Cached read handles may reference unlinked inputs or the old inode
	// behind the merged id.
	s.handles.purge()

	s.log.Infow(
		"Merge finished",
		"cask", s.caskDir,
		"mergedFileID", mergedID,
		"liveRecords", result.liveRecords,
		"mergedBytes", result.mergedBytes,
	)
	return nil
}

type mergeResult struct {
	liveRecords int
	mergedBytes uint64
	updates     []pendingUpdate
}

// streamLiveRecords walks every immutable file in ascending id order,
// copying live records into temp and their hint entries into hint. Key
// directory rewrites are staged, not applied: until the rename lands, the
// directory must keep describing the files readers can actually see.
func (s *Storage) streamLiveRecords(
	kd *keydir.KeyDir, immutables []uint64, mergedID uint64, tempPath, hintPath string,
) (*mergeResult, error) {
	tempFile, err := os.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to open merge temp file",
		).WithPath(tempPath)
	}
	defer tempFile.Close()

	hintFile, err := os.OpenFile(hintPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to open hint file",
		).WithPath(hintPath)
	}
	defer hintFile.Close()

	tempWriter := bufio.NewWriterSize(tempFile, writerBufferSize)
	hintWriter := bufio.NewWriterSize(hintFile, writerBufferSize)

	result := &mergeResult{}
	var tempOffset uint64
	var entry record.Entry

	for _, fileID := range immutables {
		it, err := record.NewIterator(caskinfo.DataFilePath(s.caskDir, fileID))
		if err != nil {
			return nil, err
		}

		for {
			err := it.NextInto(&entry)
			if err == io.EOF {
				break
			}
			if err != nil {
				_ = it.Close()
				if ce, ok := errors.AsCorruptionError(err); ok {
					ce.WithFileID(fileID)
					if ce.Code() == errors.ErrorCodeTruncatedRecord {
						ce.WithCode(errors.ErrorCodeRecordCorrupted)
					}
				}
				return nil, err
			}

			// Live means the directory still points at this exact record.
			// Anything else was superseded, deleted, or moved by an earlier
			// merge pass.
			current, ok := kd.Get(entry.Key)
			if !ok || current.FileID != fileID || current.ValPos != entry.ValPos {
				continue
			}

			recordBytes := record.Encode(entry.Tstamp, entry.Key, entry.Value)
			if _, err := tempWriter.Write(recordBytes); err != nil {
				_ = it.Close()
				return nil, errors.NewStorageError(
					err, errors.ErrorCodeIO, "Failed to append record to merge output",
				).WithPath(tempPath)
			}

			valPos := tempOffset + record.HeaderSize + uint64(len(entry.Key))
			tempOffset += uint64(len(recordBytes))

			hintBytes := record.EncodeHint(entry.Tstamp, entry.Key, entry.VSz, valPos)
			if _, err := hintWriter.Write(hintBytes); err != nil {
				_ = it.Close()
				return nil, errors.NewStorageError(
					err, errors.ErrorCodeIO, "Failed to append hint entry",
				).WithPath(hintPath)
			}

			key := make([]byte, len(entry.Key))
			copy(key, entry.Key)
			result.updates = append(result.updates, pendingUpdate{
				key: key,
				entry: keydir.Entry{
					FileID: mergedID,
					ValSz:  entry.VSz,
					ValPos: valPos,
					Tstamp: entry.Tstamp,
				},
			})
			result.liveRecords++
		}

		if err := it.Close(); err != nil {
			return nil, errors.NewStorageError(
				err, errors.ErrorCodeIO, "Failed to close merge input",
			).WithFileID(fileID)
		}
	}

	if err := tempWriter.Flush(); err != nil {
		return nil, errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to flush merge output",
		).WithPath(tempPath)
	}
	if err := hintWriter.Flush(); err != nil {
		return nil, errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to flush hint file",
		).WithPath(hintPath)
	}

	// Both outputs must be durable before the rename makes them authoritative.
	if err := tempFile.Sync(); err != nil {
		return nil, errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to sync merge output",
		).WithPath(tempPath)
	}
	if err := hintFile.Sync(); err != nil {
		return nil, errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to sync hint file",
		).WithPath(hintPath)
	}

	result.mergedBytes = tempOffset
	return result, nil
}

// removeInputs unlinks every merged input except the one numbered keep.
// After a committed merge, keep names the merged output itself.
func (s *Storage) removeInputs(immutables []uint64, keep uint64) error {
	for _, id := range immutables {
		if id == keep {
			continue
		}
		path := caskinfo.DataFilePath(s.caskDir, id)
		if err := filesys.DeleteFile(path); err != nil {
			return errors.NewStorageError(
				err, errors.ErrorCodeIO, "Failed to remove merged input file",
			).WithFileID(id).WithPath(path)
		}
	}
	return nil
}
