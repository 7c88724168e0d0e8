package storage

import (
	stdErrors "errors"
	"io"
	"io/fs"

	"github.com/iamNilotpal/hydra/internal/keydir"
	"github.com/iamNilotpal/hydra/pkg/errors"
)

// ReadValue fetches the value payload a key directory entry points at, in
// one positional read of exactly ValSz bytes at ValPos. Positional reads
// never move a shared cursor, so concurrent reads against the same file id
// are safe.
//
// A read that comes back short fails with ErrorCodeValueSizeMismatch rather
// than returning partial data: the directory entry and the file disagree,
// which is an invalid state, not an absence.
func (s *Storage) ReadValue(entry keydir.Entry) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrStorageClosed
	}

	file, err := s.handles.get(entry.FileID)
	if err != nil {
		return nil, err
	}

	value := make([]byte, entry.ValSz)
	n, err := file.ReadAt(value, int64(entry.ValPos))

	// The cache may have evicted and closed this handle under us. Retry once
	// with a private handle; the file itself is immutable or append-only, so
	// the bytes are still there.
	if err != nil && stdErrors.Is(err, fs.ErrClosed) {
		private, openErr := s.handles.open(entry.FileID)
		if openErr != nil {
			return nil, openErr
		}
		defer private.Close()
		n, err = private.ReadAt(value, int64(entry.ValPos))
	}

	switch {
	case n == len(value):
		// A full read may still report io.EOF when the value ends exactly at
		// the file's tail; that is success.
		return value, nil
	case err == io.EOF || err == nil:
		return nil, errors.NewStorageError(
			nil, errors.ErrorCodeValueSizeMismatch, "Value shorter on disk than key directory records",
		).WithFileID(entry.FileID).
			WithOffset(int64(entry.ValPos)).
			WithDetail("expectedBytes", entry.ValSz).
			WithDetail("readBytes", n)
	default:
		return nil, errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed positional read of value",
		).WithFileID(entry.FileID).WithOffset(int64(entry.ValPos))
	}
}
