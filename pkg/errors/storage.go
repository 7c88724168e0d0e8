package errors

// StorageError is a specialized error type for failures touching the on-disk
// record log. It embeds baseError to inherit the standard error functionality,
// then adds fields that pinpoint exactly where in the cask the problem occurred.
type StorageError struct {
	*baseError
	fileID uint64 // Which data file was being accessed when the error occurred.
	offset int64  // Byte offset within the file where the problem happened.
	path   string // Path of the file that caused the issue.
}

// NewStorageError creates a new storage-specific error.
func NewStorageError(err error, code ErrorCode, msg string) *StorageError {
	return &StorageError{baseError: NewBaseError(err, code, msg)}
}

// WithFileID records which data file was involved in the error.
func (se *StorageError) WithFileID(id uint64) *StorageError {
	se.fileID = id
	return se
}

// WithOffset records the byte position where the error occurred.
func (se *StorageError) WithOffset(offset int64) *StorageError {
	se.offset = offset
	return se
}

// WithPath captures which file path was being processed when the error occurred.
func (se *StorageError) WithPath(path string) *StorageError {
	se.path = path
	return se
}

// WithDetail adds contextual information while preserving the StorageError type.
func (se *StorageError) WithDetail(key string, value any) *StorageError {
	se.baseError.WithDetail(key, value)
	return se
}

// FileID returns the data file identifier where the error occurred.
func (se *StorageError) FileID() uint64 {
	return se.fileID
}

// Offset returns the byte offset within the file where the error happened.
// Combined with FileID, this gives the exact location of the problem.
func (se *StorageError) Offset() int64 {
	return se.offset
}

// Path returns the path of the file that was being processed.
func (se *StorageError) Path() string {
	return se.path
}
