package errors

// CorruptionError provides specialized handling for data-integrity failures:
// CRC mismatches and truncated records discovered while decoding a data file.
// It extends the base error system with enough context to locate the damaged
// record and to distinguish a checksum failure from a short read.
type CorruptionError struct {
	*baseError

	// Which data file contained the damaged record.
	fileID uint64

	// Byte offset of the record's header within the file.
	offset int64

	// The checksum stored in the record header.
	expectedCRC uint32

	// The checksum computed over the record bytes actually read.
	actualCRC uint32

	// The key of the damaged record, when it could be decoded.
	key string
}

// NewCorruptionError creates a new corruption-specific error with the
// provided context.
func NewCorruptionError(err error, code ErrorCode, msg string) *CorruptionError {
	return &CorruptionError{baseError: NewBaseError(err, code, msg)}
}

// WithFileID records which data file contained the damaged record.
func (ce *CorruptionError) WithFileID(id uint64) *CorruptionError {
	ce.fileID = id
	return ce
}

// WithOffset records the byte offset of the damaged record's header.
func (ce *CorruptionError) WithOffset(offset int64) *CorruptionError {
	ce.offset = offset
	return ce
}

// WithChecksums records the expected and computed CRC values for a
// checksum mismatch.
func (ce *CorruptionError) WithChecksums(expected, actual uint32) *CorruptionError {
	ce.expectedCRC = expected
	ce.actualCRC = actual
	return ce
}

// WithKey records the key of the damaged record, when decoding got far
// enough to produce one.
func (ce *CorruptionError) WithKey(key string) *CorruptionError {
	ce.key = key
	return ce
}

// WithDetail adds contextual information while preserving the CorruptionError type.
func (ce *CorruptionError) WithDetail(key string, value any) *CorruptionError {
	ce.baseError.WithDetail(key, value)
	return ce
}

// FileID returns the data file identifier containing the damaged record.
func (ce *CorruptionError) FileID() uint64 {
	return ce.fileID
}

// Offset returns the byte offset of the damaged record's header.
func (ce *CorruptionError) Offset() int64 {
	return ce.offset
}

// ExpectedCRC returns the checksum stored in the record header.
func (ce *CorruptionError) ExpectedCRC() uint32 {
	return ce.expectedCRC
}

// ActualCRC returns the checksum computed over the bytes read.
func (ce *CorruptionError) ActualCRC() uint32 {
	return ce.actualCRC
}

// Key returns the key of the damaged record, if known.
func (ce *CorruptionError) Key() string {
	return ce.key
}
