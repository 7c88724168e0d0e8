package record

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/iamNilotpal/hydra/pkg/errors"
)

// Entry is one decoded data file record together with its byte positions
// within the file.
type Entry struct {
	CRC    uint32
	Tstamp uint32
	KSz    uint32
	VSz    uint32
	Key    []byte
	Value  []byte

	// Offset is the byte offset of the record header within the file.
	Offset uint64

	// ValPos is the absolute byte offset of the value payload within the
	// file: Offset + 16 + KSz.
	ValPos uint64
}

// Iterator performs a buffered sequential scan over a data file, yielding
// records in append order. The iterator distinguishes a clean end of file
// (io.EOF) from a record cut short by a crash mid-write, which surfaces as a
// CorruptionError with code ErrorCodeTruncatedRecord. A checksum mismatch
// surfaces as ErrorCodeRecordCorrupted. Errors terminate the scan; the
// format has no framing to resynchronize on.
type Iterator struct {
	file   *os.File
	reader *bufio.Reader
	path   string
	offset uint64
	header [HeaderSize]byte
}

// NewIterator opens the data file at path for a sequential scan.
func NewIterator(path string) (*Iterator, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to open data file for scan",
		).WithPath(path)
	}

	return &Iterator{
		file:   file,
		reader: bufio.NewReader(file),
		path:   path,
	}, nil
}

// Next decodes the next record into freshly allocated buffers. It returns
// io.EOF when the file ends cleanly on a record boundary.
func (it *Iterator) Next() (*Entry, error) {
	var entry Entry
	if err := it.NextInto(&entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// NextInto decodes the next record into the caller-supplied entry, reusing
// its key and value buffers when they have capacity. This variant avoids
// per-record allocations on the merge and recovery paths.
func (it *Iterator) NextInto(entry *Entry) error {
	recordStart := it.offset

	if _, err := io.ReadFull(it.reader, it.header[:]); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		// A partial header is a truncation signal, never a silent stop.
		return it.truncated(err, recordStart)
	}

	entry.CRC = binary.BigEndian.Uint32(it.header[0:4])
	entry.Tstamp = binary.BigEndian.Uint32(it.header[4:8])
	entry.KSz = binary.BigEndian.Uint32(it.header[8:12])
	entry.VSz = binary.BigEndian.Uint32(it.header[12:16])

	entry.Key = grow(entry.Key, int(entry.KSz))
	if _, err := io.ReadFull(it.reader, entry.Key); err != nil {
		return it.truncated(err, recordStart)
	}

	entry.Value = grow(entry.Value, int(entry.VSz))
	if _, err := io.ReadFull(it.reader, entry.Value); err != nil {
		return it.truncated(err, recordStart)
	}

	if crc := ComputeCRC(entry.Tstamp, entry.Key, entry.Value); crc != entry.CRC {
		return errors.NewCorruptionError(
			nil, errors.ErrorCodeRecordCorrupted, "Record checksum mismatch",
		).WithOffset(int64(recordStart)).WithChecksums(entry.CRC, crc).WithKey(string(entry.Key))
	}

	entry.Offset = recordStart
	entry.ValPos = recordStart + HeaderSize + uint64(entry.KSz)
	it.offset = entry.ValPos + uint64(entry.VSz)

	return nil
}

// Offset returns the byte offset the next record would be read from; after a
// truncation error it is the offset of the damaged record's header.
func (it *Iterator) Offset() uint64 {
	return it.offset
}

// Close releases the underlying file handle.
func (it *Iterator) Close() error {
	return it.file.Close()
}

func (it *Iterator) truncated(cause error, offset uint64) error {
	return errors.NewCorruptionError(
		cause, errors.ErrorCodeTruncatedRecord, "Record truncated mid-write",
	).WithOffset(int64(offset)).WithDetail("path", it.path)
}

// grow returns a slice of exactly n bytes, reusing buf's storage when large
// enough. n may be zero: zero-length keys and values are valid.
func grow(buf []byte, n int) []byte {
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]byte, n)
}
