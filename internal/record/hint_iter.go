package record

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/iamNilotpal/hydra/pkg/errors"
)

// HintEntry is one decoded hint file entry. ValPos is the absolute byte
// offset of the value payload within the companion merged data file.
type HintEntry struct {
	Tstamp uint32
	KSz    uint32
	VSz    uint32
	ValPos uint64
	Key    []byte
}

// HintIterator performs a buffered sequential scan over a hint file.
// A zero-length hint file is a valid empty sequence; a truncated trailing
// entry is reported as a CorruptionError.
type HintIterator struct {
	file   *os.File
	reader *bufio.Reader
	path   string
	offset uint64
	header [HintHeaderSize]byte
}

// NewHintIterator opens the hint file at path for a sequential scan.
func NewHintIterator(path string) (*HintIterator, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to open hint file for scan",
		).WithPath(path)
	}

	return &HintIterator{
		file:   file,
		reader: bufio.NewReader(file),
		path:   path,
	}, nil
}

// Next decodes the next hint entry. It returns io.EOF when the file ends
// cleanly on an entry boundary.
func (it *HintIterator) Next() (*HintEntry, error) {
	entryStart := it.offset

	if _, err := io.ReadFull(it.reader, it.header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, it.truncated(err, entryStart)
	}

	entry := &HintEntry{
		Tstamp: binary.BigEndian.Uint32(it.header[0:4]),
		KSz:    binary.BigEndian.Uint32(it.header[4:8]),
		VSz:    binary.BigEndian.Uint32(it.header[8:12]),
		ValPos: binary.BigEndian.Uint64(it.header[12:20]),
	}

	entry.Key = make([]byte, entry.KSz)
	if _, err := io.ReadFull(it.reader, entry.Key); err != nil {
		return nil, it.truncated(err, entryStart)
	}

	it.offset = entryStart + HintHeaderSize + uint64(entry.KSz)
	return entry, nil
}

// Close releases the underlying file handle.
func (it *HintIterator) Close() error {
	return it.file.Close()
}

func (it *HintIterator) truncated(cause error, offset uint64) error {
	return errors.NewCorruptionError(
		cause, errors.ErrorCodeTruncatedRecord, "Hint entry truncated",
	).WithOffset(int64(offset)).WithDetail("path", it.path)
}
