// Package record implements the on-disk codec of the cask format: the data
// file record, the hint file entry, and the sequential iterators over both.
//
// A data file is a sequence of records with a fixed 16-byte header followed
// by the key and value payloads. All integers are big-endian with no padding:
//
//	crc (4) | tstamp (4) | ksz (4) | vsz (4) | key (ksz) | value (vsz)
//
// The crc covers everything after itself: tstamp, ksz, vsz, key and value.
// The value offset of a record within its file is record start + 16 + ksz.
//
// A hint file entry carries just enough to rebuild a key directory entry
// without touching the merged data file's values:
//
//	tstamp (4) | ksz (4) | vsz (4) | val_pos (8) | key (ksz)
//
// Hint entries carry no CRC of their own; their integrity derives from the
// companion data file whose records are checksummed.
package record

import (
	"encoding/binary"
	"hash/crc32"
)

const (
	// HeaderSize is the fixed size of a data record header in bytes.
	HeaderSize = 16

	// HintHeaderSize is the fixed size of a hint entry header in bytes.
	HintHeaderSize = 20
)

// TombstoneValue is the reserved value payload marking a deletion. The format
// encodes deletes in the value channel, so applications must not store this
// literal as a regular value; the engine rejects it at the write boundary.
var TombstoneValue = []byte("TOMBSTONE")

// IsTombstone reports whether a value payload is the reserved deletion marker.
func IsTombstone(value []byte) bool {
	return string(value) == string(TombstoneValue)
}

// Size returns the encoded size in bytes of a record with the given key and
// value lengths.
func Size(ksz, vsz int) uint64 {
	return HeaderSize + uint64(ksz) + uint64(vsz)
}

// ComputeCRC computes the record checksum: CRC32 (IEEE) over the big-endian
// encodings of tstamp, ksz and vsz followed by the key and value payloads.
func ComputeCRC(tstamp uint32, key, value []byte) uint32 {
	var scratch [12]byte
	binary.BigEndian.PutUint32(scratch[0:4], tstamp)
	binary.BigEndian.PutUint32(scratch[4:8], uint32(len(key)))
	binary.BigEndian.PutUint32(scratch[8:12], uint32(len(value)))

	crc := crc32.ChecksumIEEE(scratch[:])
	crc = crc32.Update(crc, crc32.IEEETable, key)
	crc = crc32.Update(crc, crc32.IEEETable, value)
	return crc
}

// Encode serializes a full data record for the given timestamp, key and
// value, computing the checksum. Zero-length keys and values are valid.
func Encode(tstamp uint32, key, value []byte) []byte {
	buf := make([]byte, HeaderSize+len(key)+len(value))

	binary.BigEndian.PutUint32(buf[0:4], ComputeCRC(tstamp, key, value))
	binary.BigEndian.PutUint32(buf[4:8], tstamp)
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(key)))
	binary.BigEndian.PutUint32(buf[12:16], uint32(len(value)))
	copy(buf[HeaderSize:], key)
	copy(buf[HeaderSize+len(key):], value)

	return buf
}

// EncodeHint serializes a hint entry pointing at a value of the given size
// at valPos within the merged data file.
func EncodeHint(tstamp uint32, key []byte, vsz uint32, valPos uint64) []byte {
	buf := make([]byte, HintHeaderSize+len(key))

	binary.BigEndian.PutUint32(buf[0:4], tstamp)
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(key)))
	binary.BigEndian.PutUint32(buf[8:12], vsz)
	binary.BigEndian.PutUint64(buf[12:20], valPos)
	copy(buf[HintHeaderSize:], key)

	return buf
}
