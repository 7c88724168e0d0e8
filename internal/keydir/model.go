package keydir

import "sync"

// Entry contains the minimum metadata required to locate the latest value of
// a key on disk. This structure is the primary memory consumer in the entire
// system: the key set lives in memory while the value set lives on disk, so
// every field here is deliberately a small scalar.
type Entry struct {
	// FileID identifies the data file holding the value.
	FileID uint64

	// ValPos is the absolute byte offset of the value payload (not the
	// record header) within FileID.
	ValPos uint64

	// ValSz is the length in bytes of the value payload. It lets a read
	// fetch exactly the value bytes in one positional read, and bounds-check
	// the result.
	ValSz uint32

	// Tstamp is the record's write time, Unix milliseconds truncated to 32
	// bits. Newer-or-equal timestamp installation is the caller's
	// responsibility; when timestamps collide the higher (FileID, ValPos)
	// pair is the newer record.
	Tstamp uint32
}

// shard is one bucket of the key directory: a plain map guarded by a
// read-write mutex. Readers clone the small Entry out of the map so no lock
// is held across disk I/O.
type shard struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// KeyDir is the complete in-memory index from key to on-disk location.
// It is sharded to keep reads from contending with the single writer and
// with each other.
type KeyDir struct {
	shards []*shard
}
