package record

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamNilotpal/hydra/pkg/errors"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestEncodeLayout(t *testing.T) {
	buf := Encode(1, []byte("abhi"), []byte("rust"))
	require.Len(t, buf, HeaderSize+4+4)

	assert.Equal(t, ComputeCRC(1, []byte("abhi"), []byte("rust")), binary.BigEndian.Uint32(buf[0:4]))
	assert.Equal(t, uint32(1), binary.BigEndian.Uint32(buf[4:8]))
	assert.Equal(t, uint32(4), binary.BigEndian.Uint32(buf[8:12]))
	assert.Equal(t, uint32(4), binary.BigEndian.Uint32(buf[12:16]))
	assert.Equal(t, "abhi", string(buf[16:20]))
	assert.Equal(t, "rust", string(buf[20:24]))
}

func TestComputeCRCCoversSizesAndPayloads(t *testing.T) {
	base := ComputeCRC(7, []byte("k"), []byte("v"))

	assert.NotEqual(t, base, ComputeCRC(8, []byte("k"), []byte("v")))
	assert.NotEqual(t, base, ComputeCRC(7, []byte("x"), []byte("v")))
	assert.NotEqual(t, base, ComputeCRC(7, []byte("k"), []byte("y")))
	// Same concatenated payload bytes, different key/value split.
	assert.NotEqual(t, base, ComputeCRC(7, []byte("kv"), nil))
}

func TestIteratorSingleRecord(t *testing.T) {
	path := writeFile(t, "0", Encode(1, []byte("abhi"), []byte("rust")))

	it, err := NewIterator(path)
	require.NoError(t, err)
	defer it.Close()

	entry, err := it.Next()
	require.NoError(t, err)

	assert.Equal(t, uint32(1), entry.Tstamp)
	assert.Equal(t, uint32(4), entry.KSz)
	assert.Equal(t, uint32(4), entry.VSz)
	assert.Equal(t, "abhi", string(entry.Key))
	assert.Equal(t, "rust", string(entry.Value))
	assert.Equal(t, uint64(0), entry.Offset)
	assert.Equal(t, uint64(20), entry.ValPos)

	_, err = it.Next()
	assert.Equal(t, io.EOF, err)
}

func TestIteratorTracksOffsets(t *testing.T) {
	var data []byte
	data = append(data, Encode(1, []byte("pooja"), []byte("kalyaninagar"))...)
	data = append(data, Encode(2, []byte("abhi"), []byte("baner"))...)
	path := writeFile(t, "0", data)

	it, err := NewIterator(path)
	require.NoError(t, err)
	defer it.Close()

	first, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(21), first.ValPos)

	second, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(33), second.Offset)
	assert.Equal(t, uint64(33+16+4), second.ValPos)
}

func TestIteratorEmptyPayloads(t *testing.T) {
	var data []byte
	data = append(data, Encode(1, nil, []byte("v"))...)
	data = append(data, Encode(2, []byte("k"), nil)...)
	path := writeFile(t, "0", data)

	it, err := NewIterator(path)
	require.NoError(t, err)
	defer it.Close()

	first, err := it.Next()
	require.NoError(t, err)
	assert.Empty(t, first.Key)
	assert.Equal(t, "v", string(first.Value))

	second, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, "k", string(second.Key))
	assert.Empty(t, second.Value)

	_, err = it.Next()
	assert.Equal(t, io.EOF, err)
}

func TestIteratorEmptyFile(t *testing.T) {
	path := writeFile(t, "0", nil)

	it, err := NewIterator(path)
	require.NoError(t, err)
	defer it.Close()

	_, err = it.Next()
	assert.Equal(t, io.EOF, err)
}

func TestIteratorTruncatedHeader(t *testing.T) {
	full := Encode(1, []byte("abhi"), []byte("rust"))
	path := writeFile(t, "0", full[:10])

	it, err := NewIterator(path)
	require.NoError(t, err)
	defer it.Close()

	_, err = it.Next()
	require.Error(t, err)

	ce, ok := errors.AsCorruptionError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorCodeTruncatedRecord, ce.Code())
}

func TestIteratorTruncatedValue(t *testing.T) {
	var data []byte
	data = append(data, Encode(1, []byte("abhi"), []byte("rust"))...)
	full := Encode(2, []byte("pads"), []byte("java"))
	data = append(data, full[:len(full)-2]...)
	path := writeFile(t, "0", data)

	it, err := NewIterator(path)
	require.NoError(t, err)
	defer it.Close()

	entry, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, "abhi", string(entry.Key))

	_, err = it.Next()
	require.Error(t, err)

	ce, ok := errors.AsCorruptionError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorCodeTruncatedRecord, ce.Code())
	assert.Equal(t, int64(24), ce.Offset())

	// The iterator's offset still marks the end of the last good record.
	assert.Equal(t, uint64(24), it.Offset())
}

func TestIteratorChecksumMismatch(t *testing.T) {
	data := Encode(1, []byte("abhi"), []byte("rust"))
	data[len(data)-1] ^= 0xff
	path := writeFile(t, "0", data)

	it, err := NewIterator(path)
	require.NoError(t, err)
	defer it.Close()

	_, err = it.Next()
	require.Error(t, err)

	ce, ok := errors.AsCorruptionError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorCodeRecordCorrupted, ce.Code())
	assert.NotEqual(t, ce.ExpectedCRC(), ce.ActualCRC())
}

func TestIteratorNextIntoReusesBuffers(t *testing.T) {
	var data []byte
	data = append(data, Encode(1, []byte("key-one"), []byte("value-one"))...)
	data = append(data, Encode(2, []byte("ktwo"), []byte("vtwo"))...)
	path := writeFile(t, "0", data)

	it, err := NewIterator(path)
	require.NoError(t, err)
	defer it.Close()

	var entry Entry
	require.NoError(t, it.NextInto(&entry))
	firstKey := &entry.Key[0]
	require.NoError(t, it.NextInto(&entry))

	assert.Equal(t, "ktwo", string(entry.Key))
	assert.Equal(t, "vtwo", string(entry.Value))
	assert.Same(t, firstKey, &entry.Key[0])
}

func TestHintRoundTrip(t *testing.T) {
	var data []byte
	data = append(data, EncodeHint(1, []byte("abhi"), 4, 20)...)
	data = append(data, EncodeHint(2, []byte("pads"), 9, 44)...)
	path := writeFile(t, "hint", data)

	it, err := NewHintIterator(path)
	require.NoError(t, err)
	defer it.Close()

	first, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), first.Tstamp)
	assert.Equal(t, uint32(4), first.KSz)
	assert.Equal(t, uint32(4), first.VSz)
	assert.Equal(t, uint64(20), first.ValPos)
	assert.Equal(t, "abhi", string(first.Key))

	second, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(44), second.ValPos)
	assert.Equal(t, uint32(9), second.VSz)

	_, err = it.Next()
	assert.Equal(t, io.EOF, err)
}

func TestHintIteratorEmptyFile(t *testing.T) {
	path := writeFile(t, "hint", nil)

	it, err := NewHintIterator(path)
	require.NoError(t, err)
	defer it.Close()

	_, err = it.Next()
	assert.Equal(t, io.EOF, err)
}

func TestHintIteratorTruncatedEntry(t *testing.T) {
	full := EncodeHint(1, []byte("abhi"), 4, 20)
	path := writeFile(t, "hint", full[:len(full)-2])

	it, err := NewHintIterator(path)
	require.NoError(t, err)
	defer it.Close()

	_, err = it.Next()
	require.Error(t, err)

	ce, ok := errors.AsCorruptionError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorCodeTruncatedRecord, ce.Code())
}

func TestIsTombstone(t *testing.T) {
	assert.True(t, IsTombstone([]byte("TOMBSTONE")))
	assert.False(t, IsTombstone([]byte("tombstone")))
	assert.False(t, IsTombstone(nil))
}
