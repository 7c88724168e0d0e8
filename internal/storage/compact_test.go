package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamNilotpal/hydra/internal/keydir"
	"github.com/iamNilotpal/hydra/pkg/caskinfo"
)

func TestMergeNoImmutableFiles(t *testing.T) {
	caskDir := filepath.Join(t.TempDir(), "cask")
	s := openStorage(t, caskDir, 1<<20)
	defer s.Close()

	kd := keydir.New()
	put(t, s, kd, "abhi", "rust")

	// Everything still lives in the active file; merge has nothing to do.
	require.NoError(t, s.Merge(kd))
	assert.Equal(t, []uint64{0}, listDataFiles(t, caskDir))

	exists, err := os.Stat(caskinfo.HintFilePath(caskDir))
	assert.True(t, os.IsNotExist(err), "no hint file expected, got %v", exists)
}

func TestMergeCoalescesOverlappingFiles(t *testing.T) {
	caskDir := filepath.Join(t.TempDir(), "cask")
	s := openStorage(t, caskDir, 60)
	defer s.Close()

	kd := keydir.New()

	// Twenty writes across ten files, two records per file: each key is
	// written twice into the same file, so every file holds one stale and
	// one live record.
	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("ky%02d", i)
		put(t, s, kd, key, fmt.Sprintf("ol%02d", i))
		put(t, s, kd, key, fmt.Sprintf("nw%02d", i))
	}
	require.Equal(t, uint64(9), s.ActiveFileID())

	require.NoError(t, s.Merge(kd))

	// The cask now holds exactly the merged file, the active file and the
	// hint file.
	assert.Equal(t, []uint64{8, 9}, listDataFiles(t, caskDir))
	_, err := os.Stat(caskinfo.HintFilePath(caskDir))
	require.NoError(t, err)

	// Every key still resolves to its latest value, including the keys whose
	// records moved and the key still in the active file.
	for i := 0; i < 10; i++ {
		entry, ok := kd.Get([]byte(fmt.Sprintf("ky%02d", i)))
		require.True(t, ok)

		value, err := s.ReadValue(entry)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("nw%02d", i), string(value))

		if i < 9 {
			assert.Equal(t, uint64(8), entry.FileID, "merged keys point at the merged file")
		} else {
			assert.Equal(t, uint64(9), entry.FileID, "active-file keys are untouched")
		}
	}
}

func TestMergeDropsDeletedKeys(t *testing.T) {
	caskDir := filepath.Join(t.TempDir(), "cask")
	s := openStorage(t, caskDir, 60)
	defer s.Close()

	kd := keydir.New()
	put(t, s, kd, "abhi", "rust")
	put(t, s, kd, "pads", "java")
	del(t, s, kd, "abhi")
	put(t, s, kd, "swap", ".net")
	require.Greater(t, s.ActiveFileID(), uint64(0))

	require.NoError(t, s.Merge(kd))

	assert.False(t, kd.Has([]byte("abhi")))

	entry, ok := kd.Get([]byte("pads"))
	require.True(t, ok)
	value, err := s.ReadValue(entry)
	require.NoError(t, err)
	assert.Equal(t, "java", string(value))
}

func TestMergeAllStaleProducesNothing(t *testing.T) {
	caskDir := filepath.Join(t.TempDir(), "cask")
	s := openStorage(t, caskDir, 60)
	defer s.Close()

	kd := keydir.New()
	// Fill two files, then delete every key: all immutable records are
	// stale, so the merge produces neither a merged file nor a hint file,
	// and the inputs still disappear.
	put(t, s, kd, "abhi", "rust")
	put(t, s, kd, "pads", "java")
	put(t, s, kd, "swap", ".net")
	del(t, s, kd, "abhi")
	del(t, s, kd, "pads")
	del(t, s, kd, "swap")
	require.Greater(t, s.ActiveFileID(), uint64(0))

	before := listDataFiles(t, caskDir)
	require.Greater(t, len(before), 1)

	require.NoError(t, s.Merge(kd))

	assert.Equal(t, []uint64{s.ActiveFileID()}, listDataFiles(t, caskDir))
	_, err := os.Stat(caskinfo.HintFilePath(caskDir))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(caskinfo.TempFilePath(caskDir))
	assert.True(t, os.IsNotExist(err))
}

func TestMergeIsRepeatable(t *testing.T) {
	caskDir := filepath.Join(t.TempDir(), "cask")
	s := openStorage(t, caskDir, 60)
	defer s.Close()

	kd := keydir.New()
	put(t, s, kd, "abhi", "rust")
	put(t, s, kd, "pads", "java")
	put(t, s, kd, "swap", ".net")

	require.NoError(t, s.Merge(kd))

	// More writes rotate past the merged file, then a second merge folds
	// the first merge's output in with the newly sealed files.
	put(t, s, kd, "jane", "mk")
	put(t, s, kd, "ashu", "baner")
	put(t, s, kd, "abhi", "gooo")

	require.NoError(t, s.Merge(kd))

	for key, want := range map[string]string{
		"abhi": "gooo", "pads": "java", "swap": ".net", "jane": "mk", "ashu": "baner",
	} {
		entry, ok := kd.Get([]byte(key))
		require.True(t, ok, "key %s", key)
		value, err := s.ReadValue(entry)
		require.NoError(t, err, "key %s", key)
		assert.Equal(t, want, string(value), "key %s", key)
	}
}

func TestRecoverFromHintFile(t *testing.T) {
	caskDir := filepath.Join(t.TempDir(), "cask")
	s := openStorage(t, caskDir, 60)

	kd := keydir.New()
	put(t, s, kd, "abhi", "rust")
	put(t, s, kd, "pads", "java")
	put(t, s, kd, "swap", ".net")
	del(t, s, kd, "pads")

	require.NoError(t, s.Merge(kd))
	want := kd.Snapshot()
	require.NoError(t, s.Close())

	reopened := openStorage(t, caskDir, 60)
	defer reopened.Close()

	rebuilt := keydir.New()
	require.NoError(t, reopened.Recover(rebuilt))

	if diff := cmp.Diff(want, rebuilt.Snapshot()); diff != "" {
		t.Fatalf("key directory mismatch after hint replay (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, rebuilt.Len())

	for key, wantValue := range map[string]string{"abhi": "rust", "swap": ".net"} {
		entry, ok := rebuilt.Get([]byte(key))
		require.True(t, ok)
		value, err := reopened.ReadValue(entry)
		require.NoError(t, err)
		assert.Equal(t, wantValue, string(value))
	}
}

func TestRecoverIgnoresHintAfterFurtherRotations(t *testing.T) {
	caskDir := filepath.Join(t.TempDir(), "cask")
	s := openStorage(t, caskDir, 60)

	kd := keydir.New()
	put(t, s, kd, "abhi", "rust")
	put(t, s, kd, "pads", "java")
	put(t, s, kd, "swap", ".net")
	require.NoError(t, s.Merge(kd))

	// Rotations after the merge seal files the hint knows nothing about;
	// recovery must fall back to replaying every data file.
	put(t, s, kd, "jane", "mk")
	put(t, s, kd, "ashu", "baner")
	put(t, s, kd, "abhi", "gooo")

	want := kd.Snapshot()
	require.NoError(t, s.Close())

	reopened := openStorage(t, caskDir, 60)
	defer reopened.Close()

	rebuilt := keydir.New()
	require.NoError(t, reopened.Recover(rebuilt))

	if diff := cmp.Diff(want, rebuilt.Snapshot()); diff != "" {
		t.Fatalf("key directory mismatch (-want +got):\n%s", diff)
	}

	entry, ok := rebuilt.Get([]byte("abhi"))
	require.True(t, ok)
	value, err := reopened.ReadValue(entry)
	require.NoError(t, err)
	assert.Equal(t, "gooo", string(value))
}
