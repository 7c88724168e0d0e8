// Package caskinfo provides utilities for naming and scanning the files of a
// cask directory.
//
// A cask holds data files whose names are plain non-negative decimal integers
// ("0", "1", ...), at most one hint file summarizing the last merge, and a
// transient temp file that exists only while a merge is in flight. Anything
// else in the directory (lock files, editor droppings) is ignored by the
// scan; the directory listing is the authoritative manifest.
package caskinfo

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
)

const (
	// HintFileName is the literal name of the hint file a merge produces.
	HintFileName = "hint"

	// TempFileName is the literal name of the in-flight merge output. A temp
	// file present at open means a merge never reached its commit point.
	TempFileName = "temp"

	// LockFileName is the advisory lock file enforcing the single-writer
	// discipline on a cask.
	LockFileName = "LOCK"
)

// DataFileName returns the filename for the data file with the given id.
func DataFileName(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// DataFilePath returns the full path of the data file with the given id
// inside the cask directory.
func DataFilePath(caskDir string, id uint64) string {
	return filepath.Join(caskDir, DataFileName(id))
}

// HintFilePath returns the full path of the cask's hint file.
func HintFilePath(caskDir string) string {
	return filepath.Join(caskDir, HintFileName)
}

// TempFilePath returns the full path of the cask's merge temp file.
func TempFilePath(caskDir string) string {
	return filepath.Join(caskDir, TempFileName)
}

// LockFilePath returns the full path of the cask's lock file.
func LockFilePath(caskDir string) string {
	return filepath.Join(caskDir, LockFileName)
}

// ParseFileID parses a directory entry name as a data file id. The second
// return value is false for the hint file, the temp file and any other
// non-numeric name.
func ParseFileID(name string) (uint64, bool) {
	if name == "" {
		return 0, false
	}
	// Reject "+1", " 1", "0x1" and similar: data file names are bare digits.
	for i := 0; i < len(name); i++ {
		if name[i] < '0' || name[i] > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseUint(name, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ListFileIDs scans the cask directory and returns the ids of all data files
// in ascending order. Subdirectories and non-numeric names are skipped.
func ListFileIDs(caskDir string) ([]uint64, error) {
	entries, err := os.ReadDir(caskDir)
	if err != nil {
		return nil, fmt.Errorf("reading cask directory %s: %w", caskDir, err)
	}

	ids := make([]uint64, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if id, ok := ParseFileID(entry.Name()); ok {
			ids = append(ids, id)
		}
	}

	slices.Sort(ids)
	return ids, nil
}

// ActiveFileID returns the highest data file id in the cask, which by
// definition is the active file. The second return value is false when the
// cask holds no data files yet.
func ActiveFileID(caskDir string) (uint64, bool, error) {
	ids, err := ListFileIDs(caskDir)
	if err != nil {
		return 0, false, err
	}
	if len(ids) == 0 {
		return 0, false, nil
	}
	return ids[len(ids)-1], true, nil
}
