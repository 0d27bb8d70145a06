// SPDX-License-Identifier: MPL-2.0

package verify

import (
	"archive/zip"
	"fmt"
	"slices"
)

// EntryList is the ordered list of entry paths in an archive.
type EntryList []string

// ListEntries returns the entry paths of the zip archive at path in archive
// order.
func ListEntries(path string) (EntryList, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	defer func() { _ = r.Close() }()

	entries := make(EntryList, 0, len(r.File))
	for _, f := range r.File {
		entries = append(entries, f.Name)
	}
	return entries, nil
}

// Contains reports whether name is an entry.
func (l EntryList) Contains(name string) bool {
	return slices.Contains(l, name)
}
