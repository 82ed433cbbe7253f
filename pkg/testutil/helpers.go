// Package testutil provides common utility functions for testing.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iwvelando/finance-formula/internal/catalog"
)

// FindEntry finds a catalog entry by reference name.
// Returns a pointer to the entry if found, nil otherwise.
func FindEntry(entries []catalog.Entry, reference string) *catalog.Entry {
	for i := range entries {
		if entries[i].Reference == reference {
			return &entries[i]
		}
	}
	return nil
}

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 {
	return &v
}

// WriteFile writes contents to name inside a fresh temporary directory and
// returns the full path.
func WriteFile(t testing.TB, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
