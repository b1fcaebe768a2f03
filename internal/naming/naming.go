// Package naming computes non-colliding names for renamed items.
package naming

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/desertthunder/nodeq/internal/models"
)

var suffixPattern = regexp.MustCompile(`^(.*) \((\d+)\)$`)

// Split separates name into its base and extension. Folders and dot files have no extension.
func Split(name string, isFile bool) (base, ext string) {
	if !isFile {
		return name, ""
	}
	ext = path.Ext(name)
	if ext == name || ext == "." {
		return name, ""
	}
	return strings.TrimSuffix(name, ext), ext
}

// NextAvailable returns the first "base (n)ext" not present in taken, counting up from the
// suffix name already carries. Keys in taken are compared case-insensitively.
func NextAvailable(name string, isFile bool, taken map[string]bool) string {
	base, ext := Split(name, isFile)

	n := 1
	if m := suffixPattern.FindStringSubmatch(base); m != nil {
		if v, err := strconv.Atoi(m[2]); err == nil {
			base, n = m[1], v+1
		}
	}

	for ; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if !taken[strings.ToLower(candidate)] {
			return candidate
		}
	}
}

// Taken builds a lookup set from existing names in the destination.
func Taken(names ...string) map[string]bool {
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[strings.ToLower(n)] = true
	}
	return taken
}

// Assign fills RenameName on items that do not have one yet, reserving every assigned name in
// taken so later items never pick the same one. A nil taken starts from an empty set.
// It returns the updated items.
func Assign(items []models.PendingItem, taken map[string]bool) []models.PendingItem {
	if taken == nil {
		taken = make(map[string]bool, len(items))
	}
	out := make([]models.PendingItem, len(items))
	for i, item := range items {
		if item.RenameName == "" {
			item.RenameName = NextAvailable(item.DisplayLabel, item.IsFile(), taken)
		}
		taken[strings.ToLower(item.RenameName)] = true
		out[i] = item
	}
	return out
}
