package script

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/leapdb/internal/source"
)

// OrderScripts returns the regular files of entries sorted by name, leaving
// out directories and backup files ending in "~". entries is not modified.
func OrderScripts(entries []source.Entry) []source.Entry {
	out := make([]source.Entry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir || !e.Regular || strings.HasSuffix(e.Name, "~") {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
