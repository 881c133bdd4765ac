package ui

import (
	"sort"
	"strings"

	"github.com/tonimelisma/spe-client/pkg/spe"
)

// SortItems returns a copy of items with folders before files and each
// group ordered by name, ignoring case. Equal keys keep their order.
func SortItems(items []spe.DriveItem) []spe.DriveItem {
	out := make([]spe.DriveItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		fi, fj := out[i].IsFolder(), out[j].IsFolder()
		if fi != fj {
			return fi
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}
