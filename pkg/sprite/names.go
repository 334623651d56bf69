package sprite

import (
	"fmt"
	"path/filepath"
	"strings"
)

// UniqueName returns name, or name with the smallest " (n)" suffix (n ≥ 2)
// that is not in taken. The suffix is inserted before the file extension:
// "hat.png" becomes "hat (2).png".
func UniqueName(name string, taken map[string]bool) string {
	if !taken[name] {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if !taken[candidate] {
			return candidate
		}
	}
}
