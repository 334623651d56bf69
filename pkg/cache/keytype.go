package cache

import "strings"

// keyType labels a key for observability events. Scope prefixes added by
// ScopedKeyer are ignored.
func keyType(key string) string {
	if strings.Contains(key, "export:") {
		return "export"
	}
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "unknown"
}
