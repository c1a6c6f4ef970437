package cache

import "strings"

// Namespace prefixes every persistent cache key so invalidation can
// remove cached responses without touching session or snapshot keys
// sharing the same store.
const Namespace = "api-cache:"

// ResolveKey derives the canonical cache key for a request: the
// absolute URL it will be sent to. Paths that are already absolute
// pass through unchanged; otherwise base and path are joined with
// exactly one separating slash. Pure and stable, so identical inputs
// always map to the same key.
func ResolveKey(path, base string) string {
	if isAbsolute(path) {
		return path
	}
	switch {
	case path == "":
		return base
	case strings.HasSuffix(base, "/") && strings.HasPrefix(path, "/"):
		return strings.TrimSuffix(base, "/") + path
	case !strings.HasSuffix(base, "/") && !strings.HasPrefix(path, "/"):
		return base + "/" + path
	default:
		return base + path
	}
}

func isAbsolute(s string) bool {
	if len(s) < 8 {
		return false
	}
	p := strings.ToLower(s[:8])
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// Namespaced returns the persistent-store key for a canonical URL.
func Namespaced(key string) string { return Namespace + key }
