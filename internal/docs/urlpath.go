package docs

import (
	"path"
	"strings"
)

// CleanURLPath collapses duplicate slashes and dot segments and applies the trailing slash policy.
// The root path is always "/".
func CleanURLPath(p string, trailingSlash bool) string {
	if p == "" {
		return "/"
	}
	p = path.Clean("/" + p)
	if p == "/" {
		return p
	}
	if trailingSlash {
		return p + "/"
	}
	return p
}

// JoinURLPath joins segments into an absolute URL path.
func JoinURLPath(trailingSlash bool, segments ...string) string {
	return CleanURLPath(strings.Join(segments, "/"), trailingSlash)
}

// stripNumberPrefix removes an ordering prefix such as "01-" or "2_" from a path segment.
func stripNumberPrefix(seg string) string {
	i := 0
	for i < len(seg) && seg[i] >= '0' && seg[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(seg)-1 {
		return seg
	}
	switch seg[i] {
	case '-', '_', '.', ' ':
		return seg[i+1:]
	}
	return seg
}

func stripPrefixes(rel string) string {
	if rel == "" || rel == "." {
		return ""
	}
	parts := strings.Split(rel, "/")
	for i, p := range parts {
		parts[i] = stripNumberPrefix(p)
	}
	return strings.Join(parts, "/")
}

func isIndexName(base, dir string) bool {
	lower := strings.ToLower(base)
	if lower == "index" || lower == "readme" {
		return true
	}
	return dir != "" && strings.EqualFold(base, path.Base(dir))
}
