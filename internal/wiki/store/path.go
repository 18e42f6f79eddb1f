package store

import (
	"regexp"
	"strings"
)

var pathPattern = regexp.MustCompile(`^[a-zA-Z0-9]+(/[a-zA-Z0-9]+)*$`)

// ValidPath reports whether p is one or more alphanumeric segments joined by single slashes.
func ValidPath(p string) bool {
	return pathPattern.MatchString(p)
}

// Section returns the first segment of a path.
func Section(p string) string {
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return p
}
