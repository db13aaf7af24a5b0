package crdtsync

import (
	"regexp"
	"strings"
)

var collectionNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9._~-]{0,46}$`)

// IsValidCollectionName implements spec §4.1/§8's collection-name policy:
// non-empty, length <= 47, first char letter or '_', remaining chars from
// [A-Za-z0-9._~-], must not start with "system." and must not contain
// ".system.".
func IsValidCollectionName(name string) bool {
	if !collectionNamePattern.MatchString(name) {
		return false
	}
	if strings.HasPrefix(name, "system.") {
		return false
	}
	if strings.Contains(name, ".system.") {
		return false
	}
	return true
}

// IsValidDatatypeKey implements spec §4.1's key policy: non-empty, length
// <= 255 bytes, no NUL byte, must not start with '$'.
func IsValidDatatypeKey(key string) bool {
	if key == "" || len(key) > 255 {
		return false
	}
	if strings.IndexByte(key, 0) >= 0 {
		return false
	}
	if strings.HasPrefix(key, "$") {
		return false
	}
	return true
}
