package script

import (
	"regexp"
	"strings"
)

var (
	nonIdentChars  = regexp.MustCompile(`[^a-zA-Z0-9_]`)
	identLeadChar  = regexp.MustCompile(`^[a-zA-Z_]`)
	onlyUnderscore = regexp.MustCompile(`^_+$`)
)

// SanitizeName converts an arbitrary key (column name, credential name) into
// a legal Python identifier. Returns ok=false when the key cannot yield a
// usable name, in which case the caller drops the assignment silently.
//
// Every character outside [A-Za-z0-9_] becomes "_". If the result does not
// start with a letter or underscore, or consists of underscores only, the
// prefix is prepended as "<prefix>_". A key of only special characters such
// as "@#$%" therefore sanitizes to "<prefix>_____" (prefix, separator, four
// underscores); that exact spelling is pinned by a regression test.
func SanitizeName(key, prefix string) (string, bool) {
	if strings.TrimSpace(key) == "" {
		return "", false
	}

	name := nonIdentChars.ReplaceAllString(key, "_")

	if !identLeadChar.MatchString(name) || onlyUnderscore.MatchString(name) {
		name = prefix + "_" + name
	}

	if name == "" || strings.TrimSpace(name) == "" || name == prefix+"_" {
		return "", false
	}

	return name, true
}
