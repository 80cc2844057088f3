// Package moderation holds the pure content-policy rules: the text
// denylist and the report threshold. No I/O happens here; the store and
// handlers apply these decisions.
package moderation

import "strings"

// HideThreshold is the report count at which an entity is hidden. The
// check runs against the post-increment count, so the transition happens
// the moment the threshold is crossed.
const HideThreshold = 3

// denylist is matched as a case-insensitive SUBSTRING, not whole words.
// That is intentional: it also catches banned fragments inside longer
// words ("soldier" trips on "die"). Known limitation, kept on purpose.
var denylist = []string{
	"die",
	"kill",
	"suicide",
	"kys",
	"hurt myself",
	"end it all",
}

// IsTextAdmissible reports whether text passes the denylist.
func IsTextAdmissible(text string) bool {
	lower := strings.ToLower(text)
	for _, banned := range denylist {
		if strings.Contains(lower, banned) {
			return false
		}
	}
	return true
}

// ShouldHide reports whether an entity with the given report count must
// be hidden.
func ShouldHide(reportCount int) bool {
	return reportCount >= HideThreshold
}
