package id

import (
	"strings"

	"github.com/google/uuid"
)

// NewID32 returns exactly 32 hex characters (a v4 UUID without hyphens).
func NewID32() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Valid reports whether s looks like an id produced by NewID32 or a
// client-supplied UUID in either hyphenated or compact form.
func Valid(s string) bool {
	if len(s) != 32 && len(s) != 36 {
		return false
	}
	if s != strings.ToLower(s) {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
