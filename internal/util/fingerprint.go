package util

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Fingerprint computes a stable hash for a finding key. Whitespace in the
// snippet is normalized so reindenting a line keeps its fingerprint.
func Fingerprint(kind string, line int, snippet string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%s", kind, line, strings.Join(strings.Fields(snippet), " "))
	return hex.EncodeToString(h.Sum(nil))
}
