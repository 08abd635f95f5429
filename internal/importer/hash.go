package importer

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// normalize cleans each field before hashing so that trailing
// whitespace, casing, or Windows line endings do not produce duplicate
// notes on re-import.
func normalize(d Draft) string {
	clean := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	// Fields are joined with a newline so adjacent fields cannot
	// collide, e.g. "ab"+"c" vs "a"+"bc".
	return strings.Join([]string{clean(d.Question), clean(d.Answer), clean(d.Topic)}, "\n")
}

// ContentHash returns the draft's dedupe key: the SHA-256 of its
// normalized content as a hex string.
func ContentHash(d Draft) string {
	sum := sha256.Sum256([]byte(normalize(d)))
	return fmt.Sprintf("%x", sum)
}
