package security

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MatchesAnyPassword reports whether the candidate matches any entry in the
// allow-list. Entries starting with "$2" are bcrypt hashes; plaintext entries
// are compared in constant time.
func MatchesAnyPassword(candidate string, allowed []string) bool {
	if candidate == "" {
		return false
	}
	for _, entry := range allowed {
		if strings.HasPrefix(entry, "$2") {
			if bcrypt.CompareHashAndPassword([]byte(entry), []byte(candidate)) == nil {
				return true
			}
			continue
		}
		if subtle.ConstantTimeCompare([]byte(entry), []byte(candidate)) == 1 {
			return true
		}
	}
	return false
}
