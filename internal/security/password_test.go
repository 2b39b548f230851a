package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMatchesAnyPassword(t *testing.T) {
	allowed := []string{"admin123", "easymed2025"}

	t.Run("PlaintextMatch", func(t *testing.T) {
		assert.True(t, MatchesAnyPassword("admin123", allowed))
		assert.True(t, MatchesAnyPassword("easymed2025", allowed))
	})

	t.Run("NoMatch", func(t *testing.T) {
		assert.False(t, MatchesAnyPassword("wrong", allowed))
		assert.False(t, MatchesAnyPassword("", allowed))
	})

	t.Run("BcryptEntry", func(t *testing.T) {
		hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
		require.NoError(t, err)

		mixed := []string{string(hash), "admin123"}
		assert.True(t, MatchesAnyPassword("s3cret", mixed))
		assert.True(t, MatchesAnyPassword("admin123", mixed))
		assert.False(t, MatchesAnyPassword("wrong", mixed))
		// The hash text itself is not a valid password.
		assert.False(t, MatchesAnyPassword(string(hash), []string{string(hash)}))
	})
}
