package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthorize(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("abc"), bcrypt.MinCost)
	require.NoError(t, err)

	// no password set: everyone is let in, whatever they supply
	assert.True(t, Authorize("u1", "", "u2", ""))
	assert.True(t, Authorize("u1", "", "u2", "anything"))

	// creator always bypasses the password
	assert.True(t, Authorize("u1", string(hash), "u1", ""))
	assert.True(t, Authorize("u1", string(hash), "u1", "wrong"))

	// everyone else needs the exact plaintext
	assert.True(t, Authorize("u1", string(hash), "u2", "abc"))
	assert.False(t, Authorize("u1", string(hash), "u2", "wrong"))
	assert.False(t, Authorize("u1", string(hash), "u2", ""))
}
