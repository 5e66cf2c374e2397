package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	h, err := Hash("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, h)
	assert.NotEqual(t, "correct horse battery staple", h)

	assert.True(t, Verify(h, "correct horse battery staple"))
	assert.False(t, Verify(h, "wrong password"))
	assert.False(t, Verify("not-a-bcrypt-hash", "anything"))
}
