package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	digest, err := h.Hash("Sup3r$ecret")
	require.NoError(t, err)
	assert.NotEqual(t, "Sup3r$ecret", digest)
	assert.NotContains(t, digest, "Sup3r$ecret")

	assert.True(t, h.Verify("Sup3r$ecret", digest))
	assert.False(t, h.Verify("wrong", digest))
	assert.False(t, h.Verify("Sup3r$ecret", "not-a-digest"))
}

func TestHasher_SaltsEachDigest(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	a, err := h.Hash("same-password")
	require.NoError(t, err)
	b, err := h.Hash("same-password")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHasher_RejectsOverlongPassword(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	_, err := h.Hash(strings.Repeat("a", MaxPasswordBytes+1))
	require.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestNewHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewHasher(0).Cost)
	assert.Equal(t, DefaultBcryptCost, NewHasher(99).Cost)
	assert.Equal(t, 10, NewHasher(10).Cost)
}
