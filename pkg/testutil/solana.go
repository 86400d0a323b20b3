package testutil

import (
	"bytes"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"
)

func GenerateSolanaKeys(t *testing.T, n int) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, n)
	for i := 0; i < n; i++ {
		p, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = p
	}
	return keys
}

// GenerateMintPair returns two distinct keys to be used as a pool's mints.
func GenerateMintPair(t *testing.T) (ed25519.PublicKey, ed25519.PublicKey) {
	keys := GenerateSolanaKeys(t, 2)
	require.False(t, bytes.Equal(keys[0], keys[1]))
	return keys[0], keys[1]
}
