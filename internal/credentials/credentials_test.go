package credentials

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestCache(t *testing.T) {
	c := NewCache()

	_, ok := c.Recall(1)
	assert.False(t, ok)

	c.Remember(1, "pass123")
	p, ok := c.Recall(1)
	assert.True(t, ok)
	assert.Equal(t, "pass123", p)

	c.Forget(1)
	_, ok = c.Recall(1)
	assert.False(t, ok)
}

func TestSealer(t *testing.T) {
	s, err := NewSealer(testKey)
	require.NoError(t, err)

	sealed, err := s.Seal("pass123")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "pass123")

	again, err := s.Seal("pass123")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ between seals")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "pass123", plain)

	t.Run("wrong key", func(t *testing.T) {
		other, err := NewSealer(strings.Repeat("ff", 32))
		require.NoError(t, err)
		_, err = other.Open(sealed)
		assert.ErrorIs(t, err, ErrOpen)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := s.Open("not base64!")
		assert.ErrorIs(t, err, ErrOpen)
		_, err = s.Open("AAAA")
		assert.ErrorIs(t, err, ErrOpen)
	})
}

func TestNewSealerRejectsBadKeys(t *testing.T) {
	for _, key := range []string{"", "zz", "0011"} {
		_, err := NewSealer(key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}
