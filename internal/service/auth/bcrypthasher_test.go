package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_BcryptHasher(t *testing.T) {
	t.Parallel()

	h := BcryptHasher{}

	t.Run("hash key", func(t *testing.T) {
		got, err := h.Hash("game-key")
		require.NoError(t, err)

		require.Len(t, got, 60, "bcrypt length is 60 letters as far as i know")
		require.Equal(t, "$2a$", got[:4], "bcrypt has should have prefix '$2a$'")
	})

	t.Run("compare key ok", func(t *testing.T) {
		hash, err := h.Hash("game-key")
		require.NoError(t, err)

		err = h.Compare(hash, "game-key")

		require.NoError(t, err)
	})

	t.Run("fail compare if wrong key", func(t *testing.T) {
		hash, err := h.Hash("game-key")
		require.NoError(t, err)

		err = h.Compare(hash, "wrong")

		require.Error(t, err)
	})

	t.Run("long keys differ after 72 bytes", func(t *testing.T) {
		prefix := strings.Repeat("k", 80)
		hash, err := h.Hash(prefix + "a")
		require.NoError(t, err)

		err = h.Compare(hash, prefix+"b")

		require.Error(t, err)
	})
}
