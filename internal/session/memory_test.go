package session

import (
	"context"
	"testing"

	"kgeu-bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Upsert(ctx, models.UserRecord{UserID: 1, Login: "ivanov", Token: "T1"}))
	require.NoError(t, m.Upsert(ctx, models.UserRecord{UserID: 2, Login: "petrov", NotificationsEnabled: true}))

	rec, err := m.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "T1", rec.Token)

	t.Run("snapshot is detached", func(t *testing.T) {
		rec.Token = "changed"
		again, err := m.Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "T1", again.Token)
	})

	t.Run("upsert replaces whole record", func(t *testing.T) {
		require.NoError(t, m.Upsert(ctx, models.UserRecord{UserID: 1, Login: "ivanov"}))
		rec, err := m.Get(ctx, 1)
		require.NoError(t, err)
		assert.False(t, rec.HasToken())
	})

	t.Run("list notified", func(t *testing.T) {
		list, err := m.ListNotified(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, int64(2), list[0].UserID)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, m.Delete(ctx, 1))
		_, err := m.Get(ctx, 1)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, m.Delete(ctx, 1))
	})
}
