package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/sandevgo/tuskmem/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *MessagesRepo {
	t.Helper()
	db, err := NewDB(context.Background(), filepath.Join(t.TempDir(), "db", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMessagesRepo(db)
}

func TestMessagesRepo_AddAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for i := 1; i <= 5; i++ {
		role := core.RoleHuman
		if i%2 == 0 {
			role = core.RoleAI
		}
		msg, err := repo.AddMessage(ctx, core.Message{SessionID: "s1", Role: role, Content: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
		assert.EqualValues(t, i, msg.ID)
		assert.False(t, msg.CreatedAt.IsZero())
	}
	_, err := repo.AddMessage(ctx, core.Message{SessionID: "s2", Role: core.RoleHuman, Content: "other"})
	require.NoError(t, err)

	got, err := repo.GetMessages(ctx, "s1", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "m3", got[0].Content)
	assert.Equal(t, "m4", got[1].Content)
	assert.Equal(t, "m5", got[2].Content)
	assert.Equal(t, core.RoleAI, got[1].Role)

	all, err := repo.GetMessages(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	none, err := repo.GetMessages(ctx, "missing", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMessagesRepo_Data(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	_, err := repo.AddMessage(ctx, core.Message{
		SessionID: "s1",
		Role:      core.RoleAI,
		Content:   "Paris.",
		CreatedAt: at,
		Data:      map[string]any{"request_id": "r1", "confidence": 0.9, "sentiment": "positive"},
	})
	require.NoError(t, err)

	got, err := repo.GetMessages(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, map[string]any{"request_id": "r1", "confidence": 0.9, "sentiment": "positive"}, got[0].Data)
	assert.True(t, at.Equal(got[0].CreatedAt))
}

func TestMessagesRepo_DeleteSession(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.AddMessage(ctx, core.Message{SessionID: "a", Role: core.RoleHuman, Content: "x"})
	require.NoError(t, err)
	_, err = repo.AddMessage(ctx, core.Message{SessionID: "b", Role: core.RoleHuman, Content: "y"})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteSession(ctx, "a"))

	a, err := repo.GetMessages(ctx, "a", 10)
	require.NoError(t, err)
	assert.Empty(t, a)
	b, err := repo.GetMessages(ctx, "b", 10)
	require.NoError(t, err)
	assert.Len(t, b, 1)
}

func TestMessagesRepo_RequiresSession(t *testing.T) {
	_, err := newTestRepo(t).AddMessage(context.Background(), core.Message{Role: core.RoleHuman, Content: "x"})
	require.Error(t, err)
}
