package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearway-ai/chat-gateway/internal/model"
	"github.com/clearway-ai/chat-gateway/internal/store"
	"github.com/clearway-ai/chat-gateway/pkg/logger"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestSessions(t *testing.T) (*SessionService, *store.Store) {
	t.Helper()
	st := newTestStore(t)
	svc := NewSessionService(st, nil, logger.NewNop())
	require.NoError(t, svc.Init(context.Background()))
	return svc, st
}

func TestSessionService_CreateAndActive(t *testing.T) {
	svc, st := newTestSessions(t)
	ctx := context.Background()

	created := svc.Create(ctx, "")
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.DefaultTitle, created.Title)

	active, ok := svc.Active()
	require.True(t, ok)
	assert.Equal(t, created.ID, active.ID)

	// Creation is mirrored to the store immediately.
	persisted, err := st.GetSessions()
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, created.ID, persisted[0].ID)
}

func TestSessionService_SetActive(t *testing.T) {
	svc, _ := newTestSessions(t)
	ctx := context.Background()

	a := svc.Create(ctx, "A")
	svc.Create(ctx, "B")

	require.NoError(t, svc.SetActive(a.ID))
	active, ok := svc.Active()
	require.True(t, ok)
	assert.Equal(t, a.ID, active.ID)

	assert.ErrorIs(t, svc.SetActive("ghost"), ErrSessionNotFound)
}

func TestSessionService_DeleteReselects(t *testing.T) {
	svc, st := newTestSessions(t)
	ctx := context.Background()

	a := svc.Create(ctx, "A")
	b := svc.Create(ctx, "B")
	require.NoError(t, svc.SetActive(a.ID))

	svc.Delete(ctx, a.ID)

	active, ok := svc.Active()
	require.True(t, ok)
	assert.Equal(t, b.ID, active.ID)

	persisted, err := st.GetSessions()
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, b.ID, persisted[0].ID)

	// Repeated deletion is a no-op.
	svc.Delete(ctx, a.ID)
	sessions, _ := svc.List()
	assert.Len(t, sessions, 1)
}

func TestSessionService_DeleteAll(t *testing.T) {
	svc, _ := newTestSessions(t)
	ctx := context.Background()

	svc.Create(ctx, "A")
	svc.Create(ctx, "B")
	svc.DeleteAll(ctx)

	sessions, activeID := svc.List()
	assert.Empty(t, sessions)
	assert.Empty(t, activeID)
}

func TestSessionService_AppendMessage(t *testing.T) {
	svc, _ := newTestSessions(t)
	ctx := context.Background()

	_, ok := svc.AppendMessage(ctx, model.Message{Role: model.RoleUser, Content: "dropped"})
	assert.False(t, ok, "no active session")

	svc.Create(ctx, "chat")
	stored, ok := svc.AppendMessage(ctx, model.Message{Role: model.RoleUser, Content: "hello"})
	require.True(t, ok)
	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, model.MessageTypeText, stored.Type)

	active, _ := svc.Active()
	require.Len(t, active.Messages, 1)
	assert.Equal(t, "hello", active.Messages[0].Content)
}

func TestSessionService_ReplaceFrom(t *testing.T) {
	svc, _ := newTestSessions(t)
	ctx := context.Background()

	svc.Create(ctx, "chat")
	first, _ := svc.AppendMessage(ctx, model.Message{Role: model.RoleUser, Content: "first"})
	svc.AppendMessage(ctx, model.Message{Role: model.RoleAssistant, Content: "reply"})

	replacement, err := svc.ReplaceFrom(ctx, first.ID, model.Message{Role: model.RoleUser, Content: "edited"})
	require.NoError(t, err)
	assert.Equal(t, "edited", replacement.Content)

	active, _ := svc.Active()
	require.Len(t, active.Messages, 1)
	assert.Equal(t, replacement.ID, active.Messages[0].ID)

	_, err = svc.ReplaceFrom(ctx, "ghost", model.Message{Content: "x"})
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestSessionService_UpdateTitle(t *testing.T) {
	svc, _ := newTestSessions(t)
	ctx := context.Background()

	sess := svc.Create(ctx, "")
	updated, err := svc.UpdateTitle(ctx, sess.ID, "Paris travel tips")
	require.NoError(t, err)
	assert.Equal(t, "Paris travel tips", updated.Title)

	_, err = svc.UpdateTitle(ctx, "ghost", "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionService_ConcurrentDeleteDuringWrite(t *testing.T) {
	svc, _ := newTestSessions(t)
	ctx := context.Background()

	// Rename, edit and delete race on the same session. Whichever side
	// loses must come back with a not-found error, never a panic.
	for i := 0; i < 100; i++ {
		sess := svc.Create(ctx, "racing")
		msg, ok := svc.AppendMessage(ctx, model.Message{Role: model.RoleUser, Content: "hi"})
		require.True(t, ok)

		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			if _, err := svc.UpdateTitle(ctx, sess.ID, "renamed"); err != nil {
				assert.ErrorIs(t, err, ErrSessionNotFound)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := svc.ReplaceFrom(ctx, msg.ID, model.Message{Role: model.RoleUser, Content: "edited"}); err != nil {
				assert.ErrorIs(t, err, ErrMessageNotFound)
			}
		}()
		go func() {
			defer wg.Done()
			svc.Delete(ctx, sess.ID)
		}()
		wg.Wait()
	}
}

func TestSessionService_SettingsPersistAcrossInit(t *testing.T) {
	st := newTestStore(t)
	svc := NewSessionService(st, nil, logger.NewNop())
	require.NoError(t, svc.Init(context.Background()))

	tone := "formal"
	updated := svc.UpdateSettings(model.SettingsPatch{Tone: &tone})
	assert.Equal(t, "formal", updated.Tone)

	// A second service over the same store sees the persisted settings.
	again := NewSessionService(st, nil, logger.NewNop())
	require.NoError(t, again.Init(context.Background()))
	assert.Equal(t, "formal", again.Settings().Tone)
}

func TestSessionService_InitHydratesSessions(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.SaveSessions([]model.Session{
		{ID: "s1", Title: "First"},
		{ID: "s2", Title: "Second"},
	}))

	svc := NewSessionService(st, nil, logger.NewNop())
	require.NoError(t, svc.Init(context.Background()))

	sessions, activeID := svc.List()
	require.Len(t, sessions, 2)
	assert.Equal(t, "s1", activeID, "first persisted session becomes active")
}
