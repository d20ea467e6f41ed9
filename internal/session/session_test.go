package session_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"porschevents/internal/model"
	"porschevents/internal/session"
)

func sampleSession() session.Persisted {
	return session.Persisted{
		User: &model.User{
			ID:           "2",
			Email:        "sarah.smith@example.com",
			FirstName:    "Sarah",
			LastName:     "Smith",
			Preferences:  model.DefaultPreferences(),
			PasswordHash: "must-not-be-stored",
			CreatedAt:    time.Date(2024, 1, 10, 14, 30, 0, 0, time.UTC),
			UpdatedAt:    time.Date(2024, 1, 10, 14, 30, 0, 0, time.UTC),
		},
		Token:           "tok",
		IsAuthenticated: true,
	}
}

// storeContract runs the behaviour every Store must share.
func storeContract(t *testing.T, s session.Store) {
	t.Helper()
	ctx := context.Background()

	empty, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Persisted{}, empty)

	require.NoError(t, s.Save(ctx, sampleSession()))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got.User)
	assert.Equal(t, "2", got.User.ID)
	assert.Equal(t, "tok", got.Token)
	assert.True(t, got.IsAuthenticated)
	assert.Equal(t, model.DefaultPreferences(), got.User.Preferences)

	require.NoError(t, s.Save(ctx, session.Persisted{}))
	cleared, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, cleared.User)
	assert.False(t, cleared.IsAuthenticated)
}

func Test_MemoryStore(t *testing.T) {
	storeContract(t, session.NewMemoryStore())
}

func Test_MemoryStore_CopiesUser(t *testing.T) {
	ctx := context.Background()
	s := session.NewMemoryStore()
	p := sampleSession()
	require.NoError(t, s.Save(ctx, p))

	p.User.FirstName = "changed"

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Sarah", got.User.FirstName)
}

func Test_FileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	s, err := session.NewFileStore(path)
	require.NoError(t, err)

	storeContract(t, s)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func Test_FileStore_DoesNotWritePasswordHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s, err := session.NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, s.Save(context.Background(), sampleSession()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "must-not-be-stored")
	assert.Contains(t, string(data), `"isAuthenticated":true`)
}

func Test_FileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s, err := session.NewFileStore(path)
	require.NoError(t, err)

	_, err = s.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrCorrupt)
}

func Test_NewFileStore_EmptyPath(t *testing.T) {
	_, err := session.NewFileStore("")
	assert.Error(t, err)
}

func Test_RedisStore(t *testing.T) {
	url := os.Getenv("PORSCHEVENTS_TEST_REDIS_URL")
	if url == "" {
		t.Skip("PORSCHEVENTS_TEST_REDIS_URL not set")
	}
	ctx := context.Background()

	s, err := session.NewRedisStore(ctx, url, "porschevents:test:"+t.Name(), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Clear(ctx)
		_ = s.Close()
	})
	require.NoError(t, s.Clear(ctx))

	storeContract(t, s)
}
